package inference

import (
	"context"

	"github.com/khaledhikmat/vs-prep/model"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

var (
	ErrNoModel    = xerrors.New("segmentation model not found")
	ErrEmptyImage = xerrors.New("empty image")
)

// IService is the narrow boundary to the instance segmentation model.
// Masks of the returned detections always match the image size.
type IService interface {
	Infer(ctx context.Context, img gocv.Mat) ([]model.Detection, error)
	Close() error
}
