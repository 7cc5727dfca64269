package pipeline

import (
	"path/filepath"
	"time"

	"github.com/khaledhikmat/vs-prep/service/config"
	"github.com/khaledhikmat/vs-prep/service/data"
	"github.com/khaledhikmat/vs-prep/service/inference"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

var (
	ErrEmptyFrame   = xerrors.New("empty frame")
	ErrWriteFrame   = xerrors.New("frame could not be encoded")
	ErrReaderClosed = xerrors.New("video reader is closed")
)

// FrameData is one decoded BGR frame and its position in the video
type FrameData struct {
	Mat       gocv.Mat
	Index     int
	Timestamp time.Time
}

// Decoder is the part of gocv.VideoCapture the pipeline reads from
type Decoder interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// DecoderOpener opens a fresh decode handle positioned at the first frame
type DecoderOpener func(source string) (Decoder, error)

type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	InferenceSvc inference.IService
	// Opener defaults to OpenVideoFile
	Opener DecoderOpener
}

// OpenVideoFile opens source with OpenCV
func OpenVideoFile(source string) (Decoder, error) {
	return openCapture(source, func(uri string) (Decoder, error) {
		return gocv.VideoCaptureFile(uri)
	})
}

// openCapture releases the handle that a capture allocates even when the open fails
func openCapture(source string, capture DecoderOpener) (Decoder, error) {
	dec, err := capture(source)
	if err != nil {
		if dec != nil {
			dec.Close()
		}
		return nil, lgr.Traced(err)
	}
	return dec, nil
}

func (svcs ServicesFactory) open(source string) (Decoder, error) {
	if svcs.Opener != nil {
		return svcs.Opener(source)
	}
	return OpenVideoFile(source)
}

// ResolveVideoPath binds relative paths to the dataset root
func ResolveVideoPath(cfgSvc config.IService, source string) string {
	if cfgSvc == nil || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(cfgSvc.GetDatasetRoot(), source)
}

// readFrame returns the next frame. A failed read and an empty frame both mean the stream is done.
// The returned Mat is only valid when ok is true and must be closed by the caller.
func readFrame(dec Decoder) (gocv.Mat, bool) {
	img := gocv.NewMat()
	if ok := dec.Read(&img); !ok || img.Empty() {
		img.Close() // Crucial to close the image to avoid memory leaks
		return img, false
	}
	return img, true
}
