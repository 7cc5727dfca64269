package inference

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/service/config"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const (
	boxesLayer = "detection_out_final"
	masksLayer = "detection_masks"

	// [batchId, classId, confidence, left, top, right, bottom]
	boxStride = 7
)

type maskRCNNService struct {
	CfgSvc config.IService
	Labels []string

	// WARNING: net is not thread-safe!!!
	mu  sync.Mutex
	net gocv.Net
}

// NewMaskRCNN loads a frozen Mask R-CNN graph through OpenCV's DNN module.
// Loading is expensive and should happen once per process.
func NewMaskRCNN(cfgSvc config.IService) (IService, error) {
	weightsPath := cfgSvc.GetModelWeightsPath()
	if _, err := os.Stat(weightsPath); errors.Is(err, os.ErrNotExist) {
		return nil, lgr.Traced(xerrors.Errorf("%s: %w", weightsPath, ErrNoModel))
	}

	labels, err := SelectLabels(cfgSvc.GetModelLabelSet(), cfgSvc.GetModelLabelsPath())
	if err != nil {
		return nil, err
	}

	lgr.Logger.Info("mask rcnn loading...",
		slog.String("weights", weightsPath),
		slog.String("config", cfgSvc.GetModelConfigPath()),
		slog.Int("labels", len(labels)),
		slog.String("openCV", gocv.Version()),
	)

	net := gocv.ReadNet(weightsPath, cfgSvc.GetModelConfigPath())
	if net.Empty() {
		return nil, lgr.Traced(xerrors.Errorf("error reading mask rcnn model %s", weightsPath))
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, lgr.Traced(xerrors.Errorf("error setting backend: %w", err))
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, lgr.Traced(xerrors.Errorf("error setting target: %w", err))
	}

	return &maskRCNNService{
		CfgSvc: cfgSvc,
		Labels: labels,
		net:    net,
	}, nil
}

func (svc *maskRCNNService) Infer(ctx context.Context, img gocv.Mat) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	if img.Channels() != 3 {
		return nil, lgr.Traced(xerrors.Errorf("expected a 3 channel image, got %d channels", img.Channels()))
	}

	blob := gocv.BlobFromImage(img, 1.0, image.Pt(img.Cols(), img.Rows()), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.mu.Lock()
	svc.net.SetInput(blob, "")
	outputs := svc.net.ForwardLayers([]string{boxesLayer, masksLayer})
	svc.mu.Unlock()

	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	if len(outputs) != 2 {
		return nil, lgr.Traced(xerrors.Errorf("expected 2 mask rcnn outputs, got %d", len(outputs)))
	}

	return decodeDetections(outputs[0], outputs[1], img.Cols(), img.Rows(), decodeParams{
		Labels:              svc.Labels,
		ClassOffset:         svc.CfgSvc.GetModelClassOffset(),
		ConfidenceThreshold: svc.CfgSvc.GetModelConfidenceThreshold(),
		MaskThreshold:       svc.CfgSvc.GetModelMaskThreshold(),
	})
}

func (svc *maskRCNNService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.net.Close()
}

type decodeParams struct {
	Labels              []string
	ClassOffset         int
	ConfidenceThreshold float32
	MaskThreshold       float32
}

// decodeDetections turns the raw network outputs into full-frame detections.
// boxes holds normalized coordinates; masks holds one low resolution mask per class per box.
func decodeDetections(boxes, masks gocv.Mat, width, height int, params decodeParams) ([]model.Detection, error) {
	boxData, err := boxes.DataPtrFloat32()
	if err != nil {
		return nil, lgr.Traced(xerrors.Errorf("read boxes: %w", err))
	}

	dims := masks.Size()
	if len(dims) != 4 {
		return nil, lgr.Traced(xerrors.Errorf("unexpected mask output dims: %v", dims))
	}
	numMasks, numClasses, mh, mw := dims[0], dims[1], dims[2], dims[3]

	maskData, err := masks.DataPtrFloat32()
	if err != nil {
		return nil, lgr.Traced(xerrors.Errorf("read masks: %w", err))
	}

	detections := []model.Detection{}
	for i := 0; i < len(boxData)/boxStride && i < numMasks; i++ {
		row := boxData[i*boxStride : (i+1)*boxStride]

		confidence := row[2]
		if confidence < params.ConfidenceThreshold {
			continue
		}

		classID := int(row[1])
		if classID < 0 || classID >= numClasses {
			continue
		}

		left := clamp(int(float32(width)*row[3]), 0, width-1)
		top := clamp(int(float32(height)*row[4]), 0, height-1)
		right := clamp(int(float32(width)*row[5]), 0, width-1)
		bottom := clamp(int(float32(height)*row[6]), 0, height-1)
		if right < left || bottom < top {
			continue
		}

		start := (i*numClasses + classID) * mh * mw
		mask, err := expandMask(maskData[start:start+mh*mw], mh, mw, image.Rect(left, top, right+1, bottom+1), width, height, params.MaskThreshold)
		if err != nil {
			return nil, err
		}

		detections = append(detections, model.Detection{
			ClassID:    classID,
			Label:      Label(params.Labels, classID, params.ClassOffset),
			Confidence: confidence,
			Box:        image.Rect(left, top, right+1, bottom+1),
			Mask:       mask,
		})
	}

	return detections, nil
}

// expandMask resizes a low resolution soft mask to its box and thresholds it into a frame sized mask
func expandMask(soft []float32, mh, mw int, box image.Rectangle, width, height int, threshold float32) (model.Mask, error) {
	lowRes := gocv.NewMatWithSize(mh, mw, gocv.MatTypeCV32F)
	defer lowRes.Close()

	for y := 0; y < mh; y++ {
		for x := 0; x < mw; x++ {
			lowRes.SetFloatAt(y, x, soft[y*mw+x])
		}
	}

	resized := gocv.NewMat()
	defer resized.Close()

	if err := gocv.Resize(lowRes, &resized, image.Pt(box.Dx(), box.Dy()), 0, 0, gocv.InterpolationLinear); err != nil {
		return model.Mask{}, lgr.Traced(xerrors.Errorf("resize mask: %w", err))
	}

	mask := model.NewMask(width, height)
	for y := 0; y < box.Dy(); y++ {
		for x := 0; x < box.Dx(); x++ {
			if resized.GetFloatAt(y, x) > threshold {
				mask.Set(box.Min.X+x, box.Min.Y+y, true)
			}
		}
	}

	return mask, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
