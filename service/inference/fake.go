package inference

import (
	"context"
	"sync"

	"github.com/khaledhikmat/vs-prep/model"
	"gocv.io/x/gocv"
)

// FakeService returns canned detections so callers can be tested without model weights
type FakeService struct {
	Detections []model.Detection
	Err        error
	// InferFunc, when set, replaces the canned answer
	InferFunc func(img gocv.Mat) ([]model.Detection, error)

	mu    sync.Mutex
	calls int
}

func NewFake(detections ...model.Detection) *FakeService {
	return &FakeService{
		Detections: detections,
	}
}

func (svc *FakeService) Infer(ctx context.Context, img gocv.Mat) ([]model.Detection, error) {
	svc.mu.Lock()
	svc.calls++
	svc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if svc.Err != nil {
		return nil, svc.Err
	}

	if svc.InferFunc != nil {
		return svc.InferFunc(img)
	}

	return svc.Detections, nil
}

func (svc *FakeService) Calls() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.calls
}

func (svc *FakeService) Close() error {
	return nil
}
