package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/service/inference"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"github.com/natefinch/lumberjack"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const bgrChannels = 3

// PersonMasker blanks everything in an image that is not a detected person
type PersonMasker struct {
	svcs          ServicesFactory
	detectionsLog io.WriteCloser
}

type personDetection struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Box        string  `json:"box"`
	Pixels     int     `json:"pixels"`
}

func NewPersonMasker(svcs ServicesFactory) (*PersonMasker, error) {
	if svcs.InferenceSvc == nil {
		return nil, xerrors.New("person masker needs an inference service")
	}

	m := &PersonMasker{
		svcs: svcs,
	}

	if svcs.CfgSvc != nil && svcs.CfgSvc.IsDetectionsLogging() {
		m.detectionsLog = &lumberjack.Logger{
			Filename:   svcs.CfgSvc.GetDetectionsLog(),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		}
	}

	return m, nil
}

// DetectPerson masks img in place so that only pixels covered by a person remain.
// When no person is found the image is left untouched and false is returned.
func (m *PersonMasker) DetectPerson(ctx context.Context, img *gocv.Mat) (bool, error) {
	if img == nil || img.Empty() {
		return false, ErrEmptyFrame
	}

	detections, err := m.svcs.InferenceSvc.Infer(ctx, *img)
	if err != nil {
		return false, lgr.Traced(xerrors.Errorf("person inference: %w", err))
	}

	persons := PersonMasks(detections)
	m.logDetections(detections)

	if len(persons) == 0 {
		lgr.Logger.DebugContext(ctx,
			"no person detected, passing image through",
			slog.Int("detections", len(detections)),
		)
		return false, nil
	}

	union, err := model.UnionAll(img.Cols(), img.Rows(), persons...)
	if err != nil {
		return false, err
	}

	// A person whose mask fell entirely under the threshold covers nothing
	if union.Empty() {
		return false, nil
	}

	if err := ApplyMask(img, union); err != nil {
		return false, err
	}

	return true, nil
}

func (m *PersonMasker) Close() error {
	if m.detectionsLog == nil {
		return nil
	}
	return m.detectionsLog.Close()
}

func (m *PersonMasker) logDetections(detections []model.Detection) {
	if m.detectionsLog == nil || len(detections) == 0 {
		return
	}

	entries := make([]personDetection, 0, len(detections))
	for _, d := range detections {
		entries = append(entries, personDetection{
			Label:      d.Label,
			Confidence: d.Confidence,
			Box:        d.Box.String(),
			Pixels:     d.Mask.Count(),
		})
	}

	entry := map[string]interface{}{
		"time":       time.Now().Format(time.RFC3339),
		"detections": entries,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		lgr.Logger.Error("error marshaling detections", slog.Any("error", err))
		return
	}

	if _, err := m.detectionsLog.Write(append(jsonData, '\n')); err != nil {
		lgr.Logger.Error("error writing to detection log file", slog.Any("error", err))
	}
}

// PersonMasks keeps the masks of the person detections
func PersonMasks(detections []model.Detection) []model.Mask {
	masks := []model.Mask{}
	for _, d := range detections {
		if inference.IsPerson(d.Label) {
			masks = append(masks, d.Mask)
		}
	}
	return masks
}

// ApplyMask zeroes all three channels of every pixel outside mask, in place.
// An all clear mask therefore blanks the whole image.
func ApplyMask(img *gocv.Mat, mask model.Mask) error {
	if !mask.Valid() {
		return lgr.Traced(xerrors.Errorf("mask %dx%d holds %d pixels: %w", mask.Width, mask.Height, len(mask.Pix), model.ErrMaskSize))
	}

	if img.Rows() != mask.Height || img.Cols() != mask.Width {
		return lgr.Traced(xerrors.Errorf("mask %dx%d on image %dx%d: %w", mask.Width, mask.Height, img.Cols(), img.Rows(), model.ErrMaskSize))
	}

	if img.Type() != gocv.MatTypeCV8UC3 {
		return lgr.Traced(xerrors.Errorf("apply mask: expected an 8-bit BGR image, got type %v", img.Type()))
	}

	pix, err := img.DataPtrUint8()
	if err != nil {
		// Not continuous (e.g. a region of a bigger Mat)
		for y := 0; y < mask.Height; y++ {
			for x := 0; x < mask.Width; x++ {
				if mask.At(x, y) {
					continue
				}
				for c := 0; c < bgrChannels; c++ {
					img.SetUCharAt(y, x*bgrChannels+c, 0)
				}
			}
		}
		return nil
	}

	for i, keep := range mask.Pix {
		if keep {
			continue
		}
		base := i * bgrChannels
		pix[base] = 0
		pix[base+1] = 0
		pix[base+2] = 0
	}

	return nil
}
