package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"golang.org/x/xerrors"
)

// Preprocess isolates the persons of every n-th frame of a video and writes the
// results as sequentially numbered images. Frames without a person are written unchanged.
func Preprocess(canxCtx context.Context, svcs ServicesFactory, source, destination string) (stats model.MaskerStats, err error) {
	startTime := time.Now()
	stats = model.MaskerStats{
		Source: source,
	}

	var totalProcTime time.Duration
	defer func() {
		stats.Uptime = int64(time.Since(startTime).Seconds())
		if stats.Images > 0 {
			stats.AvgProcTime = totalProcTime.Seconds() / float64(stats.Images)
		}
	}()

	masker, err := NewPersonMasker(svcs)
	if err != nil {
		return stats, err
	}
	defer masker.Close()

	reader, err := NewVideoReader(svcs, source)
	if err != nil {
		return stats, err
	}
	defer reader.Close()

	if err = os.MkdirAll(destination, 0755); err != nil {
		return stats, lgr.Traced(xerrors.Errorf("create destination %s: %w", destination, err))
	}

	frames, err := reader.Stack()
	if err != nil {
		return stats, err
	}

	interval := svcs.CfgSvc.GetFrameSampleInterval()
	prefix := svcs.CfgSvc.GetFrameFilePrefix()
	ext := svcs.CfgSvc.GetFrameFileExt()

	for _, frame := range frames {
		if err = canxCtx.Err(); err != nil {
			return stats, err
		}

		if frame.Index%interval != 0 {
			continue
		}

		// The stack is shared, mask a copy
		img := frame.Mat.Clone()

		begin := time.Now()
		found, err := masker.DetectPerson(canxCtx, &img)
		totalProcTime += time.Since(begin)
		if err != nil {
			img.Close()
			stats.Errors++
			return stats, xerrors.Errorf("frame %d: %w", frame.Index, err)
		}

		if found {
			stats.Persons++
		} else {
			stats.PassThrough++
		}

		writer := NewVideoWriter(FramePath(destination, prefix, stats.Images, ext))
		err = writer.WriteFrame(img)
		img.Close() // Crucial to close the image to avoid memory leaks
		if err != nil {
			stats.Errors++
			return stats, err
		}

		stats.Images++
	}

	lgr.Logger.InfoContext(canxCtx,
		"preprocess done",
		slog.String("source", reader.Path()),
		slog.Int("frames", len(frames)),
		slog.Int("images", stats.Images),
		slog.Int("persons", stats.Persons),
	)

	return stats, nil
}
