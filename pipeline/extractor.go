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

// ExtractFrames saves every n-th frame of source into destination as sequentially
// numbered images. Reading stops at the first failed read, which covers both the
// end of the stream and a decode error.
func ExtractFrames(canxCtx context.Context, svcs ServicesFactory, source, destination string) (stats model.ExtractorStats, err error) {
	startTime := time.Now()
	stats = model.ExtractorStats{
		Source:      source,
		Destination: destination,
	}

	defer func() {
		stats.Uptime = int64(time.Since(startTime).Seconds())
	}()

	// An existing destination is fine
	if err = os.MkdirAll(destination, 0755); err != nil {
		return stats, lgr.Traced(xerrors.Errorf("create destination %s: %w", destination, err))
	}

	video, err := svcs.open(source)
	if err != nil {
		return stats, lgr.Traced(xerrors.Errorf("open video %s: %w", source, err))
	}
	defer video.Close()

	interval := svcs.CfgSvc.GetFrameSampleInterval()
	prefix := svcs.CfgSvc.GetFrameFilePrefix()
	ext := svcs.CfgSvc.GetFrameFileExt()

	for {
		if err = canxCtx.Err(); err != nil {
			lgr.Logger.InfoContext(canxCtx,
				"frame extractor context cancelled",
				slog.Int("framesRead", stats.FramesRead),
			)
			return stats, err
		}

		img, ok := readFrame(video)
		if !ok {
			break
		}

		if stats.FramesRead%interval == 0 {
			writer := NewVideoWriter(FramePath(destination, prefix, stats.FramesSaved, ext))
			err = writer.WriteFrame(img)
			img.Close() // Crucial to close the image to avoid memory leaks
			if err != nil {
				stats.Errors++
				return stats, err
			}

			lgr.Logger.DebugContext(canxCtx,
				"frame saved",
				slog.Int("frame", stats.FramesRead),
				slog.String("path", writer.Path()),
			)
			stats.FramesSaved++
		} else {
			img.Close()
		}

		stats.FramesRead++
	}

	lgr.Logger.InfoContext(canxCtx,
		"frame extraction done",
		slog.String("source", source),
		slog.Int("framesRead", stats.FramesRead),
		slog.Int("framesSaved", stats.FramesSaved),
	)

	return stats, nil
}
