package mode

import (
	"context"
	"os"
	"time"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/pipeline"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"golang.org/x/xerrors"
)

// Stack decodes a whole video into memory and, given a destination, writes every frame out
func Stack(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	if err := checkArgs("stack", args, 1, 2); err != nil {
		return err
	}

	ctx, runID := newRun(canxCtx, "stack")
	startTime := time.Now()
	stats := model.ReaderStats{
		RunID:  runID,
		Source: args[0],
	}

	err := stackVideo(ctx, svcs, args, &stats)
	stats.Uptime = int64(time.Since(startTime).Seconds())

	return finish(ctx, svcs, "stack", stats, err, map[string]interface{}{
		"source": args[0],
	})
}

func stackVideo(ctx context.Context, svcs pipeline.ServicesFactory, args []string, stats *model.ReaderStats) error {
	reader, err := pipeline.NewVideoReader(svcs, args[0])
	if err != nil {
		return err
	}
	defer reader.Close()
	stats.Source = reader.Path()

	frames, err := reader.Stack()
	if err != nil {
		return err
	}

	stats.Frames = len(frames)
	if len(frames) > 0 {
		stats.Width = frames[0].Mat.Cols()
		stats.Height = frames[0].Mat.Rows()
	}

	if len(args) < 2 {
		return nil
	}

	if err := os.MkdirAll(args[1], 0755); err != nil {
		return lgr.Traced(xerrors.Errorf("create destination %s: %w", args[1], err))
	}

	prefix := svcs.CfgSvc.GetFrameFilePrefix()
	ext := svcs.CfgSvc.GetFrameFileExt()
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		writer := pipeline.NewVideoWriter(pipeline.FramePath(args[1], prefix, frame.Index, ext))
		if err := writer.WriteFrame(frame.Mat); err != nil {
			return lgr.Traced(xerrors.Errorf("frame %d: %w", frame.Index, err))
		}
	}

	return nil
}
