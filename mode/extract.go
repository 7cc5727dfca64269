package mode

import (
	"context"

	"github.com/khaledhikmat/vs-prep/pipeline"
)

// Extract samples every n-th frame of one video into a folder
func Extract(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	if err := checkArgs("extract", args, 2, 2); err != nil {
		return err
	}

	ctx, runID := newRun(canxCtx, "extract")
	stats, err := pipeline.ExtractFrames(ctx, svcs, args[0], args[1])
	stats.RunID = runID

	return finish(ctx, svcs, "extract", stats, err, map[string]interface{}{
		"source":      args[0],
		"destination": args[1],
	})
}

// Dataset extracts the frames of a whole <collection>/<class>/<video> tree
func Dataset(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	if err := checkArgs("dataset", args, 1, 1); err != nil {
		return err
	}

	ctx, runID := newRun(canxCtx, "dataset")
	stats, err := pipeline.ExtractDataset(ctx, svcs, args[0])
	stats.RunID = runID

	return finish(ctx, svcs, "dataset", stats, err, map[string]interface{}{
		"collection": args[0],
	})
}
