package mode

import (
	"context"
	"time"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/pipeline"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// Mask isolates the persons of a single image
func Mask(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	if err := checkArgs("mask", args, 2, 2); err != nil {
		return err
	}

	ctx, runID := newRun(canxCtx, "mask")
	startTime := time.Now()
	stats := model.MaskerStats{
		RunID:  runID,
		Source: args[0],
	}

	err := maskImage(ctx, svcs, args[0], args[1], &stats)
	if err != nil {
		stats.Errors++
	}
	stats.Uptime = int64(time.Since(startTime).Seconds())

	return finish(ctx, svcs, "mask", stats, err, map[string]interface{}{
		"source": args[0],
		"output": args[1],
	})
}

func maskImage(ctx context.Context, svcs pipeline.ServicesFactory, source, output string, stats *model.MaskerStats) error {
	masker, err := pipeline.NewPersonMasker(svcs)
	if err != nil {
		return err
	}
	defer masker.Close()

	img := gocv.IMRead(source, gocv.IMReadColor)
	defer img.Close() // Crucial to close the image to avoid memory leaks
	if img.Empty() {
		return lgr.Traced(xerrors.Errorf("read image %s: %w", source, pipeline.ErrEmptyFrame))
	}

	begin := time.Now()
	found, err := masker.DetectPerson(ctx, &img)
	stats.AvgProcTime = time.Since(begin).Seconds()
	if err != nil {
		return err
	}

	if found {
		stats.Persons++
	} else {
		stats.PassThrough++
	}

	if err := pipeline.NewVideoWriter(output).WriteFrame(img); err != nil {
		return err
	}
	stats.Images++

	return nil
}

// Preprocess masks the sampled frames of a video
func Preprocess(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	if err := checkArgs("preprocess", args, 2, 2); err != nil {
		return err
	}

	ctx, runID := newRun(canxCtx, "preprocess")
	stats, err := pipeline.Preprocess(ctx, svcs, args[0], args[1])
	stats.RunID = runID

	return finish(ctx, svcs, "preprocess", stats, err, map[string]interface{}{
		"source":      args[0],
		"destination": args[1],
	})
}
