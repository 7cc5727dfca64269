package mode

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/pipeline"
	"github.com/khaledhikmat/vs-prep/service/data"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"golang.org/x/xerrors"
)

var ErrUsage = xerrors.New("wrong number of arguments")

// Processor runs one command to completion. args are the positional command line arguments.
type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error

// Usage describes the positional arguments of each processor
var Usage = map[string]string{
	"extract":    "<video> <destination>",
	"stack":      "<video> [destination]",
	"mask":       "<image> <output>",
	"preprocess": "<video> <destination>",
	"dataset":    "<collection>",
}

func checkArgs(proc string, args []string, minArgs, maxArgs int) error {
	if len(args) < minArgs || len(args) > maxArgs {
		return xerrors.Errorf("%s %s: got %d: %w", proc, Usage[proc], len(args), ErrUsage)
	}
	return nil
}

// newRun tags ctx with a fresh run id so every log line of the run can be correlated
func newRun(canxCtx context.Context, proc string) (context.Context, string) {
	runID := uuid.New()
	ctx := lgr.WithRun(canxCtx, runID)
	lgr.Logger.InfoContext(ctx,
		"run started",
		slog.String("processor", proc),
		slog.String("runId", runID.String()),
	)
	return ctx, runID.String()
}

func procStats(datasvc data.IService, stats interface{}) {
	if datasvc == nil {
		return
	}

	var err error
	switch stats := stats.(type) {
	case model.ExtractorStats:
		err = datasvc.NewExtractorStats(stats)
	case model.ReaderStats:
		err = datasvc.NewReaderStats(stats)
	case model.MaskerStats:
		err = datasvc.NewMaskerStats(stats)
	case model.DatasetStats:
		err = datasvc.NewDatasetStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	if datasvc == nil {
		return
	}

	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}

// finish records the outcome of a run and hands err back to the caller
func finish(ctx context.Context, svcs pipeline.ServicesFactory, proc string, stats interface{}, err error, misc map[string]interface{}) error {
	procStats(svcs.DataSvc, stats)

	if err != nil {
		err = lgr.Traced(err)
		procError(svcs.DataSvc, model.GenError(proc, err, misc, "%s run failed", proc))
		lgr.Logger.ErrorContext(ctx,
			"run failed",
			slog.String("processor", proc),
			slog.Any("error", err),
		)
		return err
	}

	lgr.Logger.InfoContext(ctx,
		"run done",
		slog.String("processor", proc),
		slog.Any("stats", stats),
	)
	return nil
}
