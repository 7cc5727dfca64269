package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-prep/mode"
	"github.com/khaledhikmat/vs-prep/pipeline"
	"github.com/khaledhikmat/vs-prep/service/config"
	"github.com/khaledhikmat/vs-prep/service/data"
	"github.com/khaledhikmat/vs-prep/service/inference"
	"github.com/khaledhikmat/vs-prep/service/lgr"
)

type command struct {
	name     string
	usage    string
	proc     mode.Processor
	needsNet bool
}

var commands = []command{
	{"extract", "save every n-th frame of a video", mode.Extract, false},
	{"stack", "decode a whole video into memory, optionally writing every frame", mode.Stack, false},
	{"mask", "keep only the persons of one image", mode.Mask, true},
	{"preprocess", "keep only the persons of every n-th frame of a video", mode.Preprocess, true},
	{"dataset", "extract the frames of a <collection>/<class>/<video> tree", mode.Dataset, false},
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			os.Exit(1)
		}
	}

	cfgSvc, err := config.NewEnv()
	if err != nil {
		lgr.Logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logCloser := lgr.Init(cfgSvc.GetLogLevel(), cfgSvc.GetLogFile())
	defer logCloser.Close()

	app := &cli.App{
		Name:  "vs-prep",
		Usage: "prepare video datasets for action recognition",
	}
	for _, c := range commands {
		app.Commands = append(app.Commands, &cli.Command{
			Name:      c.name,
			Usage:     c.usage,
			ArgsUsage: mode.Usage[c.name],
			Action: func(cliCtx *cli.Context) error {
				return run(canxCtx, canxFn, cfgSvc, c, cliCtx.Args().Slice())
			},
		})
	}

	if err := app.RunContext(canxCtx, os.Args); err != nil {
		lgr.Logger.Error("vs-prep exited", slog.Any("error", err))
		logCloser.Close()
		os.Exit(1)
	}
}

func run(canxCtx context.Context, canxFn context.CancelFunc, cfgSvc config.IService, c command, args []string) error {
	// Create the services needed for the mode processor
	svcs := pipeline.ServicesFactory{
		CfgSvc:  cfgSvc,
		DataSvc: data.NewFilesDB(cfgSvc),
	}

	// Only the masking commands need the model, so the others run without weights
	if c.needsNet {
		inferenceSvc, err := inference.NewMaskRCNN(cfgSvc)
		if err != nil {
			return err
		}
		defer inferenceSvc.Close()
		svcs.InferenceSvc = inferenceSvc
	}

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- c.proc(canxCtx, svcs, args)
	}()

	// Wait for cancellation or mode proc
	select {
	case err := <-modeProcResult:
		return err

	case <-canxCtx.Done():
		lgr.Logger.Info(
			"context cancelled",
			slog.String("command", c.name),
		)
	}

	// The processor checks the context between frames, give it a bounded time to report
	canxFn()
	waitOnShutdown := time.Duration(cfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
		return canxCtx.Err()

	case err := <-modeProcResult:
		return err
	}
}
