package lgr

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide logger. It logs to the console until Init is called.
var Logger = slog.New(newConsoleHandler(os.Stdout, slog.LevelInfo))

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// Init points Logger at the console and, when file is not empty, a rotated JSON log file.
// The returned closer flushes and closes the log file.
func Init(level string, file string) io.Closer {
	lvl := ParseLevel(level)

	handlers := []slog.Handler{newConsoleHandler(os.Stdout, lvl)}

	var closer io.Closer = nopCloser{}
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level:       lvl,
			AddSource:   true,
			ReplaceAttr: replaceAttr,
		}))
		closer = rotator
	}

	Logger = slog.New(&traceHandler{Handler: &fanoutHandler{handlers: handlers}})
	slog.SetDefault(Logger)
	return closer
}

func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WithRun places a span context derived from the run id on ctx so that
// every record logged with that context carries the run as its trace id.
func WithRun(ctx context.Context, runID uuid.UUID) context.Context {
	spanSeed := uuid.New()

	var spanID trace.SpanID
	copy(spanID[:], spanSeed[:8])

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(runID),
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(ctx, sc)
}

// Traced records the caller's stack on err so that logging it renders a trace.
// An err that already wraps a stack is returned as is.
func Traced(err error) error {
	if err == nil || len(xerrors.StackTrace(err)) > 0 {
		return err
	}
	return xerrors.WithStackTrace(err, 1)
}

func newConsoleHandler(w *os.File, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceAttr,
	}

	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return newPrettyHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}

	if err, ok := a.Value.Any().(error); ok {
		a.Value = fmtErr(err)
	}

	return a
}

func fmtErr(err error) slog.Value {
	groupValues := []slog.Attr{
		slog.String("msg", err.Error()),
	}

	frames := marshalStack(err)
	if frames != nil {
		groupValues = append(groupValues, slog.Any("trace", frames))
	}

	return slog.GroupValue(groupValues...)
}

func marshalStack(err error) []stackFrame {
	callers := xerrors.StackTrace(err)
	if len(callers) == 0 {
		return nil
	}

	frames := callers.Frames()
	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(filepath.Base(filepath.Dir(v.File)), filepath.Base(v.File)),
			Func:   filepath.Base(v.Function),
			Line:   v.Line,
		}
	}

	return s
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
