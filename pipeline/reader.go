package pipeline

import (
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-prep/service/lgr"
	"golang.org/x/xerrors"
)

// VideoReader owns a single decode cursor over one video.
//
// Frame advances the cursor. Stack rewinds the same cursor, decodes the whole
// video once and caches it; the cursor is exhausted afterwards. At most one
// decode handle is open at any time.
type VideoReader struct {
	svcs   ServicesFactory
	path   string
	cursor Decoder
	index  int
	opens  int

	stack   []FrameData
	stacked bool
	closed  bool
}

func NewVideoReader(svcs ServicesFactory, source string) (*VideoReader, error) {
	r := &VideoReader{
		svcs: svcs,
		path: ResolveVideoPath(svcs.CfgSvc, source),
	}

	if err := r.rewind(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *VideoReader) Path() string {
	return r.path
}

// Opens reports how many decode handles the reader has opened so far
func (r *VideoReader) Opens() int {
	return r.opens
}

// Frame returns the next frame of the cursor. The caller owns the returned Mat.
// false means end of stream, a decode failure or a closed reader.
func (r *VideoReader) Frame() (FrameData, bool) {
	if r.closed || r.cursor == nil {
		return FrameData{}, false
	}

	img, ok := readFrame(r.cursor)
	if !ok {
		r.closeCursor()
		return FrameData{}, false
	}

	frame := FrameData{
		Mat:       img,
		Index:     r.index,
		Timestamp: time.Now(),
	}
	r.index++

	return frame, true
}

// Stack returns every frame of the video in capture order.
// The frames belong to the reader and are released by Close.
func (r *VideoReader) Stack() ([]FrameData, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}

	if r.stacked {
		return r.stack, nil
	}

	// Only reopen when the cursor already moved
	if r.cursor == nil || r.index > 0 {
		if err := r.rewind(); err != nil {
			return nil, err
		}
	}

	frames := []FrameData{}
	for {
		frame, ok := r.Frame()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}

	lgr.Logger.Debug(
		"video reader stacked frames",
		slog.String("path", r.path),
		slog.Int("frames", len(frames)),
		slog.Int("opens", r.opens),
	)

	r.stack = frames
	r.stacked = true

	return r.stack, nil
}

// Close releases the decode handle and the cached stack. It is safe to call twice.
func (r *VideoReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	for _, f := range r.stack {
		f.Mat.Close()
	}
	r.stack = nil

	return r.closeCursor()
}

func (r *VideoReader) rewind() error {
	if err := r.closeCursor(); err != nil {
		lgr.Logger.Warn(
			"video reader could not close decode handle",
			slog.String("path", r.path),
			slog.Any("error", err),
		)
	}

	cursor, err := r.svcs.open(r.path)
	if err != nil {
		return lgr.Traced(xerrors.Errorf("open video %s: %w", r.path, err))
	}

	r.cursor = cursor
	r.index = 0
	r.opens++

	return nil
}

func (r *VideoReader) closeCursor() error {
	if r.cursor == nil {
		return nil
	}
	err := r.cursor.Close()
	r.cursor = nil
	return err
}
