package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/khaledhikmat/vs-prep/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// VideoWriter persists single frames at one fixed path. The image format follows the extension.
type VideoWriter struct {
	path string
}

func NewVideoWriter(path string) *VideoWriter {
	return &VideoWriter{
		path: path,
	}
}

func (w *VideoWriter) Path() string {
	return w.path
}

// WriteFrame encodes img at the writer's path, replacing any existing file
func (w *VideoWriter) WriteFrame(img gocv.Mat) error {
	if img.Empty() {
		return lgr.Traced(xerrors.Errorf("write frame to %s: %w", w.path, ErrEmptyFrame))
	}

	if ok := gocv.IMWrite(w.path, img); !ok {
		return lgr.Traced(xerrors.Errorf("write frame to %s: %w", w.path, ErrWriteFrame))
	}

	return nil
}

// FramePath names the n-th saved frame, e.g. dir/frame3.jpg
func FramePath(dir, prefix string, n int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d%s", prefix, n, ext))
}
