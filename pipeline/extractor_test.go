package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/vs-prep/service/lgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFramesSavesEverySixth(t *testing.T) {
	tests := []struct {
		frames int
		saved  int
	}{
		{0, 0},
		{1, 1},
		{5, 1},
		{6, 1},
		{7, 2},
		{12, 2},
		{13, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d frames", tt.frames), func(t *testing.T) {
			lib := newFakeLibrary()
			svcs, root := newTestServices(t, lib, nil)

			source := filepath.Join(root, "clip.avi")
			lib.add(source, sequence(tt.frames)...)
			destination := filepath.Join(root, "frames")

			stats, err := ExtractFrames(context.Background(), svcs, source, destination)
			require.NoError(t, err)
			assert.Equal(t, tt.frames, stats.FramesRead)
			assert.Equal(t, tt.saved, stats.FramesSaved)

			entries, err := os.ReadDir(destination)
			require.NoError(t, err)
			assert.Len(t, entries, tt.saved)

			// frameN holds raw frame N*6
			for n := 0; n < tt.saved; n++ {
				assert.Equal(t, uint8(n*6*10), grayAt(t, filepath.Join(destination, fmt.Sprintf("frame%d.png", n))))
			}

			assert.Equal(t, 0, lib.open, "decode handle left open")
		})
	}
}

func TestExtractFramesExistingDestination(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	source := filepath.Join(root, "clip.avi")
	lib.add(source, sequence(3)...)
	destination := filepath.Join(root, "frames")
	require.NoError(t, os.MkdirAll(destination, 0755))

	stats, err := ExtractFrames(context.Background(), svcs, source, destination)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FramesSaved)
}

func TestExtractFramesMissingSource(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	_, err := ExtractFrames(context.Background(), svcs, filepath.Join(root, "missing.avi"), filepath.Join(root, "frames"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoSuchVideo)
}

func TestExtractFramesCancelled(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	source := filepath.Join(root, "clip.avi")
	lib.add(source, sequence(12)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := ExtractFrames(ctx, svcs, source, filepath.Join(root, "frames"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.FramesRead)
	assert.Equal(t, 0, lib.open)
}

func TestExtractFramesUnwritableDestination(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	source := filepath.Join(root, "clip.avi")
	lib.add(source, sequence(2)...)

	// A regular file where the directory should go
	blocker := filepath.Join(root, "frames")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := ExtractFrames(context.Background(), svcs, source, blocker)
	assert.Error(t, err)
}

func TestExtractFramesErrorLogsTrace(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	_, err := ExtractFrames(context.Background(), svcs, filepath.Join(root, "missing.avi"), filepath.Join(root, "frames"))
	require.Error(t, err)

	previous := lgr.Logger
	t.Cleanup(func() {
		lgr.Logger = previous
		slog.SetDefault(previous)
	})

	logFile := filepath.Join(root, "run.log")
	closer := lgr.Init("info", logFile)
	lgr.Logger.Error("run failed", slog.Any("error", err))
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &rec))

	errAttr, ok := rec["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errAttr["msg"], "missing.avi")
	assert.NotEmpty(t, errAttr["trace"])
}
