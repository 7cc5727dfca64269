package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestFramesRoot(t *testing.T) {
	assert.Equal(t, filepath.Join("dataset", "HMDB51(frames)"), FramesRoot(filepath.Join("dataset", "HMDB51")+string(filepath.Separator)))
}

func TestExtractDataset(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	collection := filepath.Join(root, "dataset", "HMDB51")
	good := []string{
		filepath.Join(collection, "1", "a.avi"),
		filepath.Join(collection, "1", "b.AVI"),
		filepath.Join(collection, "2", "c.mp4"),
	}
	for _, p := range good {
		touch(t, p)
		lib.add(p, sequence(7)...)
	}

	// On disk but not decodable
	broken := filepath.Join(collection, "2", "broken.avi")
	touch(t, broken)
	// Not a video
	touch(t, filepath.Join(collection, "2", "notes.txt"))
	touch(t, filepath.Join(collection, "README"))

	stats, err := ExtractDataset(context.Background(), svcs, "HMDB51")
	require.NoError(t, err)
	assert.Equal(t, collection, stats.Root)
	assert.Equal(t, 3, stats.Videos)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 6, stats.FramesSaved)

	frames := FramesRoot(collection)
	for _, p := range []string{
		filepath.Join(frames, "1", "a", "frame0.png"),
		filepath.Join(frames, "1", "a", "frame1.png"),
		filepath.Join(frames, "1", "b", "frame1.png"),
		filepath.Join(frames, "2", "c", "frame1.png"),
	} {
		assert.FileExists(t, p)
	}
	assert.NoDirExists(t, filepath.Join(frames, "2", "notes"))

	raw, err := os.ReadFile(filepath.Join(root, "stats", "extractor-stats.json"))
	require.NoError(t, err)
	var persisted []model.ExtractorStats
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Len(t, persisted, 3)

	raw, err = os.ReadFile(filepath.Join(root, "stats", "errors.json"))
	require.NoError(t, err)
	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "dataset_extractor", errs[0]["processor"])
}

func TestExtractDatasetMissingCollection(t *testing.T) {
	lib := newFakeLibrary()
	svcs, _ := newTestServices(t, lib, nil)

	_, err := ExtractDataset(context.Background(), svcs, "nope")
	assert.Error(t, err)
}

func TestExtractDatasetCancelled(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	p := filepath.Join(root, "dataset", "UCF", "run", "x.avi")
	touch(t, p)
	lib.add(p, sequence(3)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := ExtractDataset(ctx, svcs, "UCF")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Videos)
}
