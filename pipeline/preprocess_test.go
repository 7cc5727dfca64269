package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/service/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// personOnBright reports a left half person on any frame that is not black
func personOnBright() *inference.FakeService {
	fake := inference.NewFake()
	fake.InferFunc = func(img gocv.Mat) ([]model.Detection, error) {
		if img.GetUCharAt(0, 0) == 0 {
			return nil, nil
		}
		return []model.Detection{{Label: inference.PersonLabel, Confidence: 0.9, Mask: leftHalf()}}, nil
	}
	return fake
}

func TestPreprocessMasksSampledFrames(t *testing.T) {
	lib := newFakeLibrary()
	fake := personOnBright()
	svcs, root := newTestServices(t, lib, fake)

	source := filepath.Join(root, "clip.avi")
	lib.add(source, sequence(13)...)
	destination := filepath.Join(root, "masked")

	stats, err := Preprocess(context.Background(), svcs, source, destination)
	require.NoError(t, err)

	// frames 0, 6 and 12
	assert.Equal(t, 3, stats.Images)
	assert.Equal(t, 2, stats.Persons)
	assert.Equal(t, 1, stats.PassThrough)
	assert.Equal(t, 3, fake.Calls())

	for n, want := range []uint8{0, 60, 120} {
		img := gocv.IMRead(filepath.Join(destination, fmt.Sprintf("frame%d.png", n)), gocv.IMReadColor)
		require.False(t, img.Empty())
		assert.Equal(t, want, img.GetVecbAt(0, 0)[0], "kept side of image %d", n)
		assert.Equal(t, uint8(0), img.GetVecbAt(0, testWidth-1)[0], "masked side of image %d", n)
		img.Close()
	}

	assert.Equal(t, 0, lib.open)
	assert.Equal(t, 1, lib.maxOpen)
}

func TestPreprocessKeepsStackIntact(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, personOnBright())

	source := filepath.Join(root, "clip.avi")
	lib.add(source, sequence(7)...)

	reader, err := NewVideoReader(svcs, source)
	require.NoError(t, err)
	defer reader.Close()

	_, err = Preprocess(context.Background(), svcs, source, filepath.Join(root, "masked"))
	require.NoError(t, err)

	// A separate reader still sees unmasked frames
	stack, err := reader.Stack()
	require.NoError(t, err)
	assert.Equal(t, uint8(60), stack[6].Mat.GetUCharAt(0, (testWidth-1)*bgrChannels))
}

func TestPreprocessInferenceError(t *testing.T) {
	lib := newFakeLibrary()
	fake := inference.NewFake()
	fake.Err = errors.New("model exploded")
	svcs, root := newTestServices(t, lib, fake)

	source := filepath.Join(root, "clip.avi")
	lib.add(source, sequence(3)...)

	stats, err := Preprocess(context.Background(), svcs, source, filepath.Join(root, "masked"))
	assert.ErrorIs(t, err, fake.Err)
	assert.Equal(t, 1, stats.Errors)
	assert.Zero(t, stats.Images)
}

func TestPreprocessWithoutInference(t *testing.T) {
	lib := newFakeLibrary()
	svcs, root := newTestServices(t, lib, nil)

	_, err := Preprocess(context.Background(), svcs, filepath.Join(root, "clip.avi"), filepath.Join(root, "masked"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(root, "masked"))
	assert.True(t, os.IsNotExist(statErr))
}
