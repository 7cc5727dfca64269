package pipeline

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/khaledhikmat/vs-prep/service/config"
	"github.com/khaledhikmat/vs-prep/service/data"
	"github.com/khaledhikmat/vs-prep/service/inference"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const (
	testWidth  = 8
	testHeight = 6
)

var errNoSuchVideo = errors.New("no such video")

// fakeVideo decodes solid gray frames, one per value
type fakeVideo struct {
	lib    *fakeLibrary
	values []uint8
	pos    int
	closed bool
}

func (v *fakeVideo) Read(m *gocv.Mat) bool {
	if v.closed || v.pos >= len(v.values) {
		return false
	}

	val := float64(v.values[v.pos])
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(val, val, val, 0), testHeight, testWidth, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.CopyTo(m)

	v.pos++
	v.lib.mu.Lock()
	v.lib.decoded++
	v.lib.mu.Unlock()
	return true
}

func (v *fakeVideo) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true

	v.lib.mu.Lock()
	defer v.lib.mu.Unlock()
	v.lib.open--
	return nil
}

// fakeLibrary serves fake videos by path and counts decode side effects
type fakeLibrary struct {
	mu      sync.Mutex
	videos  map[string][]uint8
	opens   int
	open    int
	maxOpen int
	decoded int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		videos: map[string][]uint8{},
	}
}

func (l *fakeLibrary) add(path string, values ...uint8) {
	l.videos[path] = values
}

func (l *fakeLibrary) Open(source string) (Decoder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	values, ok := l.videos[source]
	if !ok {
		return nil, errNoSuchVideo
	}

	l.opens++
	l.open++
	if l.open > l.maxOpen {
		l.maxOpen = l.open
	}

	return &fakeVideo{lib: l, values: values}, nil
}

func alternating(n int) []uint8 {
	values := make([]uint8, n)
	for i := range values {
		if i%2 == 1 {
			values[i] = 255
		}
	}
	return values
}

// sequence gives frame i the gray value i*10 so saved images can be traced back
func sequence(n int) []uint8 {
	values := make([]uint8, n)
	for i := range values {
		values[i] = uint8(i * 10)
	}
	return values
}

func newTestServices(t *testing.T, lib *fakeLibrary, inferenceSvc inference.IService) (ServicesFactory, string) {
	t.Helper()

	root := t.TempDir()
	cfgSvc, err := config.NewWithSettings(config.Settings{
		SourceRoot:          root,
		DatasetRoot:         filepath.Join(root, "dataset"),
		StatsFolder:         filepath.Join(root, "stats"),
		FrameSampleInterval: 6,
		FrameFilePrefix:     "frame",
		// Lossless so pixel values survive the round trip
		FrameFileExt: ".png",
	})
	require.NoError(t, err)

	return ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      data.NewFilesDB(cfgSvc),
		InferenceSvc: inferenceSvc,
		Opener:       lib.Open,
	}, root
}

func grayAt(t *testing.T, path string) uint8 {
	t.Helper()

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	require.False(t, img.Empty(), "could not read %s", path)
	return img.GetUCharAt(0, 0)
}
