package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskUnionNonOverlapping(t *testing.T) {
	a := NewMask(4, 2)
	b := NewMask(4, 2)
	a.Set(0, 0, true)
	a.Set(1, 0, true)
	b.Set(2, 1, true)
	b.Set(3, 1, true)

	union, err := UnionAll(4, 2, a, b)
	require.NoError(t, err)

	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, a.At(x, y) || b.At(x, y), union.At(x, y), "pixel %d,%d", x, y)
		}
	}
	assert.Equal(t, 4, union.Count())
}

func TestMaskUnionOverlappingCountsOnce(t *testing.T) {
	a := NewFullMask(3, 3)
	b := NewFullMask(3, 3)

	union, err := UnionAll(3, 3, a, b)
	require.NoError(t, err)
	assert.Equal(t, 9, union.Count())
	assert.Len(t, union.Pix, 9)
}

func TestMaskUnionSizeMismatch(t *testing.T) {
	a := NewMask(3, 3)
	b := NewMask(2, 3)

	err := a.Union(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaskSize))
}

func TestMaskEmpty(t *testing.T) {
	tests := []struct {
		name  string
		mask  Mask
		empty bool
	}{
		{"zero size", Mask{}, true},
		{"all clear", NewMask(5, 5), true},
		{"all set", NewFullMask(5, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.mask.Empty())
		})
	}
}

func TestMaskAtOutOfBounds(t *testing.T) {
	m := NewFullMask(2, 2)
	assert.False(t, m.At(-1, 0))
	assert.False(t, m.At(2, 0))
	assert.False(t, m.At(0, 2))

	// Writes outside the grid are ignored
	m.Set(5, 5, false)
	assert.Equal(t, 4, m.Count())
}

func TestGenError(t *testing.T) {
	inner := errors.New("boom")
	err := GenError("frame_extractor", inner, map[string]interface{}{"frame": 3}, "error writing frame %d", 3)

	assert.Equal(t, "frame_extractor", err.Processor)
	assert.Equal(t, "error writing frame 3", err.Message)
	assert.NotEmpty(t, err.StackTrace)
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "boom")
}

func TestMaskValid(t *testing.T) {
	assert.True(t, NewMask(3, 2).Valid())
	assert.True(t, Mask{}.Valid())
	assert.False(t, Mask{Width: 3, Height: 2, Pix: make([]bool, 5)}.Valid())
	assert.False(t, Mask{Width: 3, Height: 2, Pix: make([]bool, 7)}.Valid())

	// A malformed mask cannot be merged
	union := NewMask(3, 2)
	err := union.Union(Mask{Width: 3, Height: 2, Pix: make([]bool, 7)})
	assert.ErrorIs(t, err, ErrMaskSize)
}
