package model

import (
	"golang.org/x/xerrors"
)

var ErrMaskSize = xerrors.New("mask dimensions do not match")

// Mask is a per-pixel membership grid. Pixels are stored row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

func NewMask(width, height int) Mask {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// NewFullMask returns a mask with every pixel set
func NewFullMask(width, height int) Mask {
	m := NewMask(width, height)
	for i := range m.Pix {
		m.Pix[i] = true
	}
	return m
}

func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

func (m Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of set pixels
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Empty is true when no pixel is set. A zero-size mask is empty too.
func (m Mask) Empty() bool {
	for _, v := range m.Pix {
		if v {
			return false
		}
	}
	return true
}

// Valid is true when Pix holds exactly Width*Height pixels
func (m Mask) Valid() bool {
	return m.Width >= 0 && m.Height >= 0 && len(m.Pix) == m.Width*m.Height
}

func (m Mask) SameSize(other Mask) bool {
	return m.Valid() && other.Valid() && m.Width == other.Width && m.Height == other.Height
}

// Union ORs other into m. Overlapping pixels stay set once.
func (m Mask) Union(other Mask) error {
	if !m.SameSize(other) {
		return xerrors.Errorf("union %dx%d with %dx%d: %w", m.Width, m.Height, other.Width, other.Height, ErrMaskSize)
	}

	for i, v := range other.Pix {
		if v {
			m.Pix[i] = true
		}
	}

	return nil
}

// UnionAll ORs all masks into a fresh width x height mask
func UnionAll(width, height int, masks ...Mask) (Mask, error) {
	union := NewMask(width, height)
	for _, m := range masks {
		if err := union.Union(m); err != nil {
			return Mask{}, err
		}
	}
	return union, nil
}
