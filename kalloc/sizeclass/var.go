package sizeclass

import (
	"fmt"

	"github.com/joshuapare/kheap/internal/format"
)

const (
	varStartSize = 32
	varStartIdx  = 5 // log2(varStartSize)
	varFirstStep = 16
)

// VarLadder is the ladder of the variable-type heap.
type VarLadder struct {
	sizes []uint64
}

// NewVarLadder builds the variable ladder up to max, which must be a power
// of two of at least 64.
func NewVarLadder(max uint64) (*VarLadder, error) {
	if !format.IsPow2(max) || max < 2*varStartSize {
		return nil, fmt.Errorf("%w: %d", ErrVarMax, max)
	}
	sizes := []uint64{16, varStartSize}
	step := uint64(varFirstStep)
	for sizes[len(sizes)-1] < max {
		last := sizes[len(sizes)-1]
		sizes = append(sizes, last+step, last+2*step)
		step *= 2
	}
	return &VarLadder{sizes: sizes}, nil
}

// Len returns the number of classes.
func (v *VarLadder) Len() int { return len(v.sizes) }

// Size returns the element size of class i.
func (v *VarLadder) Size(i int) uint64 { return v.sizes[i] }

// Sizes returns a copy of the ladder.
func (v *VarLadder) Sizes() []uint64 { return append([]uint64(nil), v.sizes...) }

// Max returns the largest class size.
func (v *VarLadder) Max() uint64 { return v.sizes[len(v.sizes)-1] }

// Index returns the class for size, or false above Max.
func (v *VarLadder) Index(size uint64) (int, bool) {
	if size > v.Max() {
		return 0, false
	}
	if size <= 16 {
		return 0, true
	}
	if size <= varStartSize {
		return 1, true
	}
	idx := format.Log2Down(size)
	pow2 := uint64(1) << idx
	step := pow2 / 2
	zid := 1 + int(idx-varStartIdx)*2
	switch {
	case size == pow2:
		return zid, true
	case size <= pow2+step:
		return zid + 1, true
	default:
		return zid + 2, true
	}
}
