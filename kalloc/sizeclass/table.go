package sizeclass

import (
	"fmt"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/pkg/types"
)

const (
	// DLUTSize is the number of direct lookup slots (2048 / MinAlign).
	DLUTSize = 2048 / types.MinAlign

	// DLUTMax is the first size the direct lookup table does not answer.
	DLUTMax = (DLUTSize - 1) * types.MinAlign
)

// dlutIndex returns the direct lookup slot of size: ceil(size / MinAlign).
func dlutIndex(size uint64) uint64 {
	return format.CeilDiv(size, types.MinAlign)
}

// Table is an immutable size-class ladder with its lookup tables.
type Table struct {
	entries     []Entry
	dlut        [DLUTSize]uint8
	zindexStart int
	maxSize     uint64
}

// NewTable validates entries and builds the lookup tables.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	if len(entries) > 255 {
		return nil, fmt.Errorf("sizeclass: %d entries exceed the lookup table range", len(entries))
	}
	for i, e := range entries {
		if e.Size == 0 || !format.IsAligned(e.Size, types.MinAlign) {
			return nil, fmt.Errorf("%w: entry %d size %d", ErrUnaligned, i, e.Size)
		}
		if i > 0 && e.Size <= entries[i-1].Size {
			return nil, fmt.Errorf("%w: entry %d size %d after %d", ErrNotMonotonic, i, e.Size, entries[i-1].Size)
		}
	}

	t := &Table{
		entries: append([]Entry(nil), entries...),
		maxSize: entries[len(entries)-1].Size + 1,
	}

	zindex := 0
	for i := 0; i < DLUTSize; i++ {
		size := uint64(i) * types.MinAlign
		for zindex < len(entries) && entries[zindex].Size < size {
			zindex++
		}
		t.dlut[i] = uint8(zindex)
	}
	t.zindexStart = zindex
	return t, nil
}

// MustTable is NewTable for the built-in ladders. It panics on error.
func MustTable(entries []Entry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		types.Panicf(types.KindConfig, "%v", err)
	}
	return t
}

// Len returns the number of classes.
func (t *Table) Len() int { return len(t.entries) }

// Entry returns class i.
func (t *Table) Entry(i int) Entry { return t.entries[i] }

// Entries returns a copy of the ladder.
func (t *Table) Entries() []Entry { return append([]Entry(nil), t.entries...) }

// MaxSize returns the first size that is not pool sized (last class + 1).
func (t *Table) MaxSize() uint64 { return t.maxSize }

// LastSize returns the largest class size.
func (t *Table) LastSize() uint64 { return t.entries[len(t.entries)-1].Size }

// ScanStart returns the first class index the linear scan starts from.
func (t *Table) ScanStart() int { return t.zindexStart }

// Index returns the class for size. ok is false when size is at or above
// MaxSize and belongs to the large path. Size 0 maps to the first class.
func (t *Table) Index(size uint64) (idx int, ok bool) {
	if size >= t.maxSize {
		return 0, false
	}
	if size < DLUTMax {
		return int(t.dlut[dlutIndex(size)]), true
	}
	idx = t.zindexStart
	for t.entries[idx].Size < size {
		idx++
	}
	return idx, true
}

// ElemSize returns the element size of the class for size.
func (t *Table) ElemSize(size uint64) (uint64, bool) {
	idx, ok := t.Index(size)
	if !ok {
		return 0, false
	}
	return t.entries[idx].Size, true
}

func (t *Table) String() string {
	return fmt.Sprintf("sizeclass.Table(%d classes, max %d)", len(t.entries), t.LastSize())
}
