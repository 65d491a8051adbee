package kalloc

import (
	"fmt"

	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/zone"
	"github.com/joshuapare/kheap/pkg/types"
)

// zoneFor returns the zone serving size in h and the stats to charge. A nil
// zone means the large path. view is the variable descriptor behind the
// request, if any.
func (a *Allocator) zoneFor(h *Heap, view *ktype.Var, size uint64) (*zone.Zone, *zone.Stats) {
	stats := &h.stats
	if view != nil && view.Stats() != nil {
		stats = view.Stats()
	}

	if view != nil && h.id == types.HeapKTVar {
		sub := view.Heap()
		if sub <= 0 || sub >= len(a.varZones) || a.varLadder == nil {
			return nil, stats
		}
		idx, ok := a.varLadder.Index(size)
		if !ok {
			return nil, stats
		}
		return a.varZones[sub][idx], stats
	}

	if h.table == nil {
		types.Panicf(types.KindHeapConfusion, "kalloc: heap %s does not serve untyped allocations", h.id)
	}
	return h.ZoneForSize(size), stats
}

func (a *Allocator) allocExt(h *Heap, view *ktype.Var, size uint64, flags types.Flags) Result {
	z, stats := a.zoneFor(h, view, size)
	if z == nil {
		return a.allocLarge(h, size, flags)
	}
	addr, err := z.Alloc(stats, flags)
	if err != nil {
		return Result{}
	}
	return Result{Addr: addr, Size: z.ElemSize()}
}

// Alloc allocates size bytes from heap. The Result carries the usable size:
// the element size on the pool path, the page-rounded size on the large
// path. Memory is always returned zeroed.
func (a *Allocator) Alloc(heap types.HeapID, size uint64, flags types.Flags) Result {
	return a.allocExt(a.heapFor(heap), nil, size, flags)
}

// AllocE is Alloc returning ErrNoMemory instead of an empty Result.
func (a *Allocator) AllocE(heap types.HeapID, size uint64, flags types.Flags) (Result, error) {
	r := a.Alloc(heap, size, flags)
	if r.Empty() {
		return r, fmt.Errorf("%w: %d bytes from %s", ErrNoMemory, size, heap)
	}
	return r, nil
}

// AllocData allocates from the DataBuffers heap.
func (a *Allocator) AllocData(size uint64, flags types.Flags) Result {
	return a.Alloc(types.HeapDataBuffers, size, flags)
}

// AllocType allocates one instance of the type behind d. Descriptors
// without a zone (unprocessed, or too large for pools) are served by the
// Kext heap by size.
func (a *Allocator) AllocType(d *ktype.Fixed, flags types.Flags) types.Addr {
	z := d.Zone()
	if z == nil {
		return a.allocExt(a.heaps[types.HeapKext], nil, d.Size(), flags).Addr
	}
	addr, err := z.Alloc(d.Stats(), flags)
	if err != nil {
		return 0
	}
	return addr
}

// varHeap picks the heap serving v: DataBuffers for data signatures, Kext
// (alloc) or Any (free) for unprocessed descriptors, KTVar otherwise.
func (a *Allocator) varHeap(v *ktype.Var, free bool) *Heap {
	id := types.HeapKTVar
	if !v.Processed() {
		id = types.HeapKext
		if free {
			id = types.HeapAny
		}
	}
	if ktype.IsData(v) {
		id = types.HeapDataBuffers
	}
	return a.heaps[id]
}

// AllocVar allocates size bytes for the variable type behind v.
func (a *Allocator) AllocVar(v *ktype.Var, size uint64, flags types.Flags) Result {
	return a.allocExt(a.varHeap(v, false), v, size, flags)
}

// AllocVarCount allocates v's header plus count elements. An overflowing
// count fails like any other unmappable request.
func (a *Allocator) AllocVarCount(v *ktype.Var, count uint64, flags types.Flags) Result {
	size, ok := v.AllocSize(count)
	if !ok {
		if flags&types.NoFail != 0 {
			types.Panicf(types.KindNoFail, "kalloc: NoFail with an overflowing count %d for %s", count, v.SiteName())
		}
		return Result{}
	}
	return a.AllocVar(v, size, flags)
}
