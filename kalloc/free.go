package kalloc

import (
	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/zone"
	"github.com/joshuapare/kheap/pkg/types"
)

// anyFreeAllows reports whether a domain-agnostic free may release an
// element of a zone in heap.
func (a *Allocator) anyFreeAllows(heap types.HeapID) bool {
	switch heap {
	case types.HeapDefault, types.HeapKTVar, types.HeapKext:
		return true
	case types.HeapDataBuffers:
		return a.cfg.Options&OptLooseFree != 0
	default:
		return false
	}
}

func heapLabel(h *Heap) string {
	if h.id == types.HeapAny {
		return "any (default/kext)"
	}
	return h.id.String()
}

func heapConfusion(h *Heap, addr types.Addr, size uint64, z *zone.Zone) {
	if z.KallocType() {
		types.Panicf(types.KindHeapConfusion, "kfree: addr %s found in kalloc type zone '%s' but being freed to %s heap",
			addr, z.Name(), heapLabel(h))
	}
	if z.Heap() == types.HeapNone {
		types.Panicf(types.KindHeapConfusion, "kfree: addr %s, size %d found in regular zone '%s'",
			addr, size, z.FullName())
	}
	types.Panicf(types.KindHeapConfusion, "kfree: addr %s, size %d found in heap %s* instead of %s*",
		addr, size, z.Heap(), heapLabel(h))
}

// agnostic reports whether frees through h accept elements of other heaps.
func agnostic(h *Heap) bool {
	return h.id == types.HeapAny || h.id == types.HeapKTVar
}

// checkDomain panics unless zone element addr may be released or resized
// through h.
func (a *Allocator) checkDomain(h *Heap, addr types.Addr, size uint64, z *zone.Zone) {
	if agnostic(h) {
		if !a.anyFreeAllows(z.Heap()) {
			heapConfusion(h, addr, size, z)
		}
		return
	}
	if z.Heap() != h.id {
		heapConfusion(h, addr, size, z)
	}
}

// checkLargeDomain panics unless the large block at addr was mapped for a
// heap h may release.
func (a *Allocator) checkLargeDomain(h *Heap, addr types.Addr, size uint64) {
	a.largeMu.Lock()
	owner, ok := a.largeOwners[addr]
	a.largeMu.Unlock()
	if !ok {
		return
	}
	if agnostic(h) {
		if !a.anyFreeAllows(owner) {
			types.Panicf(types.KindHeapConfusion, "kfree: addr %s, size %d mapped for heap %s cannot be freed to %s heap",
				addr, size, owner, heapLabel(h))
		}
		return
	}
	if owner != h.id {
		types.Panicf(types.KindHeapConfusion, "kfree: addr %s, size %d mapped for heap %s* instead of %s*",
			addr, size, owner, heapLabel(h))
	}
}

// freeExt releases addr through h. size may be types.UnknownSize.
func (a *Allocator) freeExt(h *Heap, view *ktype.Var, addr types.Addr, size uint64) {
	// Variable descriptors without a sub-heap were redirected to the VM.
	if view != nil && h.id == types.HeapKTVar && view.Heap() <= 0 {
		if size == types.UnknownSize {
			size = 0
		}
		a.freeLarge(h, addr, size)
		return
	}

	if size >= a.kallocMax && size != types.UnknownSize {
		a.freeLarge(h, addr, size)
		return
	}

	zsize, z := a.zones.ElementSize(addr)
	if size == types.UnknownSize {
		if zsize == 0 {
			a.freeLarge(h, addr, 0)
			return
		}
		size = zsize
	} else if size > zsize || z == nil {
		if z == nil {
			types.Panicf(types.KindSizeConfusion, "kfree: addr %s, size %d not found in any zone", addr, size)
		}
		types.Panicf(types.KindSizeConfusion, "kfree: addr %s, size %d found in zone '%s' with elem_size %d",
			addr, size, z.FullName(), zsize)
	}

	a.checkDomain(h, addr, size, z)
	stats := &h.stats
	if agnostic(h) {
		stats = &a.heaps[z.Heap()].stats
	}
	if view != nil && view.Stats() != nil {
		stats = view.Stats()
	}

	// Zone.Free clears the element before it is reused.
	z.Free(addr, stats)
}

func checkFreeSize(addr types.Addr, size uint64) {
	if types.IsAbsurd(size) {
		types.Panicf(types.KindInvalidSize, "kfree: addr %s trying to free with nonsensical size %d", addr, size)
	}
}

// Free releases an allocation of size bytes made from heap. Freeing the nil
// address is a no-op. Use HeapAny when the heap is not known.
func (a *Allocator) Free(heap types.HeapID, addr types.Addr, size uint64) {
	if addr.IsNil() {
		return
	}
	checkFreeSize(addr, size)
	a.freeExt(a.heapFor(heap), nil, addr, size)
}

// FreeAddr releases an allocation whose size is not known.
func (a *Allocator) FreeAddr(heap types.HeapID, addr types.Addr) {
	if addr.IsNil() {
		return
	}
	a.freeExt(a.heapFor(heap), nil, addr, types.UnknownSize)
}

// FreeAny releases an allocation from the Default, Kext or KTVar heaps (and
// DataBuffers under OptLooseFree) without naming the heap.
func (a *Allocator) FreeAny(addr types.Addr, size uint64) {
	a.Free(types.HeapAny, addr, size)
}

// FreeData releases a DataBuffers allocation.
func (a *Allocator) FreeData(addr types.Addr, size uint64) {
	a.Free(types.HeapDataBuffers, addr, size)
}

// FreeBounded releases addr after checking that its element size lies in
// [minSize, element size of the class serving maxSize].
func (a *Allocator) FreeBounded(heap types.HeapID, addr types.Addr, minSize, maxSize uint64) {
	if addr.IsNil() {
		return
	}
	if minSize > maxSize {
		types.Panicf(types.KindBounds, "kfree: bounds [%d - %d] are inverted", minSize, maxSize)
	}
	h := a.heapFor(heap)
	maxZone, _ := a.zoneFor(h, nil, maxSize)
	if maxZone == nil {
		types.Panicf(types.KindBounds, "kfree: bound %d is not served by a zone of heap %s", maxSize, h.id)
	}
	elem, _ := a.zones.ElementSize(addr)
	if elem > maxZone.ElemSize() || elem < minSize {
		types.Panicf(types.KindBounds, "kfree: addr %s has size %d, not in specified bounds [%d - %d]",
			addr, elem, minSize, maxZone.ElemSize())
	}
	a.freeExt(h, nil, addr, types.UnknownSize)
}

// FreeType releases an instance allocated with AllocType(d).
func (a *Allocator) FreeType(d *ktype.Fixed, addr types.Addr) {
	z := d.Zone()
	if z == nil {
		a.Free(types.HeapKext, addr, d.Size())
		return
	}
	if addr.IsNil() {
		return
	}
	z.Free(addr, d.Stats())
}

// FreeVar releases size bytes allocated with AllocVar(v, ...).
func (a *Allocator) FreeVar(v *ktype.Var, addr types.Addr, size uint64) {
	if addr.IsNil() {
		return
	}
	checkFreeSize(addr, size)
	a.freeExt(a.varHeap(v, true), v, addr, size)
}
