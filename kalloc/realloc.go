package kalloc

import (
	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/pkg/types"
)

// bucketSize returns the usable size a request of size bytes would get.
func (a *Allocator) bucketSize(h *Heap, view *ktype.Var, size uint64) uint64 {
	if z, _ := a.zoneFor(h, view, size); z != nil {
		return z.ElemSize()
	}
	return format.RoundPage(size, h.mapForSize(size).PageSize())
}

// allocSize returns the usable size of the live allocation at addr.
func (a *Allocator) allocSize(h *Heap, addr types.Addr) uint64 {
	if size, _ := a.zones.ElementSize(addr); size != 0 {
		return size
	}
	size, err := h.guessMap(addr).LookupSize(addr)
	if err != nil {
		types.Panicf(types.KindUnowned, "kalloc: address %s not allocated via kalloc: %v", addr, err)
	}
	return size
}

func (a *Allocator) reallocExt(h *Heap, view *ktype.Var, addr types.Addr, oldSize, newSize uint64, flags types.Flags) Result {
	if newSize == 0 {
		if !addr.IsNil() {
			a.freeExt(h, view, addr, oldSize)
		}
		return Result{}
	}
	if addr.IsNil() {
		return a.allocExt(h, view, newSize, flags)
	}

	newBucket := a.bucketSize(h, view, newSize)
	var oldBucket uint64
	switch {
	case oldSize == types.UnknownSize:
		oldSize = a.allocSize(h, addr)
		oldBucket = oldSize
	case oldSize < a.kallocMax:
		oldBucket, _ = a.zones.ElementSize(addr)
	default:
		oldBucket = format.RoundPage(oldSize, h.mapForSize(oldSize).PageSize())
	}
	minSize := min(oldSize, newSize)

	var kr Result
	if oldBucket == newBucket {
		// The block stays in place but must still belong to h.
		if z := a.zones.Owner(addr); z != nil {
			a.checkDomain(h, addr, oldSize, z)
		} else {
			a.checkLargeDomain(h, addr, oldSize)
		}
		kr = Result{Addr: addr, Size: newBucket}
	} else {
		kr = a.allocExt(h, view, newSize, flags&^types.Zero)
		if !kr.Empty() {
			a.copyBytes(kr.Addr, addr, minSize)
		}
		if !kr.Empty() || flags&types.ReallocF != 0 {
			a.freeExt(h, view, addr, oldSize)
		}
		if kr.Empty() {
			return kr
		}
	}

	if flags&types.Zero != 0 && kr.Size > minSize {
		a.zeroBytes(kr.Addr.Add(minSize), kr.Size-minSize)
	}
	return kr
}

func checkReallocSize(addr types.Addr, size uint64) {
	if types.IsAbsurd(size) {
		types.Panicf(types.KindInvalidSize, "krealloc: addr %s trying to free with nonsensical size %d", addr, size)
	}
}

// Realloc resizes the allocation at addr from oldSize (or
// types.UnknownSize) to newSize. A request landing in the same bucket
// returns the same address. Otherwise a new block is allocated, the first
// min(oldSize, newSize) bytes are copied and the old block is freed. When
// the new allocation fails the old block survives unless ReallocF is set.
// With Zero, bytes past min(oldSize, newSize) read as zero.
func (a *Allocator) Realloc(heap types.HeapID, addr types.Addr, oldSize, newSize uint64, flags types.Flags) Result {
	checkReallocSize(addr, oldSize)
	return a.reallocExt(a.heapFor(heap), nil, addr, oldSize, newSize, flags)
}

// ReallocVar is Realloc for an allocation made with AllocVar(v, ...).
func (a *Allocator) ReallocVar(v *ktype.Var, addr types.Addr, oldSize, newSize uint64, flags types.Flags) Result {
	checkReallocSize(addr, oldSize)
	return a.reallocExt(a.varHeap(v, false), v, addr, oldSize, newSize, flags)
}

func (a *Allocator) copyBytes(dst, src types.Addr, n uint64) {
	if n == 0 {
		return
	}
	d, err := a.root.Bytes(dst, n)
	if err != nil {
		types.Panicf(types.KindUnowned, "krealloc: %v", err)
	}
	s, err := a.root.Bytes(src, n)
	if err != nil {
		types.Panicf(types.KindUnowned, "krealloc: %v", err)
	}
	copy(d, s)
}

func (a *Allocator) zeroBytes(addr types.Addr, n uint64) {
	b, err := a.root.Bytes(addr, n)
	if err != nil {
		types.Panicf(types.KindUnowned, "krealloc: %v", err)
	}
	clear(b)
}
