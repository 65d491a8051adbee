package kalloc

import (
	"errors"

	"github.com/joshuapare/kheap/internal/format"
	"github.com/joshuapare/kheap/kalloc/vm"
	"github.com/joshuapare/kheap/pkg/types"
)

// LargeStats are the large-path counters.
type LargeStats struct {
	Largest uint64 // largest mapping ever made; starts at the kernmap threshold
	InUse   uint64 // live mappings
	Total   uint64 // live bytes
	Sum     uint64 // bytes ever mapped
	Max     uint64 // high-water mark of Total
}

// LargeStats returns a snapshot of the large-path counters.
func (a *Allocator) LargeStats() LargeStats {
	a.largeMu.Lock()
	defer a.largeMu.Unlock()
	return a.largeStats
}

// FallbackCount returns how many large requests fell back from the large
// map to the fallback map.
func (a *Allocator) FallbackCount() uint64 { return a.fallbacks.Load() }

// allocLarge maps a page-rounded block for size bytes.
func (a *Allocator) allocLarge(h *Heap, size uint64, flags types.Flags) Result {
	if flags&types.NoFail != 0 {
		types.Panicf(types.KindNoFail, "kalloc: NoFail with a large size (%d)", size)
	}
	if flags&types.NoWait != 0 || types.Unmappable(size) {
		return Result{}
	}

	size = format.RoundPage(size, a.cfg.PageSize)
	if size == 0 {
		return Result{}
	}

	m := h.mapForSize(size)
	addr, err := m.Allocate(size, 0)
	if err != nil {
		if m == h.fallback {
			return Result{}
		}
		a.fallbacks.Add(1)
		a.fallbackWarn.Do(func() {
			a.log.Warn("kalloc_large: falling back to the fallback map",
				"heap", h.id.String(), "size", size, "map", m.Name(), "err", err)
		})
		addr, err = h.fallback.Allocate(size, 0)
		if err != nil {
			return Result{}
		}
	}

	a.largeMu.Lock()
	st := &a.largeStats
	if size > st.Largest {
		st.Largest = size
	}
	st.InUse++
	a.largeOwners[addr] = h.id
	st.Total += size
	st.Sum += size
	if st.Total > st.Max {
		st.Max = st.Total
	}
	a.largeMu.Unlock()

	if a.cfg.Ledger != nil {
		a.cfg.Ledger.Debit(size)
	}
	return Result{Addr: addr, Size: size}
}

// freeLarge unmaps a large block. A size of 0 looks up the mapping.
func (a *Allocator) freeLarge(h *Heap, addr types.Addr, size uint64) {
	if !a.root.Contains(addr, size) {
		types.Panicf(types.KindUnowned, "kfree: address range (%s, %d) doesn't belong to the kernel", addr, size)
	}
	a.checkLargeDomain(h, addr, size)
	m := h.guessMap(addr)

	if size != 0 {
		size = format.RoundPage(size, a.cfg.PageSize)
		a.largeMu.Lock()
		largest := a.largeStats.Largest
		a.largeMu.Unlock()
		if size > largest {
			types.Panicf(types.KindSizeConfusion, "kfree: size %d > kalloc_largest_allocated %d", size, largest)
		}
	}
	n, err := m.Free(addr, size)
	switch {
	case errors.Is(err, vm.ErrBadSize):
		types.Panicf(types.KindSizeConfusion, "kfree: %v", err)
	case err != nil:
		types.Panicf(types.KindUnowned, "kfree: address %s not allocated via kalloc: %v", addr, err)
	}

	a.largeMu.Lock()
	delete(a.largeOwners, addr)
	a.largeStats.Total -= n
	a.largeStats.InUse--
	a.largeMu.Unlock()

	if a.cfg.Ledger != nil {
		a.cfg.Ledger.Credit(n)
	}
}
