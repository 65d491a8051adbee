package kalloc

import (
	"fmt"

	"github.com/joshuapare/kheap/kalloc/sizeclass"
	"github.com/joshuapare/kheap/kalloc/vm"
	"github.com/joshuapare/kheap/kalloc/zone"
	"github.com/joshuapare/kheap/pkg/types"
)

// Heap is one allocation domain. Heaps are created by New and live as long
// as their Allocator.
type Heap struct {
	id       types.HeapID
	table    *sizeclass.Table // nil for KTVar and Any
	zones    []*zone.Zone     // one per table class
	large    *vm.Map
	fallback *vm.Map
	stats    zone.Stats // untyped traffic through this heap

	kernmap uint64 // requests at or above go straight to fallback
}

// ID returns the heap identity.
func (h *Heap) ID() types.HeapID { return h.id }

// Table returns the size-class ladder, nil for heaps without own zones.
func (h *Heap) Table() *sizeclass.Table { return h.table }

// Zones returns the class zones in ladder order.
func (h *Heap) Zones() []*zone.Zone { return append([]*zone.Zone(nil), h.zones...) }

// LargeMap returns the map large requests are served from first.
func (h *Heap) LargeMap() *vm.Map { return h.large }

// FallbackMap returns the map used above the kernmap threshold and when
// the large map is full.
func (h *Heap) FallbackMap() *vm.Map { return h.fallback }

// Stats returns the heap's shared counters.
func (h *Heap) Stats() *zone.Stats { return &h.stats }

// ZoneForSize returns the zone serving size, or nil when size belongs to
// the large path.
func (h *Heap) ZoneForSize(size uint64) *zone.Zone {
	if h.table == nil {
		return nil
	}
	idx, ok := h.table.Index(size)
	if !ok {
		return nil
	}
	return h.zones[idx]
}

// mapForSize picks the large map below the kernmap threshold.
func (h *Heap) mapForSize(size uint64) *vm.Map {
	if size < h.kernmap {
		return h.large
	}
	return h.fallback
}

// guessMap picks the map a large address was most likely served from.
func (h *Heap) guessMap(addr types.Addr) *vm.Map {
	if h.large.Contains(addr, 1) {
		return h.large
	}
	return h.fallback
}

func (h *Heap) String() string {
	return fmt.Sprintf("heap(%s, %d zones, large=%s)", h.id, len(h.zones), h.large.Name())
}
