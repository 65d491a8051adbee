package kalloc

import (
	"github.com/joshuapare/kheap/kalloc/ktype"
	"github.com/joshuapare/kheap/kalloc/zone"
	"github.com/joshuapare/kheap/pkg/types"
)

// BucketSize returns the usable size Alloc(heap, size, ...) would return.
func (a *Allocator) BucketSize(heap types.HeapID, size uint64) uint64 {
	return a.bucketSize(a.heapFor(heap), nil, size)
}

// VarBucketSize is BucketSize for AllocVar(v, size, ...).
func (a *Allocator) VarBucketSize(v *ktype.Var, size uint64) uint64 {
	return a.bucketSize(a.varHeap(v, false), v, size)
}

// AllocSize returns the usable size of the live allocation at addr. It
// panics when addr is owned by no zone or map.
func (a *Allocator) AllocSize(heap types.HeapID, addr types.Addr) uint64 {
	return a.allocSize(a.heapFor(heap), addr)
}

// Bytes returns the n bytes backing [addr, addr+n). The slice aliases
// allocator memory and is valid until the allocation is freed.
func (a *Allocator) Bytes(addr types.Addr, n uint64) ([]byte, error) {
	return a.root.Bytes(addr, n)
}

// Zones returns every zone in creation order.
func (a *Allocator) Zones() []*zone.Zone { return a.zones.Zones() }

// ZoneInfo is a row of Usage.
type ZoneInfo struct {
	Name     string
	Heap     types.HeapID
	ElemSize uint64
	Chunks   int
	Type     bool
	Stats    zone.StatsSnapshot
}

// Usage returns one row per zone.
func (a *Allocator) Usage() []ZoneInfo {
	zs := a.zones.Zones()
	out := make([]ZoneInfo, 0, len(zs))
	for _, z := range zs {
		out = append(out, ZoneInfo{
			Name:     z.FullName(),
			Heap:     z.Heap(),
			ElemSize: z.ElemSize(),
			Chunks:   z.Chunks(),
			Type:     z.KallocType(),
			Stats:    z.Stats().Snapshot(),
		})
	}
	return out
}
