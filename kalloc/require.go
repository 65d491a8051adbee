package kalloc

import (
	"github.com/joshuapare/kheap/pkg/types"
)

// inDataRange reports whether [addr, addr+size) lies in a dedicated data
// map.
func (a *Allocator) inDataRange(addr types.Addr, size uint64) bool {
	if !a.cfg.KernelDataMap {
		return false
	}
	return a.largeDataMap.Contains(addr, size) || a.kernelDataMap.Contains(addr, size)
}

// RequireData panics unless [addr, addr+size) is data-heap memory: an
// element of a DataBuffers zone large enough for size, or (with
// KernelDataMap) a block inside the data maps. Without KernelDataMap large
// blocks are not checked.
func (a *Allocator) RequireData(addr types.Addr, size uint64) {
	if z := a.zones.Owner(addr); z != nil {
		if z.Heap() == types.HeapDataBuffers && size <= z.ElemSize() {
			return
		}
		if z.Heap() != types.HeapDataBuffers {
			types.Panicf(types.KindRequireData, "kalloc_data_require failed: address %s in [%s]", addr, z.FullName())
		}
		types.Panicf(types.KindRequireData, "kalloc_data_require failed: address %s in [%s], size too large %d > %d",
			addr, z.FullName(), size, z.ElemSize())
	}
	if !a.cfg.KernelDataMap || a.inDataRange(addr, size) {
		return
	}
	types.Panicf(types.KindRequireData, "kalloc_data_require failed: address %s not in zone native map", addr)
}

// RequireNonData panics if [addr, addr+size) is data-heap memory, or a zone
// element too small for size.
func (a *Allocator) RequireNonData(addr types.Addr, size uint64) {
	if z := a.zones.Owner(addr); z != nil {
		switch z.Heap() {
		case types.HeapNone:
			if !z.KallocType() {
				break
			}
			fallthrough
		case types.HeapDefault, types.HeapKTVar, types.HeapKext:
			if size <= z.ElemSize() {
				return
			}
			types.Panicf(types.KindRequireNonData, "kalloc_non_data_require failed: address %s in [%s], size too large %d > %d",
				addr, z.FullName(), size, z.ElemSize())
		}
		types.Panicf(types.KindRequireNonData, "kalloc_non_data_require failed: address %s in [%s]", addr, z.FullName())
	}
	if !a.cfg.KernelDataMap || !a.inDataRange(addr, size) {
		return
	}
	types.Panicf(types.KindRequireNonData, "kalloc_non_data_require failed: address %s in the kernel data map", addr)
}
