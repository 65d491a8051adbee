// Package kalloc implements a type-segregated kernel heap on top of the
// zone and vm packages.
//
// # Overview
//
// An Allocator owns four heaps and the maps that back them:
//
//   - Default: untyped allocations and the zones of fixed-type call sites
//   - DataBuffers: allocations that hold no pointers
//   - Kext: call sites that were not classified at boot
//   - KTVar: variable-length typed allocations, split into sub-heaps
//
// Each pool-backed heap binds a size-class ladder (package sizeclass) to one
// zone per class. Requests at or above the ladder ceiling take the large
// path: they are page rounded and mapped from the heap's large map, or from
// its fallback map when the large map is full or the request is at least
// Config.KernmapThreshold bytes.
//
// # Boot
//
// Boot enumerates type descriptors from one or more images and classifies
// them once:
//
//  1. Descriptors larger than any pool are marked for the large path.
//  2. Data-only descriptors are bound to the DataBuffers heap.
//  3. Variable pointer arrays go to the first variable sub-heap.
//  4. The rest are sorted by (class, signature, site), grouped by
//     signature prefix, and spread across per-class type zones whose count
//     comes from the budget policy (package policy). The group-to-zone
//     mapping is shuffled with boot entropy.
//
// Variable descriptors are grouped by exact (type, header) signature and
// each group draws one of the flexible sub-heaps at random.
//
// # Runtime
//
//	a, _ := kalloc.New(kalloc.DefaultConfig())
//	report, _ := a.Boot(img)
//	r := a.Alloc(types.HeapDefault, 40, types.Wait)
//	r = a.Realloc(types.HeapDefault, r.Addr, 40, 4096, types.Zero)
//	a.Free(types.HeapDefault, r.Addr, 4096)
//
// Exhaustion returns an empty Result. Contract violations (freeing through
// the wrong heap, presenting a size larger than the element, a NoFail
// request on the large path) panic with a *Violation.
//
// # Debugging
//
// Set KALLOC_LOG=1 to trace the boot pipeline on stderr. The OptDebug
// option prints the per-class policy table.
package kalloc
