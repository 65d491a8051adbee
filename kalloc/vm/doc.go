// Package vm provides the backing map service used by the kernel heap.
//
// # Overview
//
// A Map is a contiguous range of virtual addresses [Min, Max) backed by
// anonymous memory. Allocations are page-granular entries carved from the
// range with a first-fit search over a coalescing free-span list. Every
// entry is recorded so that a free call that does not know its size can
// look it up, and so that frees of addresses that were never mapped can be
// reported instead of corrupting the span list.
//
// # Submaps
//
// Submap reserves an entry in a parent map and returns a child Map that
// shares the parent's backing memory. The heap carves its large-allocation
// map, its data map and the zone map out of one root map this way.
//
// # Addresses
//
// Addresses are plain numbers (types.Addr). They are never converted to Go
// pointers; Bytes returns a slice view of the backing memory for a range.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package vm
