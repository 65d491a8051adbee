// Package zone implements the generic fixed-size pool primitive the kernel
// heap configures and calls into.
//
// # Overview
//
// A Zone hands out elements of one element size. Elements are carved from
// chunks (64 KiB by default) mapped from a shared zone map and aligned to the
// chunk size, so the owner of any address is found by truncating it to the
// chunk boundary and consulting the Registry. This gives the heap the two
// capability queries it needs on free: Owner(addr) and ElementSize(addr).
//
// # Free List
//
// Each zone keeps a LIFO free list. Freed elements are cleared before they
// are pushed, so every element handed out reads as zero. A free of an
// element already on the list, of an address that is not an element
// boundary, or of an element owned by a different zone panics with a
// *types.Violation.
//
// # Statistics
//
// Every zone owns a Stats. Callers may pass a private Stats on Alloc/Free
// to account a subset of the traffic separately (per call-site accounting).
package zone
