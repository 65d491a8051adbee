// Package types defines the small value types shared by every layer of the
// kernel heap: addresses, allocation flags, heap identities and the
// violation value used when a caller breaks the allocator's contract.
//
// Design goals:
//   - Small, copyable values (Addr, Flags, HeapID) instead of handles to objects.
//   - Typed violations with stable kinds so tests can branch on intent rather than text.
//   - No allocator state lives here.
//
// This package has no dependencies beyond the standard library.
package types
