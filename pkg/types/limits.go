package types

// ============================================================================
// Address space and size limits
// ============================================================================
// These constants bound what the allocator will accept before a request is
// treated as nonsensical rather than merely large.

const (
	// PointerSignificantBits is the number of meaningful bits in a kernel
	// address. Sizes with bits set above this cannot be mapped.
	PointerSignificantBits = 47

	// AbsurdSize is the largest size a free or realloc call may present.
	// Anything larger is a caller bug, not a large allocation.
	AbsurdSize = uint64(1) << (PointerSignificantBits - 1)

	// UnknownSize asks free and realloc to look up the real allocation size.
	UnknownSize = ^uint64(0)

	// MinAlign is the minimum alignment of every allocation (16 bytes).
	MinAlign = 16

	// DefaultPageSize is the page granularity of the backing maps (4 KiB).
	DefaultPageSize = 4 << 10

	// MaxVarHeaps bounds the number of variable-type sub-heaps, including
	// the virtual data heap at index 0.
	MaxVarHeaps = 8
)

// IsAbsurd reports whether size cannot describe any real allocation.
func IsAbsurd(size uint64) bool {
	return size != UnknownSize && size > AbsurdSize
}

// Unmappable reports whether size has bits above the significant address bits.
func Unmappable(size uint64) bool {
	return size>>PointerSignificantBits != 0
}
