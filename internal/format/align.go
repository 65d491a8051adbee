package format

import "math/bits"

// Alignment utilities for allocator sizes and addresses.
// Every alignment passed here must be a power of two.

// Align returns n rounded up to the next multiple of align.
//
// Example:
//
//	Align(1, 16)  = 16
//	Align(16, 16) = 16
//	Align(17, 16) = 32
func Align(n, align uint64) uint64 {
	mask := align - 1
	return (n + mask) &^ mask
}

// Trunc returns n rounded down to a multiple of align.
//
// Example:
//
//	Trunc(4097, 4096) = 4096
//	Trunc(4095, 4096) = 0
func Trunc(n, align uint64) uint64 {
	return n &^ (align - 1)
}

// RoundPage returns n rounded up to the next page boundary.
// Returns 0 when the rounding would overflow.
//
// Example:
//
//	RoundPage(1, 4096)    = 4096
//	RoundPage(4096, 4096) = 4096
//	RoundPage(4097, 4096) = 8192
func RoundPage(n, page uint64) uint64 {
	r := Align(n, page)
	if r < n {
		return 0
	}
	return r
}

// IsAligned reports whether n is a multiple of align.
func IsAligned(n, align uint64) bool {
	return n&(align-1) == 0
}

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Log2Down returns floor(log2(n)). n must be non-zero.
//
// Example:
//
//	Log2Down(32) = 5
//	Log2Down(33) = 5
//	Log2Down(63) = 5
//	Log2Down(64) = 6
func Log2Down(n uint64) uint {
	return uint(63 - bits.LeadingZeros64(n))
}

// CeilDiv returns ceil(n / d).
func CeilDiv(n, d uint64) uint64 {
	return (n + d - 1) / d
}
