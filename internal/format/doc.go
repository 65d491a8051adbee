// Package format holds the arithmetic shared by the allocator layers:
// power-of-two alignment, page rounding, log2 and human-readable sizes.
package format
