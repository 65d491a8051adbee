// Package sizeclass holds the size-class ladders of the kernel heap and the
// lookup tables that map a request size to a class.
//
// # Overview
//
// A Table wraps an ordered ladder of Entry values. Sizes below DLUTMax are
// resolved through a direct lookup table indexed by ceil(size/16); larger
// sizes scan the ladder upward from the first index the direct table cannot
// answer. Sizes at or above MaxSize (last class + 1) are not pool sized and
// belong to the large-allocation path.
//
// # Ladders
//
// Default is the ladder of the default and kext heaps:
//
//	16 32 48 64 80 96 128 160 192 224 256 288 368 400 512 576
//	768 1024 1152 1280 1664 2048 4096 6144 8192 16384 32768
//
// Data is the ladder of the data-buffers heap:
//
//	16 32 48 64 96 128 160 192 256 368 512 768 1024 1152 1664
//	2048 4096 6144 8192 16384 32768
//
// VarLadder is the denser ladder of the variable-type heap: 16, 32, then
// two steps per power of two (48 64, 96 128, 192 256, ...) up to 32768.
package sizeclass
