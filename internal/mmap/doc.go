// Package mmap provides platform-specific helpers for anonymous memory used
// as the backing store of allocator maps.
//
// On Unix the memory comes from a private anonymous mapping and released
// ranges are returned to the OS with madvise(MADV_DONTNEED). Elsewhere a
// plain Go buffer is used and released ranges are cleared.
package mmap
