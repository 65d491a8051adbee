//go:build windows

package mmap

// Anon allocates a Go-managed buffer. VirtualAlloc-backed maps are not
// needed for the allocator's address model.
func Anon(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}

// Release zeroes b.
func Release(b []byte) { clear(b) }
