//go:build !unix && !windows

package mmap

// Anon allocates a Go-managed buffer when mmap is not available.
func Anon(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}

// Release zeroes b.
func Release(b []byte) { clear(b) }
