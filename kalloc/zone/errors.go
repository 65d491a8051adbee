package zone

import "errors"

var (
	// ErrExhausted indicates the zone map has no room for another chunk.
	ErrExhausted = errors.New("zone: zone map exhausted")

	// ErrElemSize indicates an element size of zero or larger than a chunk.
	ErrElemSize = errors.New("zone: bad element size")
)
