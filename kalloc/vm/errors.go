package vm

import "errors"

var (
	// ErrNoSpace indicates that no free span large enough was found.
	ErrNoSpace = errors.New("vm: map exhausted")

	// ErrNotAllocated indicates the address is not the start of any entry.
	ErrNotAllocated = errors.New("vm: address not allocated in map")

	// ErrInsideEntry indicates the address falls inside an entry but not at its start.
	ErrInsideEntry = errors.New("vm: address inside an entry")

	// ErrOutOfRange indicates the address range is outside the map.
	ErrOutOfRange = errors.New("vm: address range outside map")

	// ErrBadSize indicates a zero, unaligned or overflowing size.
	ErrBadSize = errors.New("vm: bad size")

	// ErrBadAlign indicates an alignment that is not a power-of-two multiple of the page size.
	ErrBadAlign = errors.New("vm: bad alignment")
)
