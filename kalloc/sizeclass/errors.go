package sizeclass

import "errors"

var (
	// ErrEmpty indicates a ladder with no entries.
	ErrEmpty = errors.New("sizeclass: empty ladder")

	// ErrNotMonotonic indicates two entries out of order or with the same size.
	ErrNotMonotonic = errors.New("sizeclass: ladder not strictly increasing")

	// ErrUnaligned indicates an entry size that is not a multiple of the minimum alignment.
	ErrUnaligned = errors.New("sizeclass: entry size not aligned")

	// ErrVarMax indicates a variable ladder ceiling that is not a power of two >= 64.
	ErrVarMax = errors.New("sizeclass: bad variable ladder ceiling")
)
