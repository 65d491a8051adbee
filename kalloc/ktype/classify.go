package ktype

// Class is the routing decision for a descriptor.
type Class uint8

const (
	// Mixed descriptors need type-segregated pools.
	Mixed Class = iota
	// VMRedirect descriptors are larger than any pool.
	VMRedirect
	// DataOnly descriptors go to the data-buffers heap.
	DataOnly
	// PointerArray descriptors go to the variable pointer-array heap.
	PointerArray
)

func (c Class) String() string {
	switch c {
	case Mixed:
		return "mixed"
	case VMRedirect:
		return "vm"
	case DataOnly:
		return "data"
	case PointerArray:
		return "ptr_array"
	default:
		return "unknown"
	}
}

// IsData reports whether every signature of d is data or padding, or d
// carries an authoritative data flag.
func IsData(d Descriptor) bool {
	if f := d.Flags(); f&FlagChanged != 0 {
		return f&FlagDataOnly != 0
	}
	for _, s := range d.Signatures() {
		if !s.IsData() {
			return false
		}
	}
	return true
}

// IsPointerArray reports whether every signature of d is made of pointers.
func IsPointerArray(d Descriptor) bool {
	if f := d.Flags(); f&FlagChanged != 0 {
		return f&FlagPtrArray != 0
	}
	for _, s := range d.Signatures() {
		if !s.IsPointerArray() {
			return false
		}
	}
	return true
}

// FromVM reports whether d is too large for pools of at most maxSize bytes.
func FromVM(d Descriptor, maxSize uint64) bool {
	if f := d.Flags(); f&FlagChanged != 0 {
		return f&FlagVM != 0
	}
	return d.Size() > maxSize
}

// Classify routes d. maxSize is the largest pool element size; variable
// selects the variable-heap rules (pointer arrays are only recognized there).
// Classify is pure and does not touch d.
func Classify(d Descriptor, maxSize uint64, variable bool) Class {
	switch {
	case FromVM(d, maxSize):
		return VMRedirect
	case IsData(d):
		return DataOnly
	case variable && IsPointerArray(d):
		return PointerArray
	default:
		return Mixed
	}
}

// FlagFor returns the descriptor flag recording class c.
func FlagFor(c Class) Flags {
	switch c {
	case VMRedirect:
		return FlagVM
	case DataOnly:
		return FlagDataOnly
	case PointerArray:
		return FlagPtrArray
	default:
		return 0
	}
}
