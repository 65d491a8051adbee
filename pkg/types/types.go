package types

import (
	"fmt"
	"strings"
)

// Addr is an address inside one of the allocator's backing maps. The zero
// value means "no allocation".
type Addr uint64

// IsNil reports whether a is the empty address.
func (a Addr) IsNil() bool { return a == 0 }

// Add returns a+off.
func (a Addr) Add(off uint64) Addr { return a + Addr(off) }

func (a Addr) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// Flags modify a single allocation request.
type Flags uint32

const (
	// Wait is the default: the request may block while a map grows.
	Wait Flags = 0

	// NoWait fails instead of blocking. On the large path any request with
	// NoWait returns an empty result.
	NoWait Flags = 1 << iota
	// Zero zero-fills the returned memory.
	Zero
	// NoFail promises the request cannot fail. Only valid for pool-backed sizes.
	NoFail
	// ReallocF frees the original block when a reallocation fails.
	ReallocF
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask && mask != 0 }

func (f Flags) String() string {
	if f == Wait {
		return "Wait"
	}
	var parts []string
	names := []struct {
		bit  Flags
		name string
	}{
		{NoWait, "NoWait"},
		{Zero, "Zero"},
		{NoFail, "NoFail"},
		{ReallocF, "ReallocF"},
	}
	for _, n := range names {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// HeapID identifies an allocation domain.
type HeapID uint8

const (
	// HeapNone marks zones that belong to no kalloc heap (plain type zones).
	HeapNone HeapID = iota
	// HeapDefault serves untyped and fixed-type allocations.
	HeapDefault
	// HeapDataBuffers serves allocations that contain no pointers.
	HeapDataBuffers
	// HeapKext serves call sites that were not classified at boot.
	HeapKext
	// HeapKTVar serves variable-length typed allocations.
	HeapKTVar
	// HeapAny is the domain-agnostic free entry point. No zone carries it.
	HeapAny
)

var heapNames = [...]string{
	HeapNone:        "none",
	HeapDefault:     "default",
	HeapDataBuffers: "data",
	HeapKext:        "kext",
	HeapKTVar:       "kt_var",
	HeapAny:         "any",
}

func (h HeapID) String() string {
	if int(h) < len(heapNames) {
		return heapNames[h]
	}
	return fmt.Sprintf("heap(%d)", uint8(h))
}

// Prefix returns the string prepended to zone names in diagnostics
// ("default.", "data.", "kext."). Heaps without a prefix return "".
func (h HeapID) Prefix() string {
	switch h {
	case HeapDefault, HeapDataBuffers, HeapKext:
		return heapNames[h] + "."
	default:
		return ""
	}
}

// ParseHeapID maps a heap name back to its ID.
func ParseHeapID(s string) (HeapID, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	for id, name := range heapNames {
		if name == s {
			return HeapID(id), nil
		}
	}
	return HeapNone, fmt.Errorf("types: unknown heap %q", s)
}
