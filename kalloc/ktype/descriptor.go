package ktype

import (
	"fmt"
	"strings"

	"github.com/joshuapare/kheap/kalloc/zone"
)

// Flags record what is known about a descriptor.
type Flags uint32

const (
	FlagSlid      Flags = 1 << iota // signature and name were relocated by the image slide
	FlagProcessed                   // classified by the boot pipeline
	FlagDataOnly                    // all granules are data or padding
	FlagPtrArray                    // all granules are pointers
	FlagVM                          // too large for pools; served by the large path
	FlagPrivAcct                    // allocations counted in private stats
	FlagChanged                     // DataOnly/PtrArray/VM were set by the producer and are authoritative
	FlagDefault                     // site carries no explicit accounting tag
)

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagSlid, "slid"},
	{FlagProcessed, "processed"},
	{FlagDataOnly, "data_only"},
	{FlagPtrArray, "ptr_array"},
	{FlagVM, "vm"},
	{FlagPrivAcct, "priv_acct"},
	{FlagChanged, "changed"},
	{FlagDefault, "default"},
}

func (f Flags) String() string {
	var parts []string
	for _, n := range flagNames {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseFlag maps a flag name ("priv_acct") to its bit.
func ParseFlag(name string) (Flags, error) {
	for _, n := range flagNames {
		if n.name == name {
			return n.bit, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown flag %q", ErrBadDescriptor, name)
}

// Descriptor is what the boot pipeline needs from a call-site descriptor.
type Descriptor interface {
	// SiteName identifies the call site.
	SiteName() string
	// Signature is the grouping key's primary signature.
	Signature() Signature
	// Signatures returns every signature that must pass a classification check.
	Signatures() []Signature
	// Size is the size used for VM redirection.
	Size() uint64
	// Flags returns the current flags.
	Flags() Flags
	// MarkProcessed sets FlagProcessed and reports whether it was clear.
	MarkProcessed() bool
	// AddFlags records facts learned during classification.
	AddFlags(f Flags)
}

// Fixed describes a call site allocating one fixed-size type.
type Fixed struct {
	Name  string
	Sz    uint64
	Sig   Signature
	Flag  Flags
	Class int // size-class index once processed

	zone  *zone.Zone
	stats *zone.Stats
}

// NewFixed returns a fixed descriptor. sig is parsed with ParseSignature.
func NewFixed(name string, size uint64, sig string, flags Flags) (*Fixed, error) {
	s, err := ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	if name == "" || size == 0 {
		return nil, fmt.Errorf("%w: fixed %q size %d", ErrBadDescriptor, name, size)
	}
	return &Fixed{Name: name, Sz: size, Sig: s, Flag: flags}, nil
}

func (f *Fixed) SiteName() string        { return f.Name }
func (f *Fixed) Signature() Signature    { return f.Sig }
func (f *Fixed) Signatures() []Signature { return []Signature{f.Sig} }
func (f *Fixed) Size() uint64            { return f.Sz }
func (f *Fixed) Flags() Flags            { return f.Flag }

// MarkProcessed sets FlagProcessed and reports whether it was clear.
func (f *Fixed) MarkProcessed() bool {
	if f.Flag&FlagProcessed != 0 {
		return false
	}
	f.Flag |= FlagProcessed
	return true
}

// AddFlags sets the bits of fl.
func (f *Fixed) AddFlags(fl Flags) { f.Flag |= fl }

// Processed reports whether the boot pipeline has seen f.
func (f *Fixed) Processed() bool { return f.Flag&FlagProcessed != 0 }

// Zone returns the resolved zone, nil when unprocessed or VM redirected.
func (f *Fixed) Zone() *zone.Zone { return f.zone }

// Stats returns the stats allocations through f are counted in.
func (f *Fixed) Stats() *zone.Stats { return f.stats }

// Resolve binds f to z. A descriptor is resolved at most once; a second
// call returns false and changes nothing.
func (f *Fixed) Resolve(z *zone.Zone, stats *zone.Stats) bool {
	if f.zone != nil {
		return false
	}
	f.zone = z
	f.stats = stats
	return true
}

func (f *Fixed) String() string {
	return fmt.Sprintf("%s(size=%d sig=%q flags=%s)", f.Name, f.Sz, f.Sig, f.Flag)
}

// Var describes a call site allocating a header followed by an array of a
// type whose count is known only at runtime.
type Var struct {
	Name       string
	HeaderSize uint64
	HeaderSig  Signature // empty when there is no header
	TypeSize   uint64
	TypeSig    Signature
	Flag       Flags

	heap  int // sub-heap index once processed
	stats *zone.Stats
}

// NewVar returns a variable descriptor. hdrSig may be empty.
func NewVar(name string, hdrSize uint64, hdrSig string, typeSize uint64, typeSig string, flags Flags) (*Var, error) {
	h, err := ParseSignature(hdrSig)
	if err != nil {
		return nil, err
	}
	ts, err := ParseSignature(typeSig)
	if err != nil {
		return nil, err
	}
	if name == "" || typeSize == 0 {
		return nil, fmt.Errorf("%w: var %q type size %d", ErrBadDescriptor, name, typeSize)
	}
	return &Var{Name: name, HeaderSize: hdrSize, HeaderSig: h, TypeSize: typeSize, TypeSig: ts, Flag: flags}, nil
}

func (v *Var) SiteName() string     { return v.Name }
func (v *Var) Signature() Signature { return v.TypeSig }
func (v *Var) Size() uint64         { return v.HeaderSize + v.TypeSize }
func (v *Var) Flags() Flags         { return v.Flag }

// Signatures returns the header signature (when present) and the type signature.
func (v *Var) Signatures() []Signature {
	if v.HeaderSig == "" {
		return []Signature{v.TypeSig}
	}
	return []Signature{v.HeaderSig, v.TypeSig}
}

// MarkProcessed sets FlagProcessed and reports whether it was clear.
func (v *Var) MarkProcessed() bool {
	if v.Flag&FlagProcessed != 0 {
		return false
	}
	v.Flag |= FlagProcessed
	return true
}

// AddFlags sets the bits of fl.
func (v *Var) AddFlags(fl Flags) { v.Flag |= fl }

// Processed reports whether the boot pipeline has seen v.
func (v *Var) Processed() bool { return v.Flag&FlagProcessed != 0 }

// Heap returns the variable sub-heap index assigned at boot.
func (v *Var) Heap() int { return v.heap }

// Stats returns private stats, or nil when v shares the heap's stats.
func (v *Var) Stats() *zone.Stats { return v.stats }

// AssignHeap binds v to sub-heap idx.
func (v *Var) AssignHeap(idx int, stats *zone.Stats) {
	v.heap = idx
	v.stats = stats
}

// AllocSize returns the byte size of a header plus count elements, and false
// on overflow.
func (v *Var) AllocSize(count uint64) (uint64, bool) {
	if count != 0 && v.TypeSize > (^uint64(0)-v.HeaderSize)/count {
		return 0, false
	}
	return v.HeaderSize + v.TypeSize*count, true
}

func (v *Var) String() string {
	return fmt.Sprintf("%s(hdr=%d/%q type=%d/%q flags=%s)", v.Name, v.HeaderSize, v.HeaderSig, v.TypeSize, v.TypeSig, v.Flag)
}
