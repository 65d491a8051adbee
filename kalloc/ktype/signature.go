package ktype

import (
	"fmt"
	"strings"
	"unicode"
)

// Granule is one symbol of a signature.
type Granule byte

const (
	Pointer     Granule = 'p'
	AuthPointer Granule = 'a'
	Data        Granule = 'd'
	Padding     Granule = '.'
)

func (g Granule) String() string {
	switch g {
	case Pointer:
		return "pointer"
	case AuthPointer:
		return "auth-pointer"
	case Data:
		return "data"
	case Padding:
		return "padding"
	default:
		return fmt.Sprintf("granule(%q)", byte(g))
	}
}

// Signature is a canonical layout string over the granule alphabet.
type Signature string

// ParseSignature normalizes s into a canonical Signature.
func ParseSignature(s string) (Signature, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		g, ok := granuleFor(r)
		if !ok {
			return "", fmt.Errorf("%w: %q at offset %d in %q", ErrBadSignature, r, i, s)
		}
		b.WriteByte(byte(g))
	}
	return Signature(b.String()), nil
}

// MustSignature is ParseSignature for literals. It panics on error.
func MustSignature(s string) Signature {
	sig, err := ParseSignature(s)
	if err != nil {
		panic(err)
	}
	return sig
}

func granuleFor(r rune) (Granule, bool) {
	switch r {
	case 'p', 'P', '1':
		return Pointer, true
	case 'a', 'A', '4':
		return AuthPointer, true
	case 'd', 'D', '2':
		return Data, true
	case '.', '_', '-', '0':
		return Padding, true
	}
	return 0, false
}

// Granules returns the symbols of s.
func (s Signature) Granules() []Granule {
	out := make([]Granule, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = Granule(s[i])
	}
	return out
}

// Only reports whether every symbol of s is one of allowed. The empty
// signature trivially qualifies.
func (s Signature) Only(allowed ...Granule) bool {
	for i := 0; i < len(s); i++ {
		ok := false
		for _, g := range allowed {
			if Granule(s[i]) == g {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// IsData reports whether s holds only data and padding.
func (s Signature) IsData() bool { return s.Only(Data, Padding) }

// IsPointerArray reports whether s holds only pointers and authenticated
// pointers. Empty signatures are not pointer arrays.
func (s Signature) IsPointerArray() bool {
	return len(s) > 0 && s.Only(Pointer, AuthPointer)
}

// Compatible reports whether prev is a prefix of s, the rule that merges
// two signatures into one group.
func (s Signature) Compatible(prev Signature) bool {
	return strings.HasPrefix(string(s), string(prev))
}

func (s Signature) String() string { return string(s) }
