package types

import "fmt"

// -----------------------------------------------------------------------------
// Violations (fatal caller contract breaks)
// -----------------------------------------------------------------------------

// ViolationKind classifies a violation so callers and tests can branch on
// intent rather than text.
type ViolationKind int

const (
	KindHeapConfusion ViolationKind = iota // freed through the wrong heap
	KindSizeConfusion                      // size larger than the owning element
	KindInvalidSize                        // nonsensical size on free/realloc
	KindUnowned                            // address owned by no zone or map
	KindWrongZone                          // typed free names a different zone
	KindBounds                             // element size outside bounded-free range
	KindNoFail                             // NoFail on a path that can fail
	KindRequireData                        // address is not in the data heap
	KindRequireNonData                     // address is in a data heap
	KindScratch                            // boot scratch buffer overflow
	KindConfig                             // boot-time table inconsistency
	KindDoubleFree                         // element already on the free list
)

var kindNames = [...]string{
	KindHeapConfusion:  "heap-confusion",
	KindSizeConfusion:  "size-confusion",
	KindInvalidSize:    "invalid-size",
	KindUnowned:        "unowned",
	KindWrongZone:      "wrong-zone",
	KindBounds:         "bounds",
	KindNoFail:         "nofail",
	KindRequireData:    "require-data",
	KindRequireNonData: "require-non-data",
	KindScratch:        "scratch",
	KindConfig:         "config",
	KindDoubleFree:     "double-free",
}

func (k ViolationKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Violation is the panic value raised when an invariant is broken.
type Violation struct {
	Kind ViolationKind
	Msg  string
}

func (v *Violation) Error() string {
	if v == nil {
		return "<nil>"
	}
	return v.Msg
}

// Panicf panics with a *Violation of the given kind.
func Panicf(kind ViolationKind, format string, args ...any) {
	panic(&Violation{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// AsViolation extracts a *Violation from a recovered panic value.
func AsViolation(r any) (*Violation, bool) {
	v, ok := r.(*Violation)
	return v, ok
}
