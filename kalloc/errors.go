package kalloc

import (
	"errors"

	"github.com/joshuapare/kheap/pkg/types"
)

var (
	// ErrNoMemory is returned by the error-returning helpers when a request
	// could not be satisfied.
	ErrNoMemory = errors.New("kalloc: out of memory")

	// ErrConfig wraps every configuration and policy error from New and Boot.
	ErrConfig = errors.New("kalloc: invalid configuration")

	// ErrBooted is returned when Boot runs a second time.
	ErrBooted = errors.New("kalloc: already booted")

	// ErrSelfTest wraps every failed self-test check.
	ErrSelfTest = errors.New("kalloc: self test failed")
)

// Violation is the panic value for broken caller contracts.
type Violation = types.Violation

// ViolationKind classifies a Violation.
type ViolationKind = types.ViolationKind

// AsViolation extracts a *Violation from a recovered panic value.
func AsViolation(r any) (*Violation, bool) { return types.AsViolation(r) }
