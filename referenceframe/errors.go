package referenceframe

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoRotationHistory means no rotation sequence names the plate as its moving plate.
	ErrNoRotationHistory = errors.New("no rotation history")
	// ErrNotDefinedAtTime means the plate's rotation history does not cover the reconstruction time.
	ErrNotDefinedAtTime = errors.New("rotation history not defined at time")
	// ErrUnresolvableAncestor means a plate further up the circuit could not be resolved.
	ErrUnresolvableAncestor = errors.New("fixed plate cannot be rotated")
	// ErrPlateNotInTree is returned when a plate has no rotation in a ReconstructionTree.
	ErrPlateNotInTree = errors.New("plate not in reconstruction tree")
	// ErrEmptySequence is returned when a rotation sequence is built without samples.
	ErrEmptySequence = errors.New("rotation sequence has no samples")
)

// UnresolvablePlateError records why a plate has no rotation at a reconstruction time.
type UnresolvablePlateError struct {
	Plate  PlateID
	Time   float64
	Reason error
}

func (e *UnresolvablePlateError) Error() string {
	return fmt.Sprintf("plate %d cannot be rotated at %g Ma: %v", e.Plate, e.Time, e.Reason)
}

// Unwrap returns the reason.
func (e *UnresolvablePlateError) Unwrap() error {
	return e.Reason
}

// RotationCycleError means a chain of fixed plates loops back on itself without reaching the
// anchor plate. Plates lists the loop in traversal order; a self referencing plate is a loop of one.
type RotationCycleError struct {
	Plates []PlateID
}

func (e *RotationCycleError) Error() string {
	parts := make([]string, 0, len(e.Plates)+1)
	for _, p := range e.Plates {
		parts = append(parts, p.String())
	}
	if len(e.Plates) > 0 {
		parts = append(parts, e.Plates[0].String())
	}
	return "rotation cycle " + strings.Join(parts, " -> ")
}

// NewUnresolvableAncestorError reports that fixed, the next plate up the circuit, cannot be rotated
// because of reason. The result matches both ErrUnresolvableAncestor and reason.
func NewUnresolvableAncestorError(fixed PlateID, reason error) error {
	return &unresolvableAncestorError{fixed: fixed, reason: reason}
}

type unresolvableAncestorError struct {
	fixed  PlateID
	reason error
}

func (e *unresolvableAncestorError) Error() string {
	return fmt.Sprintf("%v: fixed plate %d: %v", ErrUnresolvableAncestor, e.fixed, e.reason)
}

func (e *unresolvableAncestorError) Unwrap() []error {
	return []error{ErrUnresolvableAncestor, e.reason}
}
