package engine

import (
	"errors"
	"fmt"
)

// Class partitions engine failures for callers.
type Class int

const (
	// ClassValidation marks malformed or out-of-range input, rejected
	// before any state or collaborator interaction.
	ClassValidation Class = iota + 1
	// ClassState marks a precondition violated by current ledger data.
	ClassState
	// ClassSolvency marks an operation that would promise more than the
	// custody balance covers.
	ClassSolvency
	// ClassCollaborator marks a failed token service call.
	ClassCollaborator
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassState:
		return "state"
	case ClassSolvency:
		return "solvency"
	case ClassCollaborator:
		return "collaborator"
	default:
		return "unknown"
	}
}

// Error is a classified engine failure with a distinct reason per
// rejected condition.
type Error struct {
	Class  Class
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Class, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf extracts the failure class, or 0 for foreign errors.
func ClassOf(err error) Class {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Class
	}
	return 0
}

func errValidation(reason string) error {
	return &Error{Class: ClassValidation, Reason: reason}
}

func errState(reason string) error {
	return &Error{Class: ClassState, Reason: reason}
}

func errSolvency(reason string) error {
	return &Error{Class: ClassSolvency, Reason: reason}
}

func errCollaborator(reason string, err error) error {
	return &Error{Class: ClassCollaborator, Reason: reason, Err: err}
}
