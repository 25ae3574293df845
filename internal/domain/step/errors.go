package step

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedPlaceholder is returned when an action placeholder has no value in the snapshot
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

	// ErrDuplicateStep is returned when two descriptors share an order or id
	ErrDuplicateStep = errors.New("duplicate step")

	// ErrInvalidStep is returned when a descriptor is incomplete
	ErrInvalidStep = errors.New("invalid step")

	// ErrStepNotFound is returned when a step id is not registered
	ErrStepNotFound = errors.New("step not found")
)

// UnresolvedError names the placeholder that could not be resolved
type UnresolvedError struct {
	Placeholder string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedPlaceholder, e.Placeholder)
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolvedPlaceholder
}

func unresolved(placeholder string) error {
	return &UnresolvedError{Placeholder: placeholder}
}
