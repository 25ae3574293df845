package workflow

import "errors"

var (
	// ErrNotEligible is returned when a step is invoked while its turn has not come
	ErrNotEligible = errors.New("step is not eligible")

	// ErrEmptyRegistry is returned when the engine is given no steps
	ErrEmptyRegistry = errors.New("registry has no steps")
)
