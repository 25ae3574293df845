// Package workflow derives the workflow position from a signal snapshot.
//
// There is no stored progress: the active step is a pure function of the
// registry and the snapshot, recomputed whenever the snapshot changes.
package workflow

import (
	"fmt"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// Selection is the outcome of scanning the registry against a snapshot
type Selection struct {
	Status Status

	// Step is the active step, or the undecidable step while loading. Nil when terminal.
	Step *step.Descriptor

	// Waiting lists the unknown signals that keep Step undecidable
	Waiting []signal.Name

	// Reinvocable lists repeatable steps that are satisfied but may run again
	Reinvocable []step.Descriptor

	// Order is the order value where the scan stopped; past the last step when terminal
	Order int
}

// StepID returns the id of the selected step, if any
func (s Selection) StepID() (step.ID, bool) {
	if s.Step == nil {
		return "", false
	}
	return s.Step.ID, true
}

// StepStatus pairs a step with its rendered state
type StepStatus struct {
	Step  step.Descriptor
	State StepState
}

// Engine selects the active step of a registry
type Engine struct {
	registry *step.Registry
}

// NewEngine creates an engine over a registry
func NewEngine(registry *step.Registry) (*Engine, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, ErrEmptyRegistry
	}
	return &Engine{registry: registry}, nil
}

// Registry returns the registry the engine scans
func (e *Engine) Registry() *step.Registry {
	return e.registry
}

// SelectActive scans steps in ascending order and stops at the first step
// whose precondition is not known to hold. A false precondition makes that
// step active; an unknown one reports loading so the scan never races ahead
// of incomplete data.
func (e *Engine) SelectActive(s signal.Snapshot) Selection {
	var reinvocable []step.Descriptor

	for i := 0; i < e.registry.Len(); i++ {
		d := e.registry.At(i)

		switch d.Precondition.Eval(s) {
		case signal.TruthTrue:
			if d.Repeatable {
				reinvocable = append(reinvocable, d)
			}
			continue
		case signal.TruthFalse:
			return Selection{
				Status:      StatusActive,
				Step:        &d,
				Reinvocable: reinvocable,
				Order:       d.Order,
			}
		default:
			return Selection{
				Status:      StatusLoading,
				Step:        &d,
				Waiting:     signal.Unknowns(d.Precondition, s),
				Reinvocable: reinvocable,
				Order:       d.Order,
			}
		}
	}

	last := e.registry.At(e.registry.Len() - 1)
	return Selection{
		Status:      StatusTerminal,
		Reinvocable: reinvocable,
		Order:       last.Order + 1,
	}
}

// Eligible reports whether a step may be invoked on this snapshot: every
// earlier step must hold, and the step itself must be unsatisfied unless it
// is repeatable. A step whose own signals are unknown is never eligible.
func (e *Engine) Eligible(s signal.Snapshot, id step.ID) (bool, error) {
	pos, ok := e.registry.Position(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", step.ErrStepNotFound, id)
	}

	for i := 0; i < pos; i++ {
		if e.registry.At(i).Precondition.Eval(s) != signal.TruthTrue {
			return false, nil
		}
	}

	d := e.registry.At(pos)
	switch d.Precondition.Eval(s) {
	case signal.TruthFalse:
		return true, nil
	case signal.TruthTrue:
		return d.Repeatable, nil
	default:
		return false, nil
	}
}

// Evaluate returns every step with its rendered state
func (e *Engine) Evaluate(s signal.Snapshot) []StepStatus {
	out := make([]StepStatus, 0, e.registry.Len())
	stopped := false

	for _, d := range e.registry.Steps() {
		if stopped {
			out = append(out, StepStatus{Step: d, State: StepBlocked})
			continue
		}

		switch d.Precondition.Eval(s) {
		case signal.TruthTrue:
			out = append(out, StepStatus{Step: d, State: StepSatisfied})
		case signal.TruthFalse:
			out = append(out, StepStatus{Step: d, State: StepActive})
			stopped = true
		default:
			out = append(out, StepStatus{Step: d, State: StepUndecided})
			stopped = true
		}
	}

	return out
}
