// Package step defines the ordered, immutable registry of workflow steps.
package step

import (
	"fmt"
	"sort"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
)

// ID identifies a step
type ID string

const (
	CreateAccount      ID = "create-account"
	ApproveCollateral  ID = "approve-collateral"
	DepositCollateral  ID = "deposit-collateral"
	CreatePool         ID = "create-pool"
	DelegateCollateral ID = "delegate-collateral-to-pool"
	ConfigurePool      ID = "configure-pool-for-market"
	MintStable         ID = "mint-stable-balance"
	ApproveSpend       ID = "approve-spend-to-market"
	BuyTicket          ID = "buy-ticket"
	FundContract       ID = "fund-contract-with-fee-token"
	RequestDraw        ID = "request-draw"
)

// String returns the string representation of the step id
func (id ID) String() string {
	return string(id)
}

// Descriptor describes one step of the workflow.
// Precondition is satisfied once the step's effect is visible in remote state.
type Descriptor struct {
	Order          int
	ID             ID
	Prompt         string
	ButtonText     string
	FailureMessage string
	Precondition   signal.Predicate
	Action         Action
	Confirmations  int
	Refreshes      []signal.Name
	Repeatable     bool
}

func (d Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id at order %d", ErrInvalidStep, d.Order)
	}
	if d.Precondition == nil {
		return fmt.Errorf("%w: %s has no precondition", ErrInvalidStep, d.ID)
	}
	if d.Action.Method == "" {
		return fmt.Errorf("%w: %s has no action method", ErrInvalidStep, d.ID)
	}
	if d.Confirmations < 1 {
		return fmt.Errorf("%w: %s needs at least one confirmation", ErrInvalidStep, d.ID)
	}
	for _, n := range d.Refreshes {
		if !n.IsValid() {
			return fmt.Errorf("%w: %s refreshes unknown signal %q", ErrInvalidStep, d.ID, n)
		}
	}
	return nil
}

func (d Descriptor) clone() Descriptor {
	d.Refreshes = append([]signal.Name(nil), d.Refreshes...)
	d.Action.Args = append([]Arg(nil), d.Action.Args...)
	return d
}

// Registry is an ordered, immutable sequence of steps
type Registry struct {
	steps []Descriptor
	index map[ID]int
}

// NewRegistry validates the descriptors and orders them by Order.
// No two steps may share an order value or an id.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	steps := make([]Descriptor, len(descs))
	copy(steps, descs)

	orders := make(map[int]ID, len(steps))
	for _, d := range steps {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if other, exists := orders[d.Order]; exists {
			return nil, fmt.Errorf("%w: %s and %s share order %d", ErrDuplicateStep, other, d.ID, d.Order)
		}
		orders[d.Order] = d.ID
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	index := make(map[ID]int, len(steps))
	for i, d := range steps {
		if _, exists := index[d.ID]; exists {
			return nil, fmt.Errorf("%w: id %s", ErrDuplicateStep, d.ID)
		}
		steps[i] = d.clone()
		index[d.ID] = i
	}

	return &Registry{steps: steps, index: index}, nil
}

// Steps returns the descriptors in ascending order
func (r *Registry) Steps() []Descriptor {
	out := make([]Descriptor, len(r.steps))
	for i, d := range r.steps {
		out[i] = d.clone()
	}
	return out
}

// Len returns the number of steps
func (r *Registry) Len() int {
	return len(r.steps)
}

// At returns the step at position i in ascending order
func (r *Registry) At(i int) Descriptor {
	return r.steps[i].clone()
}

// Get returns the step with the given id
func (r *Registry) Get(id ID) (Descriptor, error) {
	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}
	return r.steps[i].clone(), nil
}

// Position returns the index of a step in ascending order
func (r *Registry) Position(id ID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Repeatable returns the repeatable steps in ascending order
func (r *Registry) Repeatable() []Descriptor {
	var out []Descriptor
	for _, d := range r.steps {
		if d.Repeatable {
			out = append(out, d.clone())
		}
	}
	return out
}
