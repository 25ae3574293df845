package workflow

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gates = []signal.Name{
	signal.HasAccount,
	signal.CollateralApproved,
	signal.CollateralDeposited,
	signal.PoolCreated,
	signal.PoolDelegated,
	signal.PoolConfigured,
	signal.StableMinted,
	signal.LotteryApproved,
	signal.TicketBought,
	signal.ContractFunded,
	signal.DrawRequested,
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := step.Canonical(step.DefaultAmounts())
	require.NoError(t, err)
	e, err := NewEngine(reg)
	require.NoError(t, err)
	return e
}

// through marks the first n gates true and the next one false
func through(n int) signal.Snapshot {
	b := signal.NewBuilder()
	for i, g := range gates {
		switch {
		case i < n:
			b.Set(g, signal.Bool(true))
		case i == n:
			b.Set(g, signal.Bool(false))
		}
	}
	return b.Build()
}

func TestNewEngine_RejectsEmptyRegistry(t *testing.T) {
	_, err := NewEngine(nil)
	assert.True(t, errors.Is(err, ErrEmptyRegistry))
}

func TestSelectActive_Scenarios(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name string
		snap signal.Snapshot
		want step.ID
	}{
		{
			name: "no account selects create-account",
			snap: signal.NewBuilder().Set(signal.HasAccount, signal.Bool(false)).Build(),
			want: step.CreateAccount,
		},
		{
			name: "account without approval selects approve-collateral, not deposit",
			snap: signal.NewBuilder().
				Set(signal.HasAccount, signal.Bool(true)).
				Set(signal.CollateralApproved, signal.Bool(false)).
				Set(signal.CollateralDeposited, signal.Bool(false)).
				Build(),
			want: step.ApproveCollateral,
		},
		{
			name: "configured pool without stable selects mint",
			snap: through(6),
			want: step.MintStable,
		},
		{
			name: "numeric allowance counts as approval",
			snap: signal.NewBuilder().
				Set(signal.HasAccount, signal.Bool(true)).
				Set(signal.CollateralApproved, signal.Int64(1)).
				Set(signal.CollateralDeposited, signal.Bool(false)).
				Build(),
			want: step.DepositCollateral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := e.SelectActive(tt.snap)
			require.Equal(t, StatusActive, sel.Status)
			id, ok := sel.StepID()
			require.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestSelectActive_EachPosition(t *testing.T) {
	e := newEngine(t)
	steps := e.Registry().Steps()

	for n := range gates {
		sel := e.SelectActive(through(n))
		require.Equal(t, StatusActive, sel.Status, "position %d", n)
		assert.Equal(t, steps[n].ID, sel.Step.ID)
		assert.Equal(t, steps[n].Order, sel.Order)
	}
}

func TestSelectActive_UnknownIsLoading(t *testing.T) {
	e := newEngine(t)

	t.Run("empty snapshot", func(t *testing.T) {
		sel := e.SelectActive(signal.Empty())
		assert.Equal(t, StatusLoading, sel.Status)
		assert.Equal(t, step.CreateAccount, sel.Step.ID)
		assert.Equal(t, []signal.Name{signal.HasAccount}, sel.Waiting)
	})

	t.Run("unknown step is neither skipped nor active", func(t *testing.T) {
		snap := signal.NewBuilder().
			Set(signal.HasAccount, signal.Bool(true)).
			Set(signal.CollateralDeposited, signal.Bool(false)).
			Build()

		sel := e.SelectActive(snap)
		assert.Equal(t, StatusLoading, sel.Status)
		assert.Equal(t, step.ApproveCollateral, sel.Step.ID)

		ok, err := e.Eligible(snap, step.ApproveCollateral)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = e.Eligible(snap, step.DepositCollateral)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("false before unknown still selects active", func(t *testing.T) {
		snap := signal.NewBuilder().Set(signal.HasAccount, signal.Bool(false)).Build()
		sel := e.SelectActive(snap)
		assert.Equal(t, StatusActive, sel.Status)
	})
}

func TestSelectActive_Terminal(t *testing.T) {
	e := newEngine(t)

	b := signal.NewBuilder()
	for _, g := range gates {
		b.Set(g, signal.Bool(true))
	}
	sel := e.SelectActive(b.Build())

	assert.Equal(t, StatusTerminal, sel.Status)
	assert.True(t, sel.Status.IsTerminal())
	assert.Nil(t, sel.Step)
	require.Len(t, sel.Reinvocable, 2)
	assert.Equal(t, step.BuyTicket, sel.Reinvocable[0].ID)
	assert.Equal(t, step.RequestDraw, sel.Reinvocable[1].ID)
	assert.Greater(t, sel.Order, e.Registry().At(e.Registry().Len()-1).Order)
}

func TestEligible_RepeatableStepStaysEligible(t *testing.T) {
	e := newEngine(t)

	before := through(8)
	ok, err := e.Eligible(before, step.BuyTicket)
	require.NoError(t, err)
	assert.True(t, ok)

	after := before.With(signal.TicketBought, signal.Bool(true)).
		With(signal.ContractFunded, signal.Bool(false))

	ok, err = e.Eligible(after, step.BuyTicket)
	require.NoError(t, err)
	assert.True(t, ok, "buy-ticket must remain eligible after a purchase")

	sel := e.SelectActive(after)
	assert.Equal(t, step.FundContract, sel.Step.ID)
	require.Len(t, sel.Reinvocable, 1)
	assert.Equal(t, step.BuyTicket, sel.Reinvocable[0].ID)
}

func TestEligible_NonRepeatableDoneStep(t *testing.T) {
	e := newEngine(t)

	ok, err := e.Eligible(through(3), step.CreateAccount)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Eligible(through(3), step.MintStable)
	require.NoError(t, err)
	assert.False(t, ok, "later steps are blocked")

	_, err = e.Eligible(through(3), step.ID("nope"))
	assert.True(t, errors.Is(err, step.ErrStepNotFound))
}

func TestSelectActive_MonotonicOrder(t *testing.T) {
	e := newEngine(t)
	rng := rand.New(rand.NewSource(7))

	values := []signal.Value{signal.Unknown(), signal.Bool(false), signal.Bool(true)}

	for iter := 0; iter < 2000; iter++ {
		b1 := signal.NewBuilder()
		b2 := signal.NewBuilder()
		for _, g := range gates {
			v := values[rng.Intn(len(values))]
			b1.Set(g, v)
			if v.Truth() != signal.TruthTrue && rng.Intn(3) == 0 {
				v = signal.Bool(true)
			}
			b2.Set(g, v)
		}

		s1 := e.SelectActive(b1.Build())
		s2 := e.SelectActive(b2.Build())
		require.GreaterOrEqual(t, s2.Order, s1.Order, "iteration %d", iter)
	}
}

func TestEvaluate_SingleActiveStep(t *testing.T) {
	e := newEngine(t)

	for n := range gates {
		states := e.Evaluate(through(n))
		active := 0
		for i, st := range states {
			switch {
			case i < n:
				assert.Equal(t, StepSatisfied, st.State)
			case i == n:
				assert.Equal(t, StepActive, st.State)
			default:
				assert.Equal(t, StepBlocked, st.State)
			}
			if st.State == StepActive {
				active++
			}
		}
		assert.Equal(t, 1, active)
	}

	states := e.Evaluate(signal.Empty())
	assert.Equal(t, StepUndecided, states[0].State)
	assert.Equal(t, StepBlocked, states[1].State)
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusLoading.IsValid())
	assert.True(t, StatusTerminal.IsValid())
	assert.False(t, Status("DONE").IsValid())
	assert.Equal(t, "LOADING", StatusLoading.String())
}
