package step

import (
	"errors"
	"math/big"
	"testing"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() Env {
	return Env{
		Account:     "0x00000000000000000000000000000000000000aa",
		LuckyNumber: big.NewInt(777),
		Contracts: map[Contract]Address{
			ContractCore:       "0x00000000000000000000000000000000000000c0",
			ContractCollateral: "0x00000000000000000000000000000000000000c1",
			ContractLottery:    "0x00000000000000000000000000000000000000c2",
			ContractFeeToken:   "0x00000000000000000000000000000000000000c3",
		},
	}
}

func TestCanonical_Order(t *testing.T) {
	reg, err := Canonical(DefaultAmounts())
	require.NoError(t, err)

	want := []ID{
		CreateAccount,
		ApproveCollateral,
		DepositCollateral,
		CreatePool,
		DelegateCollateral,
		ConfigurePool,
		MintStable,
		ApproveSpend,
		BuyTicket,
		FundContract,
		RequestDraw,
	}

	steps := reg.Steps()
	require.Len(t, steps, len(want))
	for i, d := range steps {
		assert.Equal(t, want[i], d.ID, "position %d", i)
		if i > 0 {
			assert.Greater(t, d.Order, steps[i-1].Order)
		}
	}

	var repeatable []ID
	for _, d := range reg.Repeatable() {
		repeatable = append(repeatable, d.ID)
	}
	assert.Equal(t, []ID{BuyTicket, RequestDraw}, repeatable)
}

func TestCanonical_Confirmations(t *testing.T) {
	reg, err := Canonical(DefaultAmounts())
	require.NoError(t, err)

	twice := map[ID]bool{CreateAccount: true, CreatePool: true, ConfigurePool: true}
	for _, d := range reg.Steps() {
		if twice[d.ID] {
			assert.Equal(t, 2, d.Confirmations, d.ID)
		} else {
			assert.Equal(t, 1, d.Confirmations, d.ID)
		}
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	base := Descriptor{
		Order:         1,
		ID:            "a",
		Precondition:  signal.AllTrue(signal.HasAccount),
		Action:        Action{Method: "m"},
		Confirmations: 1,
	}

	sameOrder := base
	sameOrder.ID = "b"
	_, err := NewRegistry(base, sameOrder)
	assert.True(t, errors.Is(err, ErrDuplicateStep))

	sameID := base
	sameID.Order = 2
	_, err = NewRegistry(base, sameID)
	assert.True(t, errors.Is(err, ErrDuplicateStep))
}

func TestNewRegistry_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{"no id", Descriptor{Order: 1, Precondition: signal.AllTrue(signal.HasAccount), Action: Action{Method: "m"}, Confirmations: 1}},
		{"no precondition", Descriptor{Order: 1, ID: "a", Action: Action{Method: "m"}, Confirmations: 1}},
		{"no method", Descriptor{Order: 1, ID: "a", Precondition: signal.AllTrue(signal.HasAccount), Confirmations: 1}},
		{"zero confirmations", Descriptor{Order: 1, ID: "a", Precondition: signal.AllTrue(signal.HasAccount), Action: Action{Method: "m"}}},
		{"bad refresh", Descriptor{Order: 1, ID: "a", Precondition: signal.AllTrue(signal.HasAccount), Action: Action{Method: "m"}, Confirmations: 1, Refreshes: []signal.Name{"bogus"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.desc)
			assert.True(t, errors.Is(err, ErrInvalidStep), "got %v", err)
		})
	}
}

func TestRegistry_SortsByOrder(t *testing.T) {
	mk := func(order int, id ID) Descriptor {
		return Descriptor{Order: order, ID: id, Precondition: signal.AllTrue(signal.HasAccount), Action: Action{Method: "m"}, Confirmations: 1}
	}
	reg, err := NewRegistry(mk(30, "c"), mk(10, "a"), mk(20, "b"))
	require.NoError(t, err)

	assert.Equal(t, ID("a"), reg.At(0).ID)
	assert.Equal(t, ID("c"), reg.At(2).ID)

	pos, ok := reg.Position("b")
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	_, err = reg.Get("zzz")
	assert.True(t, errors.Is(err, ErrStepNotFound))
}

func TestRegistry_StepsIsACopy(t *testing.T) {
	reg, err := Canonical(DefaultAmounts())
	require.NoError(t, err)

	steps := reg.Steps()
	steps[0].ID = "mutated"
	steps[0].Refreshes[0] = signal.Jackpot

	d, err := reg.Get(CreateAccount)
	require.NoError(t, err)
	assert.Equal(t, CreateAccount, reg.At(0).ID)
	assert.Equal(t, signal.HasAccount, d.Refreshes[0])
}

func TestAction_Resolve(t *testing.T) {
	reg, err := Canonical(DefaultAmounts())
	require.NoError(t, err)
	env := testEnv()

	t.Run("deposit resolves account id from snapshot", func(t *testing.T) {
		d, err := reg.Get(DepositCollateral)
		require.NoError(t, err)

		snap := signal.NewBuilder().Set(signal.AccountID, signal.Int64(42)).Build()
		call, err := d.Action.Resolve(snap, env)
		require.NoError(t, err)

		assert.Equal(t, ContractCore, call.Contract)
		assert.Equal(t, env.Contracts[ContractCore], call.Address)
		assert.Equal(t, "deposit", call.Method)
		require.Len(t, call.Args, 3)
		assert.Equal(t, 0, call.Args[0].(*big.Int).Cmp(big.NewInt(42)))
		assert.Equal(t, env.Contracts[ContractCollateral], call.Args[1])
		assert.Equal(t, 0, call.Args[2].(*big.Int).Cmp(Units(20)))
	})

	t.Run("deposit without account id is unresolved", func(t *testing.T) {
		d, err := reg.Get(DepositCollateral)
		require.NoError(t, err)

		_, err = d.Action.Resolve(signal.Empty(), env)
		var ue *UnresolvedError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, "accountId", ue.Placeholder)
		assert.True(t, errors.Is(err, ErrUnresolvedPlaceholder))
	})

	t.Run("spend approval targets the discovered stable token", func(t *testing.T) {
		d, err := reg.Get(ApproveSpend)
		require.NoError(t, err)

		snap := signal.NewBuilder().Set(signal.StableToken, signal.Text("0x00000000000000000000000000000000000000d0")).Build()
		call, err := d.Action.Resolve(snap, env)
		require.NoError(t, err)
		assert.Equal(t, Address("0x00000000000000000000000000000000000000d0"), call.Address)
		assert.Equal(t, env.Contracts[ContractLottery], call.Args[0])
		assert.Equal(t, 0, call.Args[1].(*big.Int).Cmp(MaxUint256()))

		_, err = d.Action.Resolve(signal.Empty(), env)
		assert.True(t, errors.Is(err, ErrUnresolvedPlaceholder))
	})

	t.Run("pool configuration embeds market id", func(t *testing.T) {
		d, err := reg.Get(ConfigurePool)
		require.NoError(t, err)

		snap := signal.NewBuilder().
			Set(signal.PoolID, signal.Int64(9)).
			Set(signal.MarketID, signal.Int64(3)).
			Build()
		call, err := d.Action.Resolve(snap, env)
		require.NoError(t, err)

		cfgs, ok := call.Args[1].([]MarketConfiguration)
		require.True(t, ok)
		require.Len(t, cfgs, 1)
		assert.Equal(t, int64(3), cfgs[0].MarketID.Int64())
		assert.Equal(t, 0, cfgs[0].WeightD18.Cmp(Units(1)))
	})

	t.Run("missing lucky number is unresolved", func(t *testing.T) {
		d, err := reg.Get(CreateAccount)
		require.NoError(t, err)

		noLuck := env
		noLuck.LuckyNumber = nil
		_, err = d.Action.Resolve(signal.Empty(), noLuck)
		assert.True(t, errors.Is(err, ErrUnresolvedPlaceholder))
	})

	t.Run("literal big ints are copied", func(t *testing.T) {
		n := big.NewInt(1)
		v, err := Lit(n).Resolve(signal.Empty(), env)
		require.NoError(t, err)
		v.(*big.Int).SetInt64(5)
		assert.Equal(t, int64(1), n.Int64())
	})
}
