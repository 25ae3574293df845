package observer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
)

var gating = []signal.Name{
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

func newObserver(t *testing.T, l *fakeLedger, ix *fakeIndexer) *Observer {
	t.Helper()
	o, err := New(StandardProbes(testSources(l, ix)), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return o
}

func TestFetch_Onboarded(t *testing.T) {
	l, ix := onboarded()
	o := newObserver(t, l, ix)

	snap, err := o.Fetch(context.Background())
	require.NoError(t, err)

	for _, n := range gating {
		assert.Equal(t, signal.TruthTrue, snap.Truth(n), n)
	}

	id, ok := snap.Get(signal.AccountID).AsNumber()
	require.True(t, ok)
	assert.Equal(t, int64(42), id.Int64())

	text, ok := snap.Get(signal.StableToken).AsText()
	require.True(t, ok)
	assert.Equal(t, string(stable), text)

	jackpot, _ := snap.Get(signal.Jackpot).AsNumber()
	assert.Equal(t, int64(50), jackpot.Int64())
	assert.True(t, snap.Known(signal.WithdrawableMarketUSD))
	assert.Equal(t, snap, o.Current())
}

func TestFetch_FreshUser(t *testing.T) {
	l, ix := fresh()
	o := newObserver(t, l, ix)

	snap, err := o.Fetch(context.Background())
	require.NoError(t, err)

	for _, n := range gating {
		assert.Equal(t, signal.TruthFalse, snap.Truth(n), n)
	}
	assert.False(t, snap.Known(signal.AccountID))
	assert.False(t, snap.Known(signal.PoolID))
}

func TestFetch_ProbeFailureIsIsolated(t *testing.T) {
	l, ix := onboarded()
	ix.poolErr = errors.New("indexer unavailable")
	o := newObserver(t, l, ix)

	snap, err := o.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer.pools")
	assert.Len(t, multierr.Errors(err), 1)

	assert.False(t, snap.Known(signal.PoolCreated))
	assert.False(t, snap.Known(signal.PoolID))
	assert.False(t, snap.Known(signal.PoolConfigured))
	assert.Equal(t, signal.TruthTrue, snap.Truth(signal.HasAccount))
	assert.Equal(t, signal.TruthTrue, snap.Truth(signal.StableMinted))
}

func TestCollateral_KleeneOr(t *testing.T) {
	t.Run("delegated alone proves deposit", func(t *testing.T) {
		l, ix := onboarded()
		l.failOn("core.getAccountAvailableCollateral", errors.New("timeout"))
		o := newObserver(t, l, ix)

		snap, err := o.Fetch(context.Background(), signal.CollateralDeposited)
		require.Error(t, err)
		assert.False(t, snap.Known(signal.CollateralAvailable))
		assert.Equal(t, signal.TruthTrue, snap.Truth(signal.CollateralDeposited))
		assert.Equal(t, signal.TruthTrue, snap.Truth(signal.PoolDelegated))
	})

	t.Run("zero delegation with failed available read is unknown", func(t *testing.T) {
		l, ix := onboarded()
		l.set("core.getPositionCollateral", 0)
		l.failOn("core.getAccountAvailableCollateral", errors.New("timeout"))
		o := newObserver(t, l, ix)

		snap, _ := o.Fetch(context.Background(), signal.CollateralDeposited)
		assert.Equal(t, signal.TruthUnknown, snap.Truth(signal.CollateralDeposited))
		assert.Equal(t, signal.TruthFalse, snap.Truth(signal.PoolDelegated))
	})

	t.Run("available alone proves deposit", func(t *testing.T) {
		l, ix := onboarded()
		l.set("core.getAccountAvailableCollateral", 20)
		l.set("core.getPositionCollateral", 0)
		o := newObserver(t, l, ix)

		snap, err := o.Fetch(context.Background(), signal.CollateralDeposited, signal.PoolDelegated)
		require.NoError(t, err)
		assert.Equal(t, signal.TruthTrue, snap.Truth(signal.CollateralDeposited))
		assert.Equal(t, signal.TruthFalse, snap.Truth(signal.PoolDelegated))
	})
}

func TestRefetch_TouchesOnlyRequestedSignals(t *testing.T) {
	l, ix := onboarded()
	l.set("core.getPositionCollateral", 0)
	ix.pools[0].MarketIDs = nil
	o := newObserver(t, l, ix)

	before, err := o.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, signal.TruthFalse, before.Truth(signal.PoolDelegated))
	require.Equal(t, signal.TruthFalse, before.Truth(signal.PoolConfigured))

	// remote state moves on for both delegation and configuration
	l.set("core.getPositionCollateral", 20)
	ix.mu.Lock()
	ix.pools[0].MarketIDs = []string{"3"}
	ix.mu.Unlock()
	poolCalls := ix.count("pools")

	after, err := o.Refetch(context.Background(), signal.PoolDelegated, signal.CollateralDelegated)
	require.NoError(t, err)

	assert.Equal(t, signal.TruthTrue, after.Truth(signal.PoolDelegated))
	assert.Equal(t, signal.TruthFalse, after.Truth(signal.PoolConfigured), "untouched signal keeps its value")
	assert.Equal(t, before.Get(signal.Jackpot), after.Get(signal.Jackpot))
	assert.Equal(t, poolCalls, ix.count("pools"), "known inputs are reused")
	assert.Equal(t, after, o.Current())
}

func TestRefetch_ResolvesUnknownInputsTransiently(t *testing.T) {
	l, ix := onboarded()
	o := newObserver(t, l, ix)

	snap, err := o.Refetch(context.Background(), signal.StableMinted)
	require.NoError(t, err)

	assert.Equal(t, signal.TruthTrue, snap.Truth(signal.StableMinted))
	assert.False(t, snap.Known(signal.StableToken), "inputs read for the call are not published")
	assert.False(t, snap.Known(signal.StableBalance))
}

func TestRefetch_FailureLeavesOthersIntact(t *testing.T) {
	l, ix := onboarded()
	o := newObserver(t, l, ix)
	_, err := o.Fetch(context.Background())
	require.NoError(t, err)

	l.failOn("transfer:"+string(stable), errors.New("logs unavailable"))
	snap, err := o.Refetch(context.Background(), signal.TicketBought)
	require.Error(t, err)

	assert.False(t, snap.Known(signal.TicketBought))
	assert.Equal(t, signal.TruthTrue, snap.Truth(signal.LotteryApproved))
}

func TestFetch_UnknownName(t *testing.T) {
	l, ix := onboarded()
	o := newObserver(t, l, ix)
	_, err := o.Fetch(context.Background(), signal.Name("bogus"))
	assert.True(t, errors.Is(err, ErrUnknownSignal))

	snap, err := o.Refetch(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
}

func TestNew_ValidatesGraph(t *testing.T) {
	noop := func(context.Context, signal.Snapshot) (map[signal.Name]signal.Value, error) { return nil, nil }

	tests := []struct {
		name   string
		probes []Probe
		want   error
	}{
		{
			name: "duplicate producer",
			probes: []Probe{
				{Name: "a", Produces: []signal.Name{signal.Jackpot}, Run: noop},
				{Name: "b", Produces: []signal.Name{signal.Jackpot}, Run: noop},
			},
			want: ErrDuplicateProducer,
		},
		{
			name: "missing producer",
			probes: []Probe{
				{Name: "a", Produces: []signal.Name{signal.Jackpot}, Consumes: []signal.Name{signal.MarketID}, Run: noop},
			},
			want: ErrMissingProducer,
		},
		{
			name: "cycle",
			probes: []Probe{
				{Name: "a", Produces: []signal.Name{signal.Jackpot}, Consumes: []signal.Name{signal.MarketID}, Run: noop},
				{Name: "b", Produces: []signal.Name{signal.MarketID}, Consumes: []signal.Name{signal.Jackpot}, Run: noop},
			},
			want: ErrProbeCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.probes)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
