package observer

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

const (
	user       step.Address = "0x00000000000000000000000000000000000000aa"
	core       step.Address = "0x00000000000000000000000000000000000000c0"
	collateral step.Address = "0x00000000000000000000000000000000000000c1"
	lottery    step.Address = "0x00000000000000000000000000000000000000c2"
	feeToken   step.Address = "0x00000000000000000000000000000000000000c3"
	stable     step.Address = "0x00000000000000000000000000000000000000d0"
)

func testSources(l *fakeLedger, ix *fakeIndexer) Sources {
	return Sources{
		Ledger:  l,
		Indexer: ix,
		Account: user,
		Contracts: map[step.Contract]step.Address{
			step.ContractCore:       core,
			step.ContractCollateral: collateral,
			step.ContractLottery:    lottery,
			step.ContractFeeToken:   feeToken,
		},
	}
}

// fakeLedger answers view calls from a table keyed by contract.method,
// suffixed with the first address argument when there is one
type fakeLedger struct {
	mu        sync.Mutex
	numbers   map[string]*big.Int
	stable    step.Address
	transfers map[step.Address]bool
	fail      map[string]error
	calls     map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		numbers:   make(map[string]*big.Int),
		transfers: make(map[step.Address]bool),
		fail:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func callKey(c step.Call) string {
	key := string(c.Contract) + "." + c.Method
	if len(c.Args) > 0 {
		if a, ok := c.Args[0].(step.Address); ok {
			key += ":" + string(a)
		}
	}
	return key
}

func (f *fakeLedger) set(key string, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numbers[key] = big.NewInt(n)
}

func (f *fakeLedger) failOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *fakeLedger) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeLedger) Call(_ context.Context, c step.Call) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := callKey(c)
	f.calls[key]++
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	if key == "core.getUsdToken" {
		if f.stable == "" {
			return nil, fmt.Errorf("no stable token")
		}
		return []any{f.stable}, nil
	}
	n, ok := f.numbers[key]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", key)
	}
	return []any{new(big.Int).Set(n)}, nil
}

func (f *fakeLedger) HasTransfer(_ context.Context, q port.TransferQuery) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := "transfer:" + string(q.Token)
	f.calls[key]++
	if err := f.fail[key]; err != nil {
		return false, err
	}
	return f.transfers[q.Token], nil
}

type fakeIndexer struct {
	mu       sync.Mutex
	accounts []port.IndexedAccount
	pools    []port.IndexedPool
	poolErr  error
	calls    map[string]int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{calls: make(map[string]int)}
}

func (f *fakeIndexer) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeIndexer) Accounts(_ context.Context, _ step.Address) ([]port.IndexedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["accounts"]++
	return append([]port.IndexedAccount(nil), f.accounts...), nil
}

func (f *fakeIndexer) Pools(_ context.Context, _ step.Address) ([]port.IndexedPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["pools"]++
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return append([]port.IndexedPool(nil), f.pools...), nil
}

// onboarded configures both fakes for a user who completed every step
func onboarded() (*fakeLedger, *fakeIndexer) {
	l := newFakeLedger()
	l.stable = stable
	l.set("lottery.marketId", 3)
	l.set("collateral.allowance:"+string(user), 1)
	l.set("core.getAccountAvailableCollateral", 0)
	l.set("core.getPositionCollateral", 20)
	l.set("stable.balanceOf:"+string(user), 4)
	l.set("stable.allowance:"+string(user), 1)
	l.set("feeToken.balanceOf:"+string(lottery), 1)
	l.set("feeToken.balanceOf:"+string(user), 9)
	l.set("collateral.balanceOf:"+string(user), 100)
	l.set("lottery.jackpot", 50)
	l.set("lottery.getMaxBucketParticipants", 10)
	l.set("core.getWithdrawableMarketUsd", 30)
	l.transfers[stable] = true
	l.transfers[feeToken] = true

	ix := newFakeIndexer()
	ix.accounts = []port.IndexedAccount{{ID: "42", Owner: string(user)}}
	ix.pools = []port.IndexedPool{{ID: "7", Owner: string(user), MarketIDs: []string{"3"}}}
	return l, ix
}

// fresh configures both fakes for a user with no account
func fresh() (*fakeLedger, *fakeIndexer) {
	l, _ := onboarded()
	l.set("collateral.allowance:"+string(user), 0)
	l.set("core.getPositionCollateral", 0)
	l.set("stable.balanceOf:"+string(user), 0)
	l.set("stable.allowance:"+string(user), 0)
	l.set("feeToken.balanceOf:"+string(lottery), 0)
	l.transfers = map[step.Address]bool{}
	return l, newFakeIndexer()
}
