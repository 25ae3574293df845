package observer

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/multierr"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// Sources are the remote systems and addresses the standard probes read
type Sources struct {
	Ledger    port.LedgerReader
	Indexer   port.Indexer
	Account   step.Address
	Contracts map[step.Contract]step.Address
}

// StandardProbes returns the probes of the lottery onboarding flow
func StandardProbes(src Sources) []Probe {
	r := reader{src: src}
	core := src.Contracts[step.ContractCore]
	collateral := src.Contracts[step.ContractCollateral]
	lottery := src.Contracts[step.ContractLottery]
	feeToken := src.Contracts[step.ContractFeeToken]

	return []Probe{
		{
			Name:     "indexer.accounts",
			Produces: []signal.Name{signal.HasAccount, signal.AccountID},
			Run:      r.accounts,
		},
		{
			Name:     "ledger.marketId",
			Produces: []signal.Name{signal.MarketID},
			Run:      r.number(signal.MarketID, step.ContractLottery, lottery, "marketId"),
		},
		{
			Name:     "indexer.pools",
			Produces: []signal.Name{signal.PoolCreated, signal.PoolID, signal.PoolConfigured},
			Consumes: []signal.Name{signal.MarketID},
			Run:      r.pools,
		},
		{
			Name:     "ledger.stableToken",
			Produces: []signal.Name{signal.StableToken},
			Run:      r.stableToken,
		},
		{
			Name:     "ledger.collateralAllowance",
			Produces: []signal.Name{signal.CollateralApproved},
			Run:      r.number(signal.CollateralApproved, step.ContractCollateral, collateral, "allowance", src.Account, core),
		},
		{
			Name: "ledger.collateral",
			Produces: []signal.Name{
				signal.CollateralAvailable,
				signal.CollateralDelegated,
				signal.CollateralDeposited,
				signal.PoolDelegated,
			},
			Consumes: []signal.Name{signal.HasAccount, signal.AccountID, signal.PoolCreated, signal.PoolID},
			Run:      r.collateral,
		},
		{
			Name:     "ledger.stableBalance",
			Produces: []signal.Name{signal.StableBalance, signal.StableMinted},
			Consumes: []signal.Name{signal.StableToken},
			Run:      r.stableNumber(signal.StableBalance, signal.StableMinted, "balanceOf", src.Account),
		},
		{
			Name:     "ledger.lotteryAllowance",
			Produces: []signal.Name{signal.LotteryAllowance, signal.LotteryApproved},
			Consumes: []signal.Name{signal.StableToken},
			Run:      r.stableNumber(signal.LotteryAllowance, signal.LotteryApproved, "allowance", src.Account, lottery),
		},
		{
			Name:     "ledger.lotteryFeeBalance",
			Produces: []signal.Name{signal.ContractFeeBalance, signal.ContractFunded},
			Run: r.positive(signal.ContractFeeBalance, signal.ContractFunded,
				r.number(signal.ContractFeeBalance, step.ContractFeeToken, feeToken, "balanceOf", lottery)),
		},
		{
			Name:     "logs.ticketBought",
			Produces: []signal.Name{signal.TicketBought},
			Consumes: []signal.Name{signal.StableToken},
			Run:      r.ticketBought,
		},
		{
			Name:     "logs.drawRequested",
			Produces: []signal.Name{signal.DrawRequested},
			Run:      r.drawRequested,
		},
		{
			Name:     "ledger.jackpot",
			Produces: []signal.Name{signal.Jackpot},
			Run:      r.number(signal.Jackpot, step.ContractLottery, lottery, "jackpot"),
		},
		{
			Name:     "ledger.maxBucketParticipants",
			Produces: []signal.Name{signal.MaxBucketParticipants},
			Run:      r.number(signal.MaxBucketParticipants, step.ContractLottery, lottery, "getMaxBucketParticipants"),
		},
		{
			Name:     "ledger.withdrawableMarketUsd",
			Produces: []signal.Name{signal.WithdrawableMarketUSD},
			Consumes: []signal.Name{signal.MarketID},
			Run:      r.withdrawable,
		},
		{
			Name:     "ledger.collateralBalance",
			Produces: []signal.Name{signal.CollateralBalance},
			Run:      r.number(signal.CollateralBalance, step.ContractCollateral, collateral, "balanceOf", src.Account),
		},
		{
			Name:     "ledger.feeTokenBalance",
			Produces: []signal.Name{signal.FeeTokenBalance},
			Run:      r.number(signal.FeeTokenBalance, step.ContractFeeToken, feeToken, "balanceOf", src.Account),
		},
	}
}

type reader struct {
	src Sources
}

func (r reader) callNumber(ctx context.Context, c step.Contract, addr step.Address, method string, args ...any) (*big.Int, error) {
	out, err := r.src.Ledger.Call(ctx, step.Call{Contract: c, Address: addr, Method: method, Args: args})
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s: empty result", c, method)
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s: unexpected result type %T", c, method, out[0])
	}
	return n, nil
}

// number reads a single numeric view into one signal
func (r reader) number(name signal.Name, c step.Contract, addr step.Address, method string, args ...any) ProbeFunc {
	return func(ctx context.Context, _ signal.Snapshot) (map[signal.Name]signal.Value, error) {
		n, err := r.callNumber(ctx, c, addr, method, args...)
		if err != nil {
			return nil, err
		}
		return map[signal.Name]signal.Value{name: signal.Number(n)}, nil
	}
}

// positive derives a boolean flag from the numeric signal of an inner probe
func (r reader) positive(amount, flag signal.Name, inner ProbeFunc) ProbeFunc {
	return func(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error) {
		out, err := inner(ctx, in)
		if err != nil {
			return nil, err
		}
		out[flag] = signal.FromTruth(out[amount].Truth())
		return out, nil
	}
}

func (r reader) accounts(ctx context.Context, _ signal.Snapshot) (map[signal.Name]signal.Value, error) {
	accounts, err := r.src.Indexer.Accounts(ctx, r.src.Account)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 || accounts[0].Owner == "" {
		return map[signal.Name]signal.Value{signal.HasAccount: signal.Bool(false)}, nil
	}

	id, ok := new(big.Int).SetString(accounts[0].ID, 10)
	if !ok {
		return map[signal.Name]signal.Value{signal.HasAccount: signal.Bool(true)},
			fmt.Errorf("account id %q is not a decimal number", accounts[0].ID)
	}
	return map[signal.Name]signal.Value{
		signal.HasAccount: signal.Bool(true),
		signal.AccountID:  signal.Number(id),
	}, nil
}

func (r reader) pools(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error) {
	pools, err := r.src.Indexer.Pools(ctx, r.src.Account)
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return map[signal.Name]signal.Value{
			signal.PoolCreated:    signal.Bool(false),
			signal.PoolConfigured: signal.Bool(false),
		}, nil
	}

	newest := pools[0]
	out := map[signal.Name]signal.Value{signal.PoolCreated: signal.Bool(true)}

	id, ok := new(big.Int).SetString(newest.ID, 10)
	if !ok {
		return out, fmt.Errorf("pool id %q is not a decimal number", newest.ID)
	}
	out[signal.PoolID] = signal.Number(id)

	market, ok := in.Get(signal.MarketID).AsNumber()
	if !ok {
		return out, nil
	}
	configured := false
	for _, m := range newest.MarketIDs {
		if m == market.String() {
			configured = true
			break
		}
	}
	out[signal.PoolConfigured] = signal.Bool(configured)
	return out, nil
}

func (r reader) stableToken(ctx context.Context, _ signal.Snapshot) (map[signal.Name]signal.Value, error) {
	core := r.src.Contracts[step.ContractCore]
	out, err := r.src.Ledger.Call(ctx, step.Call{Contract: step.ContractCore, Address: core, Method: "getUsdToken"})
	if err != nil {
		return nil, fmt.Errorf("core.getUsdToken: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("core.getUsdToken: empty result")
	}
	addr, ok := out[0].(step.Address)
	if !ok {
		return nil, fmt.Errorf("core.getUsdToken: unexpected result type %T", out[0])
	}
	return map[signal.Name]signal.Value{signal.StableToken: signal.Text(string(addr))}, nil
}

// stableNumber reads a numeric view of the discovered stable token
func (r reader) stableNumber(amount, flag signal.Name, method string, args ...any) ProbeFunc {
	return func(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error) {
		token, ok := in.Get(signal.StableToken).AsText()
		if !ok || token == "" {
			return nil, nil
		}
		n, err := r.callNumber(ctx, step.ContractStable, step.Address(token), method, args...)
		if err != nil {
			return nil, err
		}
		return map[signal.Name]signal.Value{
			amount: signal.Number(n),
			flag:   signal.Bool(n.Sign() > 0),
		}, nil
	}
}

// collateral derives deposit and delegation from the account's available and
// position collateral. Deposited holds when either amount is positive.
func (r reader) collateral(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error) {
	if has, ok := in.Get(signal.HasAccount).AsBool(); ok && !has {
		return map[signal.Name]signal.Value{
			signal.CollateralAvailable: signal.Int64(0),
			signal.CollateralDelegated: signal.Int64(0),
			signal.CollateralDeposited: signal.Bool(false),
			signal.PoolDelegated:       signal.Bool(false),
		}, nil
	}

	accountID, ok := in.Get(signal.AccountID).AsNumber()
	if !ok {
		return nil, nil
	}

	core := r.src.Contracts[step.ContractCore]
	collateral := r.src.Contracts[step.ContractCollateral]
	out := make(map[signal.Name]signal.Value)
	var errs error

	available := signal.Unknown()
	if n, err := r.callNumber(ctx, step.ContractCore, core, "getAccountAvailableCollateral", accountID, collateral); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		available = signal.Number(n)
	}

	delegated := signal.Unknown()
	poolCreated, poolKnown := in.Get(signal.PoolCreated).AsBool()
	switch {
	case poolKnown && !poolCreated:
		delegated = signal.Int64(0)
	case poolKnown:
		poolID, ok := in.Get(signal.PoolID).AsNumber()
		if !ok {
			break
		}
		n, err := r.callNumber(ctx, step.ContractCore, core, "getPositionCollateral", accountID, poolID, collateral)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			delegated = signal.Number(n)
		}
	}

	out[signal.CollateralAvailable] = available
	out[signal.CollateralDelegated] = delegated
	out[signal.CollateralDeposited] = signal.FromTruth(signal.Or(available.Truth(), delegated.Truth()))
	out[signal.PoolDelegated] = signal.FromTruth(delegated.Truth())
	return out, errs
}

func (r reader) ticketBought(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error) {
	token, ok := in.Get(signal.StableToken).AsText()
	if !ok || token == "" {
		return nil, nil
	}
	found, err := r.src.Ledger.HasTransfer(ctx, port.TransferQuery{
		Token: step.Address(token),
		From:  r.src.Account,
		To:    r.src.Contracts[step.ContractLottery],
	})
	if err != nil {
		return nil, fmt.Errorf("stable transfer logs: %w", err)
	}
	return map[signal.Name]signal.Value{signal.TicketBought: signal.Bool(found)}, nil
}

func (r reader) drawRequested(ctx context.Context, _ signal.Snapshot) (map[signal.Name]signal.Value, error) {
	found, err := r.src.Ledger.HasTransfer(ctx, port.TransferQuery{
		Token: r.src.Contracts[step.ContractFeeToken],
		From:  r.src.Contracts[step.ContractLottery],
	})
	if err != nil {
		return nil, fmt.Errorf("fee token transfer logs: %w", err)
	}
	return map[signal.Name]signal.Value{signal.DrawRequested: signal.Bool(found)}, nil
}

func (r reader) withdrawable(ctx context.Context, in signal.Snapshot) (map[signal.Name]signal.Value, error) {
	market, ok := in.Get(signal.MarketID).AsNumber()
	if !ok {
		return nil, nil
	}
	core := r.src.Contracts[step.ContractCore]
	n, err := r.callNumber(ctx, step.ContractCore, core, "getWithdrawableMarketUsd", market)
	if err != nil {
		return nil, err
	}
	return map[signal.Name]signal.Value{signal.WithdrawableMarketUSD: signal.Number(n)}, nil
}
