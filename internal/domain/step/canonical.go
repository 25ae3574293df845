package step

import (
	"math/big"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
)

// Amounts are the fixed write amounts, in 18-decimal base units
type Amounts struct {
	Deposit     *big.Int
	Delegate    *big.Int
	Leverage    *big.Int
	Mint        *big.Int
	FeeFunding  *big.Int
	PoolWeight  *big.Int
	PoolMaxDebt *big.Int
}

var (
	unit       = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Units scales a whole token amount to 18-decimal base units
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unit)
}

// MaxUint256 returns the unlimited approval amount
func MaxUint256() *big.Int {
	return new(big.Int).Set(maxUint256)
}

// DefaultAmounts deposits and delegates 20 collateral, mints 4 stable,
// funds the lottery with 1 fee token and sets weight and max debt share to 1.
func DefaultAmounts() Amounts {
	return Amounts{
		Deposit:     Units(20),
		Delegate:    Units(20),
		Leverage:    Units(1),
		Mint:        Units(4),
		FeeFunding:  Units(1),
		PoolWeight:  Units(1),
		PoolMaxDebt: Units(1),
	}
}

// Canonical builds the registry for the lottery market onboarding flow
func Canonical(a Amounts) (*Registry, error) {
	core := Target{Contract: ContractCore}
	collateral := ContractAddr(ContractCollateral)

	return NewRegistry(
		Descriptor{
			Order:          1,
			ID:             CreateAccount,
			Prompt:         "You do not have an account yet, please create one",
			ButtonText:     "Create Account",
			FailureMessage: "account creation failed",
			Precondition:   signal.AllTrue(signal.HasAccount),
			Action: Action{
				Target: core,
				Method: "createAccount",
				Args:   []Arg{LuckyNumber()},
			},
			Confirmations: 2,
			Refreshes:     []signal.Name{signal.HasAccount, signal.AccountID},
		},
		Descriptor{
			Order:          2,
			ID:             ApproveCollateral,
			Prompt:         "Approve collateral to deposit into your account",
			ButtonText:     "Approve Collateral",
			FailureMessage: "collateral approval failed",
			Precondition:   signal.AllTrue(signal.CollateralApproved),
			Action: Action{
				Target: Target{Contract: ContractCollateral},
				Method: "approve",
				Args:   []Arg{ContractAddr(ContractCore), Lit(MaxUint256())},
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.CollateralApproved},
		},
		Descriptor{
			Order:          3,
			ID:             DepositCollateral,
			Prompt:         "Deposit collateral into your account",
			ButtonText:     "Deposit Collateral",
			FailureMessage: "collateral deposit failed",
			Precondition:   signal.AllTrue(signal.CollateralDeposited),
			Action: Action{
				Target: core,
				Method: "deposit",
				Args:   []Arg{FromSignal(signal.AccountID), collateral, Lit(a.Deposit)},
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.CollateralDeposited},
		},
		Descriptor{
			Order:          4,
			ID:             CreatePool,
			Prompt:         "Create a pool in order to provide stable liquidity to the market",
			ButtonText:     "Create Pool",
			FailureMessage: "pool creation failed",
			Precondition:   signal.AllTrue(signal.PoolCreated),
			Action: Action{
				Target: core,
				Method: "createPool",
				Args:   []Arg{LuckyNumber(), Account()},
			},
			Confirmations: 2,
			Refreshes:     []signal.Name{signal.PoolCreated, signal.PoolID, signal.PoolConfigured},
		},
		Descriptor{
			Order:          5,
			ID:             DelegateCollateral,
			Prompt:         "Delegate the deposited collateral to the pool",
			ButtonText:     "Delegate Collateral To Pool",
			FailureMessage: "collateral delegation failed",
			Precondition:   signal.AllTrue(signal.PoolDelegated),
			Action: Action{
				Target: core,
				Method: "delegateCollateral",
				Args: []Arg{
					FromSignal(signal.AccountID),
					FromSignal(signal.PoolID),
					collateral,
					Lit(a.Delegate),
					Lit(a.Leverage),
				},
			},
			Confirmations: 1,
			Refreshes: []signal.Name{
				signal.PoolDelegated,
				signal.CollateralDelegated,
				signal.CollateralDeposited,
			},
		},
		Descriptor{
			Order:          6,
			ID:             ConfigurePool,
			Prompt:         "Configure your pool to support the market",
			ButtonText:     "Set Pool Configuration",
			FailureMessage: "pool configuration failed",
			Precondition:   signal.AllTrue(signal.PoolConfigured),
			Action: Action{
				Target: core,
				Method: "setPoolConfiguration",
				Args: []Arg{
					FromSignal(signal.PoolID),
					PoolConfiguration(signal.MarketID, a.PoolWeight, a.PoolMaxDebt),
				},
			},
			Confirmations: 2,
			Refreshes:     []signal.Name{signal.PoolConfigured},
		},
		Descriptor{
			Order:          7,
			ID:             MintStable,
			Prompt:         "Mint stable tokens against your collateral to buy lottery tickets",
			ButtonText:     "Mint Stable",
			FailureMessage: "stable mint failed",
			Precondition:   signal.AllTrue(signal.StableMinted),
			Action: Action{
				Target: core,
				Method: "mintUsd",
				Args: []Arg{
					FromSignal(signal.AccountID),
					FromSignal(signal.PoolID),
					collateral,
					Lit(a.Mint),
				},
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.StableMinted, signal.StableBalance},
		},
		Descriptor{
			Order:          8,
			ID:             ApproveSpend,
			Prompt:         "Approve the lottery market to spend your stable tokens",
			ButtonText:     "Allowance to Lottery",
			FailureMessage: "lottery allowance failed",
			Precondition:   signal.AllTrue(signal.LotteryApproved),
			Action: Action{
				Target: Target{Contract: ContractStable, From: signal.StableToken},
				Method: "approve",
				Args:   []Arg{ContractAddr(ContractLottery), Lit(MaxUint256())},
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.LotteryApproved, signal.LotteryAllowance},
		},
		Descriptor{
			Order:          9,
			ID:             BuyTicket,
			Prompt:         "Buy a ticket for the lottery",
			ButtonText:     "Buy Ticket (can be executed many times)",
			FailureMessage: "ticket purchase failed",
			Precondition:   signal.AllTrue(signal.TicketBought),
			Action: Action{
				Target: Target{Contract: ContractLottery},
				Method: "buy",
				Args:   []Arg{Account(), LuckyNumber()},
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.TicketBought},
			Repeatable:    true,
		},
		Descriptor{
			Order:          10,
			ID:             FundContract,
			Prompt:         "The lottery needs fee tokens to request a random number",
			ButtonText:     "Send Fee Token to Lottery",
			FailureMessage: "lottery funding failed",
			Precondition:   signal.AllTrue(signal.ContractFunded),
			Action: Action{
				Target: Target{Contract: ContractFeeToken},
				Method: "transfer",
				Args:   []Arg{ContractAddr(ContractLottery), Lit(a.FeeFunding)},
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.ContractFunded, signal.ContractFeeBalance},
		},
		Descriptor{
			Order:          11,
			ID:             RequestDraw,
			Prompt:         "Draw a random number",
			ButtonText:     "Draw a number (can be executed many times)",
			FailureMessage: "draw request failed",
			Precondition:   signal.AllTrue(signal.DrawRequested),
			Action: Action{
				Target: Target{Contract: ContractLottery},
				Method: "startDraw",
			},
			Confirmations: 1,
			Refreshes:     []signal.Name{signal.DrawRequested, signal.Jackpot},
			Repeatable:    true,
		},
	)
}
