package signal

// Name identifies a signal
type Name string

// Gating signals, one per workflow step plus the identifiers steps depend on.
const (
	HasAccount          Name = "hasAccount"
	AccountID           Name = "accountId"
	CollateralApproved  Name = "collateralApproved"
	CollateralAvailable Name = "collateralAvailable"
	CollateralDelegated Name = "collateralDelegated"
	CollateralDeposited Name = "collateralDeposited"
	PoolCreated         Name = "poolCreated"
	PoolID              Name = "poolId"
	PoolDelegated       Name = "poolDelegated"
	PoolConfigured      Name = "poolConfigured"
	MarketID            Name = "marketId"
	StableToken         Name = "stableToken"
	StableBalance       Name = "stableBalance"
	StableMinted        Name = "stableMinted"
	LotteryAllowance    Name = "lotteryAllowance"
	LotteryApproved     Name = "lotteryApproved"
	TicketBought        Name = "ticketBought"
	ContractFeeBalance  Name = "contractFeeBalance"
	ContractFunded      Name = "contractFunded"
	DrawRequested       Name = "drawRequested"
)

// Informational signals, displayed but never gating a step.
const (
	Jackpot               Name = "jackpot"
	MaxBucketParticipants Name = "maxBucketParticipants"
	WithdrawableMarketUSD Name = "withdrawableMarketUsd"
	CollateralBalance     Name = "collateralBalance"
	FeeTokenBalance       Name = "feeTokenBalance"
)

var allNames = []Name{
	HasAccount,
	AccountID,
	CollateralApproved,
	CollateralAvailable,
	CollateralDelegated,
	CollateralDeposited,
	PoolCreated,
	PoolID,
	PoolDelegated,
	PoolConfigured,
	MarketID,
	StableToken,
	StableBalance,
	StableMinted,
	LotteryAllowance,
	LotteryApproved,
	TicketBought,
	ContractFeeBalance,
	ContractFunded,
	DrawRequested,
	Jackpot,
	MaxBucketParticipants,
	WithdrawableMarketUSD,
	CollateralBalance,
	FeeTokenBalance,
}

var validNames = func() map[Name]bool {
	m := make(map[Name]bool, len(allNames))
	for _, n := range allNames {
		m[n] = true
	}
	return m
}()

// All returns every known signal name in declaration order
func All() []Name {
	return append([]Name(nil), allNames...)
}

// String returns the string representation of the name
func (n Name) String() string {
	return string(n)
}

// IsValid returns true if the name is a declared signal
func (n Name) IsValid() bool {
	return validNames[n]
}
