package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// Only the methods the onboarding flow reads or writes are declared.

const coreABI = `[
{"type":"function","name":"createAccount","stateMutability":"nonpayable","inputs":[{"name":"requestedAccountId","type":"uint128"}],"outputs":[]},
{"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"accountId","type":"uint128"},{"name":"collateralType","type":"address"},{"name":"tokenAmount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"createPool","stateMutability":"nonpayable","inputs":[{"name":"requestedPoolId","type":"uint128"},{"name":"owner","type":"address"}],"outputs":[]},
{"type":"function","name":"delegateCollateral","stateMutability":"nonpayable","inputs":[{"name":"accountId","type":"uint128"},{"name":"poolId","type":"uint128"},{"name":"collateralType","type":"address"},{"name":"newCollateralAmountD18","type":"uint256"},{"name":"leverage","type":"uint256"}],"outputs":[]},
{"type":"function","name":"setPoolConfiguration","stateMutability":"nonpayable","inputs":[{"name":"poolId","type":"uint128"},{"name":"newMarketConfigurations","type":"tuple[]","components":[{"name":"marketId","type":"uint128"},{"name":"weightD18","type":"uint128"},{"name":"maxDebtShareValueD18","type":"int128"}]}],"outputs":[]},
{"type":"function","name":"mintUsd","stateMutability":"nonpayable","inputs":[{"name":"accountId","type":"uint128"},{"name":"poolId","type":"uint128"},{"name":"collateralType","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"getUsdToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getAccountAvailableCollateral","stateMutability":"view","inputs":[{"name":"accountId","type":"uint128"},{"name":"collateralType","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getPositionCollateral","stateMutability":"view","inputs":[{"name":"accountId","type":"uint128"},{"name":"poolId","type":"uint128"},{"name":"collateralType","type":"address"}],"outputs":[{"name":"collateralAmount","type":"uint256"},{"name":"collateralValue","type":"uint256"}]},
{"type":"function","name":"getWithdrawableMarketUsd","stateMutability":"view","inputs":[{"name":"marketId","type":"uint128"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABI = `[
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

const lotteryABI = `[
{"type":"function","name":"marketId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint128"}]},
{"type":"function","name":"jackpot","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getMaxBucketParticipants","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"buy","stateMutability":"nonpayable","inputs":[{"name":"beneficiary","type":"address"},{"name":"lotteryNumber","type":"uint256"}],"outputs":[]},
{"type":"function","name":"startDraw","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// marketConfiguration mirrors the setPoolConfiguration tuple
type marketConfiguration struct {
	MarketID             *big.Int `abi:"marketId"`
	WeightD18            *big.Int `abi:"weightD18"`
	MaxDebtShareValueD18 *big.Int `abi:"maxDebtShareValueD18"`
}

// parseABIs maps every contract role to its ABI
func parseABIs() (map[step.Contract]abi.ABI, error) {
	sources := map[step.Contract]string{
		step.ContractCore:       coreABI,
		step.ContractCollateral: erc20ABI,
		step.ContractStable:     erc20ABI,
		step.ContractFeeToken:   erc20ABI,
		step.ContractLottery:    lotteryABI,
	}

	parsed := make(map[step.Contract]abi.ABI, len(sources))
	for c, src := range sources {
		a, err := abi.JSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", c, err)
		}
		parsed[c] = a
	}
	return parsed, nil
}
