package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// encodeArgs converts resolved step arguments into the types the ABI packer expects
func encodeArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case step.Address:
			if !common.IsHexAddress(string(v)) {
				return nil, fmt.Errorf("argument %d: invalid address %q", i, v)
			}
			out[i] = common.HexToAddress(string(v))
		case *big.Int:
			out[i] = v
		case bool:
			out[i] = v
		case []step.MarketConfiguration:
			cfgs := make([]marketConfiguration, len(v))
			for j, c := range v {
				cfgs[j] = marketConfiguration{
					MarketID:             c.MarketID,
					WeightD18:            c.WeightD18,
					MaxDebtShareValueD18: c.MaxDebtShareValueD18,
				}
			}
			out[i] = cfgs
		default:
			return nil, fmt.Errorf("%w: argument %d is %T", ErrUnsupportedArg, i, a)
		}
	}
	return out, nil
}

// decodeOutputs normalises unpacked values: integers become *big.Int and
// addresses become step.Address
func decodeOutputs(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case common.Address:
			out[i] = step.Address(x.Hex())
		case uint8:
			out[i] = new(big.Int).SetUint64(uint64(x))
		case uint16:
			out[i] = new(big.Int).SetUint64(uint64(x))
		case uint32:
			out[i] = new(big.Int).SetUint64(uint64(x))
		case uint64:
			out[i] = new(big.Int).SetUint64(x)
		default:
			out[i] = v
		}
	}
	return out
}

func toAddress(a step.Address) common.Address {
	return common.HexToAddress(string(a))
}
