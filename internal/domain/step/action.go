package step

import (
	"fmt"
	"math/big"

	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
)

// Contract identifies a contract role. The ledger adapter maps a role to an ABI.
type Contract string

const (
	ContractCore       Contract = "core"
	ContractCollateral Contract = "collateral"
	ContractStable     Contract = "stable"
	ContractLottery    Contract = "lottery"
	ContractFeeToken   Contract = "feeToken"
)

// String returns the string representation of the contract role
func (c Contract) String() string {
	return string(c)
}

// Address is a hex encoded ledger address
type Address string

// MarketConfiguration is one entry of a pool configuration
type MarketConfiguration struct {
	MarketID             *big.Int
	WeightD18            *big.Int
	MaxDebtShareValueD18 *big.Int
}

// Env carries session-level facts that are not signals
type Env struct {
	Account     Address
	LuckyNumber *big.Int
	Contracts   map[Contract]Address
}

// ContractAddress returns the configured address of a contract role
func (e Env) ContractAddress(c Contract) (Address, bool) {
	a, ok := e.Contracts[c]
	return a, ok && a != ""
}

// Arg is a write argument, either a literal or a placeholder resolved from a snapshot
type Arg interface {
	Resolve(s signal.Snapshot, env Env) (any, error)
	String() string
}

// Target names the contract a write is sent to. When From is set, the
// address is read from that signal instead of the configured address book.
type Target struct {
	Contract Contract
	From     signal.Name
}

// Action describes a write: target contract, method and arguments
type Action struct {
	Target Target
	Method string
	Args   []Arg
}

// Call is a fully resolved write or read
type Call struct {
	Contract Contract
	Address  Address
	Method   string
	Args     []any
}

// Resolve replaces every placeholder with its value from the snapshot.
// The first unresolved placeholder fails the whole action.
func (a Action) Resolve(s signal.Snapshot, env Env) (Call, error) {
	addr, err := a.Target.resolve(s, env)
	if err != nil {
		return Call{}, err
	}

	args := make([]any, 0, len(a.Args))
	for _, arg := range a.Args {
		v, err := arg.Resolve(s, env)
		if err != nil {
			return Call{}, err
		}
		args = append(args, v)
	}

	return Call{
		Contract: a.Target.Contract,
		Address:  addr,
		Method:   a.Method,
		Args:     args,
	}, nil
}

func (t Target) resolve(s signal.Snapshot, env Env) (Address, error) {
	if t.From != "" {
		text, ok := s.Get(t.From).AsText()
		if !ok || text == "" {
			return "", unresolved(string(t.From))
		}
		return Address(text), nil
	}
	addr, ok := env.ContractAddress(t.Contract)
	if !ok {
		return "", unresolved("contract:" + string(t.Contract))
	}
	return addr, nil
}

type literal struct {
	v any
}

// Lit is a fixed argument
func Lit(v any) Arg {
	return literal{v: v}
}

func (l literal) Resolve(signal.Snapshot, Env) (any, error) {
	if n, ok := l.v.(*big.Int); ok {
		return new(big.Int).Set(n), nil
	}
	return l.v, nil
}

func (l literal) String() string {
	return fmt.Sprint(l.v)
}

type fromSignal struct {
	name signal.Name
}

// FromSignal resolves to the value of a signal: numbers as *big.Int, text as Address
func FromSignal(name signal.Name) Arg {
	return fromSignal{name: name}
}

func (f fromSignal) Resolve(s signal.Snapshot, _ Env) (any, error) {
	v := s.Get(f.name)
	if n, ok := v.AsNumber(); ok {
		return n, nil
	}
	if text, ok := v.AsText(); ok && text != "" {
		return Address(text), nil
	}
	return nil, unresolved(string(f.name))
}

func (f fromSignal) String() string {
	return "$" + string(f.name)
}

type account struct{}

// Account resolves to the session account address
func Account() Arg {
	return account{}
}

func (account) Resolve(_ signal.Snapshot, env Env) (any, error) {
	if env.Account == "" {
		return nil, unresolved("account")
	}
	return env.Account, nil
}

func (account) String() string {
	return "$account"
}

type contractAddr struct {
	c Contract
}

// ContractAddr resolves to the configured address of a contract role
func ContractAddr(c Contract) Arg {
	return contractAddr{c: c}
}

func (a contractAddr) Resolve(_ signal.Snapshot, env Env) (any, error) {
	addr, ok := env.ContractAddress(a.c)
	if !ok {
		return nil, unresolved("contract:" + string(a.c))
	}
	return addr, nil
}

func (a contractAddr) String() string {
	return "@" + string(a.c)
}

type luckyNumber struct{}

// LuckyNumber resolves to the number drawn for this session
func LuckyNumber() Arg {
	return luckyNumber{}
}

func (luckyNumber) Resolve(_ signal.Snapshot, env Env) (any, error) {
	if env.LuckyNumber == nil {
		return nil, unresolved("luckyNumber")
	}
	return new(big.Int).Set(env.LuckyNumber), nil
}

func (luckyNumber) String() string {
	return "$luckyNumber"
}

type poolConfiguration struct {
	market  signal.Name
	weight  *big.Int
	maxDebt *big.Int
}

// PoolConfiguration resolves to a single-entry market configuration list
// for the market id held by the given signal
func PoolConfiguration(market signal.Name, weight, maxDebt *big.Int) Arg {
	return poolConfiguration{market: market, weight: weight, maxDebt: maxDebt}
}

func (p poolConfiguration) Resolve(s signal.Snapshot, _ Env) (any, error) {
	id, ok := s.Get(p.market).AsNumber()
	if !ok {
		return nil, unresolved(string(p.market))
	}
	return []MarketConfiguration{{
		MarketID:             id,
		WeightD18:            new(big.Int).Set(p.weight),
		MaxDebtShareValueD18: new(big.Int).Set(p.maxDebt),
	}}, nil
}

func (p poolConfiguration) String() string {
	return fmt.Sprintf("[{market:$%s weight:%s maxDebt:%s}]", p.market, p.weight, p.maxDebt)
}
