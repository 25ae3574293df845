package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var (
	coreAddr    = step.Address("0x00000000000000000000000000000000000000C0")
	lotteryAddr = step.Address("0x00000000000000000000000000000000000000C2")
	tokenAddr   = step.Address(common.HexToAddress("0x00000000000000000000000000000000000000d0").Hex())
)

type fakeBackend struct {
	mu sync.Mutex

	callResult []byte
	callMsgs   []ethereum.CallMsg

	logs    []types.Log
	queries []ethereum.FilterQuery

	sent []*types.Transaction

	receipts    []*types.Receipt
	receiptErrs []error
	knownTx     bool
	minedNonce  uint64
	head        uint64
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callMsgs = append(f.callMsgs, msg)
	return f.callResult, nil
}

func (f *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.logs, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 5, nil }

func (f *fakeBackend) NonceAt(context.Context, common.Address, *big.Int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minedNonce, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(2), nil }

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10)}, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) { return 100000, nil }

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

// TransactionReceipt pops the next scripted receipt; the last one repeats
func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.receiptErrs) > 0 {
		err := f.receiptErrs[0]
		f.receiptErrs = f.receiptErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	r := f.receipts[0]
	if len(f.receipts) > 1 {
		f.receipts = f.receipts[1:]
	}
	f.head++
	return r, nil
}

func (f *fakeBackend) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.knownTx {
		return nil, false, ethereum.NotFound
	}
	return nil, true, nil
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func newTestClient(t *testing.T, b *fakeBackend, key string) *Client {
	t.Helper()
	c, err := NewClient(b, Config{
		ChainID:             5,
		PrivateKey:          key,
		Account:             "0x00000000000000000000000000000000000000aa",
		LogFromBlock:        1000,
		ReceiptPollInterval: time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestCall_DecodesAddress(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, "")

	out, err := c.abis[step.ContractCore].Methods["getUsdToken"].Outputs.Pack(common.HexToAddress(string(tokenAddr)))
	require.NoError(t, err)
	b.callResult = out

	values, err := c.Call(context.Background(), step.Call{Contract: step.ContractCore, Address: coreAddr, Method: "getUsdToken"})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, tokenAddr, values[0])

	require.Len(t, b.callMsgs, 1)
	assert.Equal(t, common.HexToAddress(string(coreAddr)), *b.callMsgs[0].To)
	assert.Equal(t, c.abis[step.ContractCore].Methods["getUsdToken"].ID, b.callMsgs[0].Data)
}

func TestCall_DecodesNumbers(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, "")

	out, err := c.abis[step.ContractCore].Methods["getPositionCollateral"].Outputs.Pack(big.NewInt(20), big.NewInt(40))
	require.NoError(t, err)
	b.callResult = out

	values, err := c.Call(context.Background(), step.Call{
		Contract: step.ContractCore,
		Address:  coreAddr,
		Method:   "getPositionCollateral",
		Args:     []any{big.NewInt(1), big.NewInt(2), tokenAddr},
	})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, int64(20), values[0].(*big.Int).Int64())
}

func TestCall_RejectsBadArguments(t *testing.T) {
	c := newTestClient(t, &fakeBackend{}, "")

	_, err := c.Call(context.Background(), step.Call{Contract: "vault", Method: "x"})
	assert.True(t, errors.Is(err, ErrUnknownContract))

	_, err = c.Call(context.Background(), step.Call{
		Contract: step.ContractCollateral, Address: tokenAddr, Method: "balanceOf", Args: []any{3.5},
	})
	assert.True(t, errors.Is(err, ErrUnsupportedArg))
}

func TestHasTransfer_BuildsTopics(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, "")

	found, err := c.HasTransfer(context.Background(), port.TransferQuery{Token: tokenAddr, From: c.Account(), To: lotteryAddr})
	require.NoError(t, err)
	assert.False(t, found)

	require.Len(t, b.queries, 1)
	q := b.queries[0]
	assert.Equal(t, uint64(1000), q.FromBlock.Uint64())
	assert.Equal(t, []common.Address{common.HexToAddress(string(tokenAddr))}, q.Addresses)
	assert.Equal(t, c.abis[step.ContractStable].Events["Transfer"].ID, q.Topics[0][0])
	assert.Equal(t, common.BytesToHash(common.HexToAddress(string(lotteryAddr)).Bytes()), q.Topics[2][0])

	b.logs = []types.Log{{Removed: true}}
	found, err = c.HasTransfer(context.Background(), port.TransferQuery{Token: tokenAddr, From: lotteryAddr})
	require.NoError(t, err)
	assert.False(t, found, "removed logs do not count")
	assert.Nil(t, b.queries[1].Topics[2])

	b.logs = []types.Log{{}}
	found, err = c.HasTransfer(context.Background(), port.TransferQuery{Token: tokenAddr, From: lotteryAddr})
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSubmit_ReadOnly(t *testing.T) {
	c := newTestClient(t, &fakeBackend{}, "")
	assert.True(t, c.ReadOnly())
	assert.True(t, strings.EqualFold("0x00000000000000000000000000000000000000aa", string(c.Account())))

	_, err := c.Submit(context.Background(), step.Call{Contract: step.ContractLottery, Address: lotteryAddr, Method: "startDraw"})
	assert.True(t, errors.Is(err, ErrReadOnly))
}

func TestSubmit_SignsDynamicFeeTransaction(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, "0x"+testKey)
	require.False(t, c.ReadOnly())

	pending, err := c.Submit(context.Background(), step.Call{
		Contract: step.ContractCore,
		Address:  coreAddr,
		Method:   "setPoolConfiguration",
		Args: []any{big.NewInt(9), []step.MarketConfiguration{{
			MarketID:             big.NewInt(3),
			WeightD18:            step.Units(1),
			MaxDebtShareValueD18: step.Units(1),
		}}},
	})
	require.NoError(t, err)

	require.Len(t, b.sent, 1)
	tx := b.sent[0]
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, uint64(120000), tx.Gas())
	assert.Equal(t, int64(22), tx.GasFeeCap().Int64())
	assert.Equal(t, int64(5), tx.ChainId().Int64())
	assert.Equal(t, tx.Hash().Hex(), pending.Hash())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(5)), tx)
	require.NoError(t, err)
	assert.Equal(t, step.Address(sender.Hex()), c.Account())
}

func TestAwaitConfirmations(t *testing.T) {
	submit := func(t *testing.T, b *fakeBackend) port.PendingTx {
		c := newTestClient(t, b, testKey)
		p, err := c.Submit(context.Background(), step.Call{Contract: step.ContractLottery, Address: lotteryAddr, Method: "startDraw"})
		require.NoError(t, err)
		return p
	}

	t.Run("waits for depth", func(t *testing.T) {
		b := &fakeBackend{
			knownTx:     true,
			receiptErrs: []error{ethereum.NotFound, errors.New("rpc hiccup")},
			receipts:    []*types.Receipt{{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10), GasUsed: 21000}},
			head:        8,
		}
		r, err := submit(t, b).AwaitConfirmations(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), r.BlockNumber)
		assert.True(t, r.Success)
		assert.GreaterOrEqual(t, b.head, uint64(11))
	})

	t.Run("reverted", func(t *testing.T) {
		b := &fakeBackend{
			knownTx:  true,
			receipts: []*types.Receipt{{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(10)}},
		}
		_, err := submit(t, b).AwaitConfirmations(context.Background(), 1)
		assert.True(t, errors.Is(err, ErrReverted))
	})

	t.Run("unseen transaction keeps waiting", func(t *testing.T) {
		b := &fakeBackend{
			receiptErrs: []error{ethereum.NotFound, ethereum.NotFound, ethereum.NotFound, ethereum.NotFound, ethereum.NotFound},
			receipts:    []*types.Receipt{{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10), GasUsed: 21000}},
			head:        10,
		}
		r, err := submit(t, b).AwaitConfirmations(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), r.BlockNumber)
		assert.Empty(t, b.receiptErrs)
	})

	t.Run("nonce taken by another transaction", func(t *testing.T) {
		b := &fakeBackend{minedNonce: 6}
		_, err := submit(t, b).AwaitConfirmations(context.Background(), 1)
		assert.True(t, errors.Is(err, ErrDropped))
	})

	t.Run("pending nonce is not dropped", func(t *testing.T) {
		b := &fakeBackend{minedNonce: 5}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := submit(t, b).AwaitConfirmations(ctx, 1)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.False(t, errors.Is(err, ErrDropped))
	})

	t.Run("cancelled", func(t *testing.T) {
		b := &fakeBackend{knownTx: true}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := submit(t, b).AwaitConfirmations(ctx, 1)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestNewClient_RequiresIdentity(t *testing.T) {
	_, err := NewClient(&fakeBackend{}, Config{ChainID: 1}, nil)
	assert.Error(t, err)

	_, err = NewClient(&fakeBackend{}, Config{ChainID: 1, PrivateKey: "zz"}, nil)
	assert.Error(t, err)
}
