// Package ledger talks to the EVM ledger over JSON-RPC: view calls, Transfer
// log queries, and signed dynamic-fee transactions.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// Backend is the subset of ethclient.Client the adapter uses
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config holds ledger client settings
type Config struct {
	RPCURL              string
	ChainID             int64
	PrivateKey          string
	Account             string
	LogFromBlock        uint64
	ReceiptPollInterval time.Duration
	GasHeadroomPercent  uint64
}

// Client implements port.LedgerReader and port.LedgerWriter
type Client struct {
	backend Backend
	closer  func()
	signer  *Signer
	account common.Address
	chainID *big.Int
	abis    map[step.Contract]abi.ABI
	cfg     Config
	logger  *zap.Logger

	// serializes nonce assignment
	sendMu sync.Mutex
}

// transferTopic is keccak256("Transfer(address,address,uint256)")
var transferTopic = func() common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("Transfer(address,address,uint256)"))
	return common.BytesToHash(h.Sum(nil))
}()

// Dial connects to the configured RPC endpoint
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc: %w", err)
	}
	c, err := NewClient(ec, cfg, logger)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	return c, nil
}

// NewClient creates a client over an existing backend. Without a private key
// the client is read-only and observes cfg.Account.
func NewClient(backend Backend, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 2 * time.Second
	}
	if cfg.GasHeadroomPercent == 0 {
		cfg.GasHeadroomPercent = 20
	}

	abis, err := parseABIs()
	if err != nil {
		return nil, err
	}

	c := &Client{
		backend: backend,
		chainID: big.NewInt(cfg.ChainID),
		abis:    abis,
		cfg:     cfg,
		logger:  logger,
	}

	switch {
	case cfg.PrivateKey != "":
		signer, err := NewSigner(cfg.PrivateKey, c.chainID)
		if err != nil {
			return nil, err
		}
		c.signer = signer
		c.account = signer.Address()
	case common.IsHexAddress(cfg.Account):
		c.account = common.HexToAddress(cfg.Account)
	default:
		return nil, fmt.Errorf("ledger needs a private key or an account address")
	}

	logger.Info("Ledger client ready",
		zap.String("account", c.account.Hex()),
		zap.Int64("chain_id", cfg.ChainID),
		zap.Bool("read_only", c.signer == nil),
	)
	return c, nil
}

// Account returns the address reads observe and writes are sent from
func (c *Client) Account() step.Address {
	return step.Address(c.account.Hex())
}

// ReadOnly reports whether the client can submit writes
func (c *Client) ReadOnly() bool {
	return c.signer == nil
}

// Close releases the RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) pack(call step.Call) (abi.ABI, []byte, error) {
	a, ok := c.abis[call.Contract]
	if !ok {
		return abi.ABI{}, nil, fmt.Errorf("%w: %s", ErrUnknownContract, call.Contract)
	}
	args, err := encodeArgs(call.Args)
	if err != nil {
		return abi.ABI{}, nil, fmt.Errorf("%s.%s: %w", call.Contract, call.Method, err)
	}
	data, err := a.Pack(call.Method, args...)
	if err != nil {
		return abi.ABI{}, nil, fmt.Errorf("pack %s.%s: %w", call.Contract, call.Method, err)
	}
	return a, data, nil
}

// Call executes a view method at the latest block
func (c *Client) Call(ctx context.Context, call step.Call) ([]any, error) {
	a, data, err := c.pack(call)
	if err != nil {
		return nil, err
	}

	to := toAddress(call.Address)
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.account, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", call.Contract, call.Method, err)
	}

	values, err := a.Unpack(call.Method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", call.Contract, call.Method, err)
	}
	return decodeOutputs(values), nil
}

// HasTransfer looks for a Transfer log of q.Token since the configured start block
func (c *Client) HasTransfer(ctx context.Context, q port.TransferQuery) (bool, error) {
	topics := [][]common.Hash{{transferTopic}, nil, nil}
	if q.From != "" {
		topics[1] = []common.Hash{common.BytesToHash(toAddress(q.From).Bytes())}
	}
	if q.To != "" {
		topics[2] = []common.Hash{common.BytesToHash(toAddress(q.To).Bytes())}
	}

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(c.cfg.LogFromBlock),
		Addresses: []common.Address{toAddress(q.Token)},
		Topics:    topics,
	})
	if err != nil {
		return false, fmt.Errorf("filter transfer logs: %w", err)
	}

	for _, l := range logs {
		if !l.Removed {
			return true, nil
		}
	}
	return false, nil
}

// Submit signs and broadcasts a write
func (c *Client) Submit(ctx context.Context, call step.Call) (port.PendingTx, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}

	_, data, err := c.pack(call)
	if err != nil {
		return nil, err
	}
	to := toAddress(call.Address)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.account, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas for %s.%s: %w", call.Contract, call.Method, err)
	}
	gas = gas * (100 + c.cfg.GasHeadroomPercent) / 100

	tx, err := c.signer.Sign(types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	}))
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send %s.%s: %w", call.Contract, call.Method, err)
	}

	c.logger.Info("Transaction sent",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("contract", call.Contract.String()),
		zap.String("method", call.Method),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)

	return &pendingTx{client: c, hash: tx.Hash(), nonce: nonce}, nil
}

var (
	_ port.LedgerReader = (*Client)(nil)
	_ port.LedgerWriter = (*Client)(nil)
)
