package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
)

type pendingTx struct {
	client *Client
	hash   common.Hash
	nonce  uint64
}

func (p *pendingTx) Hash() string {
	return p.hash.Hex()
}

// AwaitConfirmations polls until the receipt is n blocks deep, the transaction
// reverts, its nonce is taken by another transaction, or ctx ends. The receipt
// is re-read on every poll so a reorg that moves the transaction is followed.
func (p *pendingTx) AwaitConfirmations(ctx context.Context, n int) (*port.Receipt, error) {
	if n < 1 {
		n = 1
	}

	ticker := time.NewTicker(p.client.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, done, err := p.poll(ctx, n)
		if err != nil {
			return nil, err
		}
		if done {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *pendingTx) poll(ctx context.Context, n int) (*port.Receipt, bool, error) {
	b := p.client.backend

	r, err := b.TransactionReceipt(ctx, p.hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, false, p.checkReplaced(ctx)
	}
	if err != nil {
		p.client.logger.Warn("Receipt lookup failed", zap.String("tx_hash", p.hash.Hex()), zap.Error(err))
		return nil, false, nil
	}

	if r.Status == types.ReceiptStatusFailed {
		return nil, false, fmt.Errorf("%w: %s in block %d", ErrReverted, p.hash.Hex(), r.BlockNumber.Uint64())
	}

	head, err := b.BlockNumber(ctx)
	if err != nil {
		p.client.logger.Warn("Block number lookup failed", zap.Error(err))
		return nil, false, nil
	}

	mined := r.BlockNumber.Uint64()
	if head+1 < mined+uint64(n) {
		return nil, false, nil
	}

	return &port.Receipt{
		TxHash:      p.hash.Hex(),
		BlockNumber: mined,
		GasUsed:     r.GasUsed,
		Success:     true,
	}, true, nil
}

// checkReplaced fails only when the node no longer knows the transaction and
// the account nonce has moved past it, so another transaction took the slot.
// Anything else keeps the wait going.
func (p *pendingTx) checkReplaced(ctx context.Context) error {
	b := p.client.backend

	_, _, err := b.TransactionByHash(ctx, p.hash)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ethereum.NotFound) {
		p.client.logger.Warn("Transaction lookup failed", zap.String("tx_hash", p.hash.Hex()), zap.Error(err))
		return nil
	}

	mined, err := b.NonceAt(ctx, p.client.account, nil)
	if err != nil {
		p.client.logger.Warn("Nonce lookup failed", zap.String("tx_hash", p.hash.Hex()), zap.Error(err))
		return nil
	}
	if mined <= p.nonce {
		return nil
	}

	// The slot may have been filled by this very transaction on a node
	// whose receipt index lags; read the receipt once more before giving up.
	if _, err := b.TransactionReceipt(ctx, p.hash); err == nil || !errors.Is(err, ethereum.NotFound) {
		return nil
	}
	return fmt.Errorf("%w: %s nonce %d was used by another transaction", ErrDropped, p.hash.Hex(), p.nonce)
}
