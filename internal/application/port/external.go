package port

import (
	"context"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// TransferQuery selects ERC-20 Transfer logs of one token.
// An empty From or To matches any address.
type TransferQuery struct {
	Token step.Address
	From  step.Address
	To    step.Address
}

// LedgerReader performs read-only contract calls and log queries
type LedgerReader interface {
	// Call invokes a view method and returns its decoded outputs
	Call(ctx context.Context, call step.Call) ([]any, error)

	// HasTransfer reports whether at least one matching Transfer log exists
	HasTransfer(ctx context.Context, q TransferQuery) (bool, error)
}

// Receipt is the outcome of a mined write
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
}

// PendingTx is a submitted, not yet confirmed write
type PendingTx interface {
	Hash() string

	// AwaitConfirmations blocks until the write is buried under n blocks.
	// A reverted or dropped write returns an error.
	AwaitConfirmations(ctx context.Context, n int) (*Receipt, error)
}

// LedgerWriter signs and submits state-changing calls
type LedgerWriter interface {
	Submit(ctx context.Context, call step.Call) (PendingTx, error)

	// Account returns the address writes are sent from
	Account() step.Address
}

// IndexedAccount is an account owned by the user
type IndexedAccount struct {
	ID    string
	Owner string
}

// IndexedPool is a pool owned by the user with the markets it is configured for
type IndexedPool struct {
	ID        string
	Owner     string
	CreatedAt int64
	MarketIDs []string
}

// Indexer queries the read-only indexing service
type Indexer interface {
	Accounts(ctx context.Context, owner step.Address) ([]IndexedAccount, error)

	// Pools returns the owner's pools, newest first
	Pools(ctx context.Context, owner step.Address) ([]IndexedPool, error)
}
