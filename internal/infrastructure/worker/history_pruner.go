package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner trims the audit history down to the newest keep records
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// HistoryPruner keeps the audit history bounded
type HistoryPruner struct {
	repo   Pruner
	keep   int
	logger *zap.Logger
	loop   *loop
}

// NewHistoryPruner creates a pruner that runs every interval
func NewHistoryPruner(repo Pruner, keep int, interval time.Duration, logger *zap.Logger) *HistoryPruner {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &HistoryPruner{repo: repo, keep: keep, logger: logger}
	p.loop = &loop{
		name:     p.Name(),
		interval: interval,
		tick:     p.prune,
		logger:   logger,
	}
	return p
}

// Start starts the pruning loop
func (p *HistoryPruner) Start(ctx context.Context) error {
	return p.loop.start(ctx)
}

// Stop stops the pruning loop
func (p *HistoryPruner) Stop() error {
	p.loop.stop()
	return nil
}

// Name returns the worker name for identification
func (p *HistoryPruner) Name() string {
	return "HistoryPruner"
}

func (p *HistoryPruner) prune(ctx context.Context) {
	n, err := p.repo.Prune(ctx, p.keep)
	if err != nil {
		p.logger.Error("Failed to prune execution history", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("Pruned execution history",
			zap.Int64("removed", n),
			zap.Int("kept", p.keep))
	}
}
