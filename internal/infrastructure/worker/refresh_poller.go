package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/flow"
	"github.com/garyjia/lottery-onboarding/internal/application/session"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
	"github.com/garyjia/lottery-onboarding/internal/domain/workflow"
)

// FlowRefresher is the part of flow.Service the poller drives
type FlowRefresher interface {
	Refresh(ctx context.Context) (flow.View, error)
	Session() *session.Session
}

// RefreshPoller re-reads every signal on a fixed interval so changes made
// outside this process show up without a user action. Ticks are skipped
// while a write is in flight; the executor refreshes on its own.
type RefreshPoller struct {
	flow    FlowRefresher
	timeout time.Duration
	logger  *zap.Logger
	loop    *loop

	mu       sync.Mutex
	status   workflow.Status
	activeID step.ID
	polls    int
}

// NewRefreshPoller creates a refresh poller
func NewRefreshPoller(f FlowRefresher, interval time.Duration, logger *zap.Logger) *RefreshPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &RefreshPoller{
		flow:    f,
		timeout: interval,
		logger:  logger,
	}
	p.loop = &loop{
		name:     p.Name(),
		interval: interval,
		tick:     p.poll,
		logger:   logger,
	}
	return p
}

// Start starts the polling loop
func (p *RefreshPoller) Start(ctx context.Context) error {
	if err := p.loop.start(ctx); err != nil {
		return err
	}
	p.logger.Info("RefreshPoller started", zap.Duration("poll_interval", p.loop.interval))
	return nil
}

// Stop stops the polling loop and waits for an in-flight refresh
func (p *RefreshPoller) Stop() error {
	p.loop.stop()
	p.logger.Info("RefreshPoller stopped")
	return nil
}

// Name returns the worker name for identification
func (p *RefreshPoller) Name() string {
	return "RefreshPoller"
}

// Polls returns the number of refreshes issued
func (p *RefreshPoller) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func (p *RefreshPoller) poll(ctx context.Context) {
	if p.flow.Session().IsSubmitting() {
		p.logger.Debug("Skipping refresh while a write is in flight")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	view, err := p.flow.Refresh(ctx)
	if err != nil {
		p.logger.Warn("Periodic refresh incomplete", zap.Error(err))
	}

	var activeID step.ID
	if view.Active != nil {
		activeID = view.Active.ID
	}

	p.mu.Lock()
	p.polls++
	changed := view.Status != p.status || activeID != p.activeID
	p.status, p.activeID = view.Status, activeID
	p.mu.Unlock()

	if changed {
		p.logger.Info("Workflow position changed",
			zap.String("status", view.Status.String()),
			zap.String("active_step", activeID.String()))
	}
}
