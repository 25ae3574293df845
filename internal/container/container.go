package container

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/dispatcher"
	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/application/service"
	"github.com/garyjia/lottery-onboarding/internal/config"
	"github.com/garyjia/lottery-onboarding/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	database *DatabaseBundle

	// Infrastructure - External
	ledger      Ledger
	indexer     port.Indexer
	ownsLedger  bool
	luckyNumber *big.Int

	// Application
	dispatcher dispatcher.Dispatcher
	history    service.HistoryService
	flow       *FlowBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// Option customizes a container
type Option func(*Container)

// WithLedger uses l instead of dialing the configured endpoint. The
// container does not close an injected ledger.
func WithLedger(l Ledger) Option {
	return func(c *Container) {
		c.ledger = l
	}
}

// WithIndexer uses ix instead of the configured subgraph client
func WithIndexer(ix port.Indexer) Option {
	return func(c *Container) {
		c.indexer = ix
	}
}

// WithLuckyNumber fixes the session's lucky number instead of drawing one
func WithLuckyNumber(n *big.Int) Option {
	return func(c *Container) {
		c.luckyNumber = n
	}
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c := &Container{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components.
// Order: database, external clients, dispatcher and history, flow, workers.
// Workers are only started when startWorkers is set; one-shot CLI commands
// leave them off.
func (c *Container) Start(ctx context.Context, startWorkers bool) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	defer func() {
		if err != nil {
			err = multierr.Append(err, c.teardown())
		}
	}()

	if c.database, err = ProvideDatabase(ctx, c.config.Database, c.logger); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err = c.initExternalClients(ctx); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized")

	c.dispatcher = ProvideDispatcher(c.logger)
	c.history = ProvideHistoryService(c.database.History, c.dispatcher, c.logger)
	c.logger.Info("Dispatcher and history initialized")

	c.flow, err = ProvideFlow(&FlowDeps{
		Amounts:     c.config.Amounts,
		Contracts:   c.config.Contracts,
		Ledger:      c.ledger,
		Indexer:     c.indexer,
		Dispatcher:  c.dispatcher,
		LuckyNumber: c.luckyNumber,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize flow: %w", err)
	}
	c.logger.Info("Flow initialized",
		zap.String("account", string(c.ledger.Account())),
		zap.String("lucky_number", c.flow.Session.LuckyNumber().String()))

	c.workers = ProvideWorkers(c.config, c.flow.Service, c.database.History, c.logger)
	if startWorkers {
		if err = c.workers.StartAll(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		c.logger.Info("Workers started", zap.Int("count", c.workers.Count()))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initExternalClients(ctx context.Context) error {
	if c.ledger == nil {
		l, err := ProvideLedger(ctx, c.config.Ledger, c.logger)
		if err != nil {
			return err
		}
		c.ledger = l
		c.ownsLedger = true
	}
	if c.indexer == nil {
		c.indexer = ProvideIndexer(c.config.Indexer, c.logger)
	}
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() error {
	var errs error

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	// let background invocations confirm before the dispatcher goes away
	if c.flow != nil {
		c.flow.Service.Wait()
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}

	if c.ledger != nil && c.ownsLedger {
		c.ledger.Close()
		c.ledger = nil
	}

	if c.database != nil {
		if err := c.database.Conn.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close database: %w", err))
		}
		c.database = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.database == nil:
		set("database", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.database.Conn.Ping(); err != nil {
			set("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	if c.flow == nil {
		set("flow", ComponentHealth{Message: "not initialized"})
	} else {
		snap := c.flow.Observer.Current()
		set("flow", ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("%d of %d signals known", snap.Len(), len(c.flow.Observer.Signals())),
		})
	}

	if c.workers == nil {
		set("workers", ComponentHealth{Message: "not initialized"})
	} else {
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning() || c.workers.Count() == 0,
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	}

	return status
}

// Flow returns the workflow components.
func (c *Container) Flow() *FlowBundle {
	return c.flow
}

// History returns the audit history service.
func (c *Container) History() service.HistoryService {
	return c.history
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
