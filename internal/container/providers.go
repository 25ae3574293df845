// Package container provides dependency injection and lifecycle management
// for the onboarding flow server and CLI.
package container

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/dispatcher"
	"github.com/garyjia/lottery-onboarding/internal/application/executor"
	"github.com/garyjia/lottery-onboarding/internal/application/flow"
	"github.com/garyjia/lottery-onboarding/internal/application/observer"
	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/application/service"
	"github.com/garyjia/lottery-onboarding/internal/application/session"
	"github.com/garyjia/lottery-onboarding/internal/config"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
	"github.com/garyjia/lottery-onboarding/internal/domain/workflow"
	"github.com/garyjia/lottery-onboarding/internal/infrastructure/indexer"
	"github.com/garyjia/lottery-onboarding/internal/infrastructure/ledger"
	"github.com/garyjia/lottery-onboarding/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/lottery-onboarding/internal/infrastructure/worker"
	"github.com/garyjia/lottery-onboarding/pkg/database"
)

// pruneInterval is how often the audit history is trimmed
const pruneInterval = time.Hour

// Ledger is the full ledger adapter the container owns
type Ledger interface {
	port.LedgerReader
	port.LedgerWriter
	Close()
}

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn    *database.DB
	History *sqlite.HistoryRepository
}

// FlowBundle holds the workflow components of one session.
type FlowBundle struct {
	Registry *step.Registry
	Engine   *workflow.Engine
	Observer *observer.Observer
	Executor *executor.Executor
	Session  *session.Session
	Service  *flow.Service
}

// ProvideDatabase opens the audit database and applies the embedded migrations.
func ProvideDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if _, err := database.NewMigrator(conn, logger).Migrate(ctx, database.Migrations()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:    conn,
		History: sqlite.NewHistoryRepository(conn, logger),
	}, nil
}

// ProvideLedger dials the JSON-RPC endpoint.
func ProvideLedger(ctx context.Context, cfg config.LedgerConfig, logger *zap.Logger) (Ledger, error) {
	client, err := ledger.Dial(ctx, ledger.Config{
		RPCURL:              cfg.RPCURL,
		ChainID:             cfg.ChainID,
		PrivateKey:          cfg.PrivateKey,
		Account:             cfg.Account,
		LogFromBlock:        cfg.LogFromBlock,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
		GasHeadroomPercent:  cfg.GasHeadroomPercent,
	}, logger.Named("ledger"))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ProvideIndexer creates the subgraph client.
func ProvideIndexer(cfg config.IndexerConfig, logger *zap.Logger) port.Indexer {
	return indexer.NewClient(indexer.Config{
		URL:         cfg.URL,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
	}, logger.Named("indexer"))
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(dispatcher.NewZapLogger(logger.Named("dispatcher"))))
}

// ProvideHistoryService creates the audit trail service and subscribes it to
// execution events.
func ProvideHistoryService(repo port.HistoryRepository, d dispatcher.Dispatcher, logger *zap.Logger) service.HistoryService {
	svc := service.NewHistoryService(repo, dispatcher.NewZapLogger(logger.Named("history")))
	svc.Register(d)
	return svc
}

// FlowDeps holds the dependencies of ProvideFlow.
type FlowDeps struct {
	Amounts     config.AmountsConfig
	Contracts   config.ContractsConfig
	Ledger      Ledger
	Indexer     port.Indexer
	Dispatcher  dispatcher.Dispatcher
	LuckyNumber *big.Int
	Logger      *zap.Logger
}

// ProvideFlow builds the registry, engine, observer, executor and session and
// ties them together in a flow service.
func ProvideFlow(deps *FlowDeps) (*FlowBundle, error) {
	amounts, err := deps.Amounts.Parse()
	if err != nil {
		return nil, err
	}

	registry, err := step.Canonical(amounts)
	if err != nil {
		return nil, fmt.Errorf("failed to build step registry: %w", err)
	}

	engine, err := workflow.NewEngine(registry)
	if err != nil {
		return nil, err
	}

	contracts := deps.Contracts.ContractMap()
	obs, err := observer.New(observer.StandardProbes(observer.Sources{
		Ledger:    deps.Ledger,
		Indexer:   deps.Indexer,
		Account:   deps.Ledger.Account(),
		Contracts: contracts,
	}), observer.WithLogger(deps.Logger.Named("observer")))
	if err != nil {
		return nil, fmt.Errorf("failed to build observer: %w", err)
	}

	lucky := deps.LuckyNumber
	if lucky == nil {
		if lucky, err = session.DrawLuckyNumber(nil); err != nil {
			return nil, err
		}
	}
	sess := session.New(lucky)

	exec := executor.New(deps.Ledger, obs, contracts,
		executor.WithDispatcher(deps.Dispatcher),
		executor.WithLogger(deps.Logger.Named("executor")),
	)

	return &FlowBundle{
		Registry: registry,
		Engine:   engine,
		Observer: obs,
		Executor: exec,
		Session:  sess,
		Service:  flow.NewService(engine, obs, exec, sess, deps.Logger.Named("flow")),
	}, nil
}

// ProvideWorkers registers the background workers enabled by configuration.
func ProvideWorkers(cfg *config.Config, flowSvc *flow.Service, history *sqlite.HistoryRepository, logger *zap.Logger) *worker.Manager {
	m := worker.NewManager(logger.Named("workers"))

	if cfg.Database.HistoryRetention > 0 {
		m.Register(worker.NewHistoryPruner(history, cfg.Database.HistoryRetention, pruneInterval, logger.Named("pruner")))
	}
	if cfg.Poller.Enabled {
		m.Register(worker.NewRefreshPoller(flowSvc, cfg.Poller.Interval, logger.Named("poller")))
	}

	return m
}
