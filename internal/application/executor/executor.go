// Package executor runs the write of a single step: resolve, submit, wait for
// confirmations, then refresh the signals the step affects.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/dispatcher"
	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/application/session"
	"github.com/garyjia/lottery-onboarding/internal/domain/event"
	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// Refresher re-reads a set of signals and publishes them
type Refresher interface {
	Refetch(ctx context.Context, names ...signal.Name) (signal.Snapshot, error)
}

// Result describes a confirmed write
type Result struct {
	StepID   step.ID
	Receipt  *port.Receipt
	Snapshot signal.Snapshot
}

// Executor serializes writes per session
type Executor struct {
	writer     port.LedgerWriter
	refresher  Refresher
	dispatcher dispatcher.Dispatcher
	contracts  map[step.Contract]step.Address
	logger     *zap.Logger
}

// Option configures the executor
type Option func(*Executor)

// WithDispatcher publishes lifecycle events to d
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *Executor) {
		e.dispatcher = d
	}
}

// WithLogger sets the executor logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an executor
func New(writer port.LedgerWriter, refresher Refresher, contracts map[step.Contract]step.Address, opts ...Option) *Executor {
	e := &Executor{
		writer:    writer,
		refresher: refresher,
		contracts: contracts,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one attempt of step d against snapshot snap.
//
// A concurrent attempt on the same session is rejected with ErrBusy before
// anything else happens. Otherwise the session error is cleared and any
// failure is returned as *ExecutionError and reported to the session. Once
// submitted, the write is awaited even if ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, sess *session.Session, d step.Descriptor, snap signal.Snapshot) (*Result, error) {
	if !sess.TryBegin() {
		return nil, ErrBusy
	}
	defer sess.End()

	reporter := sess.Reporter()
	reporter.Clear()

	correlation := event.NewCorrelationID()
	start := time.Now()
	log := e.logger.With(zap.String("step_id", d.ID.String()), zap.String("correlation_id", correlation))

	fail := func(kind Kind, hash string, err error) (*Result, error) {
		msg := d.FailureMessage
		if kind == KindRefresh {
			msg = RefreshFailureMessage
		}
		execErr := &ExecutionError{Kind: kind, StepID: d.ID, TxHash: hash, Message: msg, Err: err}
		reporter.Report(execErr)

		log.Error("Step execution failed",
			zap.String("kind", kind.String()),
			zap.String("tx_hash", hash),
			zap.Error(err),
		)
		e.emit(ctx, event.NewEventWithCorrelation(event.TypeStepFailed, d.ID.String(), map[string]interface{}{
			"kind":      kind.String(),
			"error":     err.Error(),
			"completed": execErr.Completed(),
		}, correlation).WithTxHash(hash))
		return nil, execErr
	}

	env := step.Env{
		Account:     e.writer.Account(),
		LuckyNumber: sess.LuckyNumber(),
		Contracts:   e.contracts,
	}
	call, err := d.Action.Resolve(snap, env)
	if err != nil {
		return fail(KindPreparation, "", err)
	}

	// the write path ignores caller cancellation once started
	writeCtx := context.WithoutCancel(ctx)

	pending, err := e.writer.Submit(writeCtx, call)
	if err != nil {
		return fail(KindSubmission, "", err)
	}
	hash := pending.Hash()
	log.Info("Step submitted", zap.String("method", call.Method), zap.String("tx_hash", hash))
	e.emit(ctx, event.NewEventWithCorrelation(event.TypeStepSubmitted, d.ID.String(), map[string]interface{}{
		"method":   call.Method,
		"contract": call.Contract.String(),
	}, correlation).WithTxHash(hash))

	receipt, err := pending.AwaitConfirmations(writeCtx, d.Confirmations)
	if err != nil {
		return fail(KindConfirmation, hash, err)
	}
	log.Info("Step confirmed",
		zap.String("tx_hash", hash),
		zap.Uint64("block", receipt.BlockNumber),
		zap.Int("confirmations", d.Confirmations),
	)
	e.emit(ctx, event.NewEventWithCorrelation(event.TypeStepConfirmed, d.ID.String(), map[string]interface{}{
		"block":         receipt.BlockNumber,
		"confirmations": d.Confirmations,
	}, correlation).WithTxHash(hash))

	refreshed, err := e.refresher.Refetch(writeCtx, d.Refreshes...)
	if err != nil {
		return fail(KindRefresh, hash, err)
	}
	e.emit(ctx, event.NewEventWithCorrelation(event.TypeStateRefreshed, d.ID.String(), map[string]interface{}{
		"signals":     len(d.Refreshes),
		"duration_ms": time.Since(start).Milliseconds(),
	}, correlation).WithTxHash(hash))

	return &Result{StepID: d.ID, Receipt: receipt, Snapshot: refreshed}, nil
}

func (e *Executor) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Dispatch(context.WithoutCancel(ctx), evt); err != nil {
		e.logger.Warn("Event handler failed",
			zap.String("event_type", evt.Type.String()),
			zap.Error(err),
		)
	}
}
