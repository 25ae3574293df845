package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyjia/lottery-onboarding/internal/application/dispatcher"
	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
	"github.com/garyjia/lottery-onboarding/internal/domain/event"
)

// Logger is the minimal logging dependency of the services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DefaultHistoryLimit caps history queries without an explicit limit
const DefaultHistoryLimit = 50

// HistoryService keeps the audit trail of step executions
type HistoryService interface {
	// Register subscribes the recorder to every lifecycle event
	Register(d dispatcher.Dispatcher)

	// Handle records one lifecycle event
	Handle(ctx context.Context, evt *event.Event) error

	// Recent returns the newest records, optionally for one step
	Recent(ctx context.Context, stepID string, limit int) ([]*entity.ExecutionRecord, error)
}

type historyServiceImpl struct {
	repo   port.HistoryRepository
	logger Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(repo port.HistoryRepository, logger Logger) HistoryService {
	return &historyServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *historyServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeAll("history-recorder", s.Handle)
}

func (s *historyServiceImpl) Handle(ctx context.Context, evt *event.Event) error {
	detail := ""
	if len(evt.Payload) > 0 {
		raw, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		detail = string(raw)
	}

	rec := &entity.ExecutionRecord{
		CorrelationID: evt.CorrelationID,
		StepID:        evt.StepID,
		EventType:     evt.Type.String(),
		TxHash:        evt.TxHash,
		Detail:        detail,
		Timestamp:     evt.Timestamp,
	}
	if err := s.repo.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to record execution event",
			"event_type", evt.Type,
			"step_id", evt.StepID,
			"error", err,
		)
		return err
	}

	s.logger.Info("Execution event recorded",
		"record_id", rec.ID,
		"event_type", evt.Type,
		"step_id", evt.StepID,
	)
	return nil
}

func (s *historyServiceImpl) Recent(ctx context.Context, stepID string, limit int) ([]*entity.ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if stepID != "" {
		return s.repo.ListByStep(ctx, stepID, limit)
	}
	return s.repo.List(ctx, limit)
}
