package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/lottery-onboarding/internal/application/dispatcher"
	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
	"github.com/garyjia/lottery-onboarding/internal/domain/event"
)

type mockLogger struct{}

func (mockLogger) Info(string, ...interface{})  {}
func (mockLogger) Error(string, ...interface{}) {}

type mockHistoryRepo struct {
	mu        sync.Mutex
	records   []*entity.ExecutionRecord
	err       error
	lastStep  string
	lastLimit int
}

func (m *mockHistoryRepo) Record(ctx context.Context, rec *entity.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return nil
}

func (m *mockHistoryRepo) List(ctx context.Context, limit int) ([]*entity.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastStep, m.lastLimit = "", limit
	return m.records, nil
}

func (m *mockHistoryRepo) ListByStep(ctx context.Context, stepID string, limit int) ([]*entity.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastStep, m.lastLimit = stepID, limit
	return m.records, nil
}

func TestHistoryService_RecordsDispatchedEvents(t *testing.T) {
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, mockLogger{})
	d := dispatcher.NewDispatcher()
	svc.Register(d)

	evt := event.NewEvent(event.TypeStepSubmitted, "buy-ticket", map[string]interface{}{"method": "buy"}).WithTxHash("0x1")
	require.NoError(t, d.Dispatch(context.Background(), evt))
	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeStateRefreshed, "buy-ticket", nil)))

	require.Len(t, repo.records, 2)
	rec := repo.records[0]
	assert.Equal(t, "buy-ticket", rec.StepID)
	assert.Equal(t, "step.submitted", rec.EventType)
	assert.Equal(t, "0x1", rec.TxHash)
	assert.JSONEq(t, `{"method":"buy"}`, rec.Detail)
	assert.Equal(t, evt.CorrelationID, rec.CorrelationID)
	assert.Empty(t, repo.records[1].Detail)
}

func TestHistoryService_PropagatesRepositoryErrors(t *testing.T) {
	repo := &mockHistoryRepo{err: errors.New("disk full")}
	svc := NewHistoryService(repo, mockLogger{})

	err := svc.Handle(context.Background(), event.NewEvent(event.TypeStepFailed, "x", nil))
	assert.Error(t, err)
}

func TestHistoryService_Recent(t *testing.T) {
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, mockLogger{})
	ctx := context.Background()

	_, err := svc.Recent(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, repo.lastLimit)
	assert.Empty(t, repo.lastStep)

	_, err = svc.Recent(ctx, "request-draw", 5)
	require.NoError(t, err)
	assert.Equal(t, "request-draw", repo.lastStep)
	assert.Equal(t, 5, repo.lastLimit)
}
