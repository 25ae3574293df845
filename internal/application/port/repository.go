package port

import (
	"context"

	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
)

// HistoryRepository stores the write audit trail
type HistoryRepository interface {
	Record(ctx context.Context, rec *entity.ExecutionRecord) error
	List(ctx context.Context, limit int) ([]*entity.ExecutionRecord, error)
	ListByStep(ctx context.Context, stepID string, limit int) ([]*entity.ExecutionRecord, error)
}
