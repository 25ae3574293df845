// Package sqlite stores the execution audit history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/port"
	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
	"github.com/garyjia/lottery-onboarding/pkg/database"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *database.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one record and sets its ID
func (r *HistoryRepository) Record(ctx context.Context, rec *entity.ExecutionRecord) error {
	query := `
		INSERT INTO execution_history (
			correlation_id, step_id, event_type, tx_hash, detail, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.CorrelationID,
		rec.StepID,
		rec.EventType,
		rec.TxHash,
		rec.Detail,
		rec.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to record execution", zap.String("step_id", rec.StepID), zap.Error(err))
		return fmt.Errorf("failed to record execution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// List returns the most recent records, newest first
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*entity.ExecutionRecord, error) {
	query := `
		SELECT id, correlation_id, step_id, event_type, tx_hash, detail, timestamp
		FROM execution_history
		ORDER BY id DESC
		LIMIT ?
	`
	return r.query(ctx, query, limit)
}

// ListByStep returns the most recent records of one step, newest first
func (r *HistoryRepository) ListByStep(ctx context.Context, stepID string, limit int) ([]*entity.ExecutionRecord, error) {
	query := `
		SELECT id, correlation_id, step_id, event_type, tx_hash, detail, timestamp
		FROM execution_history
		WHERE step_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.query(ctx, query, stepID, limit)
}

// Prune keeps only the newest keep records; keep 0 empties the history
func (r *HistoryRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must not be negative, got %d", keep)
	}

	var removed int64
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		var cutoff int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MIN(id), 0) FROM (SELECT id FROM execution_history ORDER BY id DESC LIMIT ?)`, keep,
		).Scan(&cutoff)
		if err != nil {
			return fmt.Errorf("failed to find prune cutoff: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM execution_history WHERE id < ? OR ? = 0`, cutoff, keep)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (r *HistoryRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list execution history", zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ExecutionRecord
	for rows.Next() {
		var rec entity.ExecutionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.CorrelationID,
			&rec.StepID,
			&rec.EventType,
			&rec.TxHash,
			&rec.Detail,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
