package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/pkg/database"
)

// QueueRepository implements port.QueueRepository on SQLite. Rows
// survive process restart; that durability is the queue's whole point.
type QueueRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQueueRepository creates a new offline queue repository
func NewQueueRepository(db *sql.DB, logger *zap.Logger) port.QueueRepository {
	return &QueueRepository{db: db, logger: logger}
}

// Enqueue persists a new Pending item and returns its id
func (r *QueueRepository) Enqueue(ctx context.Context, itemType entity.QueueItemType, payload json.RawMessage) (int64, error) {
	if !itemType.IsValid() {
		return 0, fmt.Errorf("unknown queue item type %q", itemType)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO offline_queue (type, payload, status, created_at, retry_count, next_attempt_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		itemType,
		string(payload),
		entity.QueueStatusPending,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to enqueue item", zap.String("type", string(itemType)), zap.Error(err))
		return 0, fmt.Errorf("failed to enqueue item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// FetchDue returns up to batchSize Pending or Failed items whose next
// attempt is due, oldest first so no item starves.
func (r *QueueRepository) FetchDue(ctx context.Context, batchSize int, now time.Time) ([]*entity.QueueItem, error) {
	query := `
		SELECT id, type, payload, status, created_at, retry_count, next_attempt_at
		FROM offline_queue
		WHERE status IN (?, ?) AND next_attempt_at <= ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query,
		entity.QueueStatusPending,
		entity.QueueStatusFailed,
		now,
		batchSize,
	)
	if err != nil {
		r.logger.Error("Failed to fetch due queue items", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch due queue items: %w", err)
	}
	defer rows.Close()

	var items []*entity.QueueItem
	for rows.Next() {
		var item entity.QueueItem
		var payload string

		if err := rows.Scan(
			&item.ID,
			&item.Type,
			&payload,
			&item.Status,
			&item.CreatedAt,
			&item.RetryCount,
			&item.NextAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}

		item.Payload = json.RawMessage(payload)
		items = append(items, &item)
	}

	return items, rows.Err()
}

// Claim moves an item Pending/Failed -> Processing so a concurrent
// drain cannot pick it up twice.
func (r *QueueRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE offline_queue
		SET status = ?
		WHERE id = ? AND status IN (?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		entity.QueueStatusProcessing,
		id,
		entity.QueueStatusPending,
		entity.QueueStatusFailed,
	)
	if err != nil {
		r.logger.Error("Failed to claim queue item", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to claim queue item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// Remove deletes a resolved item
func (r *QueueRepository) Remove(ctx context.Context, id int64) error {
	if _, err := r.exec(ctx).ExecContext(ctx, "DELETE FROM offline_queue WHERE id = ?", id); err != nil {
		r.logger.Error("Failed to remove queue item", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to remove queue item: %w", err)
	}
	return nil
}

// MarkFailed increments retryCount, sets status Failed and schedules
// the next attempt. The item stays eligible for future drain cycles.
func (r *QueueRepository) MarkFailed(ctx context.Context, id int64, nextAttempt time.Time) error {
	query := `
		UPDATE offline_queue
		SET status = ?, retry_count = retry_count + 1, next_attempt_at = ?
		WHERE id = ?
	`

	if _, err := r.exec(ctx).ExecContext(ctx, query, entity.QueueStatusFailed, nextAttempt, id); err != nil {
		r.logger.Error("Failed to mark queue item failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	return nil
}

// MarkDeadLetter parks an item that exhausted its retries
func (r *QueueRepository) MarkDeadLetter(ctx context.Context, id int64) error {
	query := `UPDATE offline_queue SET status = ? WHERE id = ?`

	if _, err := r.exec(ctx).ExecContext(ctx, query, entity.QueueStatusDeadLetter, id); err != nil {
		r.logger.Error("Failed to dead-letter queue item", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to dead-letter queue item: %w", err)
	}
	return nil
}

// ClearCompleted garbage-collects items marked Completed by an
// external consumer. Remove is the normal path.
func (r *QueueRepository) ClearCompleted(ctx context.Context) error {
	if _, err := r.exec(ctx).ExecContext(ctx, "DELETE FROM offline_queue WHERE status = ?", entity.QueueStatusCompleted); err != nil {
		r.logger.Error("Failed to clear completed queue items", zap.Error(err))
		return fmt.Errorf("failed to clear completed queue items: %w", err)
	}
	return nil
}

// Backlog counts items still awaiting resolution
func (r *QueueRepository) Backlog(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM offline_queue WHERE status IN (?, ?, ?)`

	var count int
	err := r.exec(ctx).QueryRowContext(ctx, query,
		entity.QueueStatusPending,
		entity.QueueStatusProcessing,
		entity.QueueStatusFailed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue backlog: %w", err)
	}

	return count, nil
}

func (r *QueueRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.QueueRepository = (*QueueRepository)(nil)
