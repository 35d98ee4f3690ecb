package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/qr"
	"github.com/fuelgambia/fuel-voucher/pkg/database"
)

// VoucherRepository implements port.VoucherRepository on SQLite
type VoucherRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{db: db, logger: logger}
}

// Save upserts a record by its natural key
func (r *VoucherRepository) Save(ctx context.Context, record *entity.VoucherRecord) error {
	query := `
		INSERT INTO voucher_records (id, encoded_payload, status, created_at, used_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			encoded_payload = excluded.encoded_payload,
			status = excluded.status,
			created_at = excluded.created_at,
			used_at = excluded.used_at
	`

	var usedAt sql.NullTime
	if record.UsedAt != nil {
		usedAt = sql.NullTime{Time: *record.UsedAt, Valid: true}
	}

	_, err := r.exec(ctx).ExecContext(ctx, query,
		record.ID,
		record.EncodedPayload,
		record.Status,
		record.CreatedAt,
		usedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save voucher record",
			zap.String("id", record.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save voucher record: %w", err)
	}

	return nil
}

// GetByID returns the record, or nil when absent
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*entity.VoucherRecord, error) {
	query := `
		SELECT id, encoded_payload, status, created_at, used_at
		FROM voucher_records
		WHERE id = ?
	`

	record, err := scanVoucherRecord(r.exec(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher record", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher record: %w", err)
	}

	return record, nil
}

// UpdateStatus transitions the record's lifecycle status. A Complete
// record is never changed; Used and Complete stamp used_at once.
func (r *VoucherRepository) UpdateStatus(ctx context.Context, id string, status entity.VoucherStatus) error {
	query := `
		UPDATE voucher_records
		SET status = ?,
			used_at = CASE WHEN ? THEN COALESCE(used_at, ?) ELSE used_at END
		WHERE id = ? AND status != ?
	`

	stampsUsedAt := status == entity.VoucherUsed || status == entity.VoucherComplete

	_, err := r.exec(ctx).ExecContext(ctx, query,
		status,
		stampsUsedAt,
		time.Now().UTC(),
		id,
		entity.VoucherComplete,
	)
	if err != nil {
		r.logger.Error("Failed to update voucher status",
			zap.String("id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update voucher status: %w", err)
	}

	return nil
}

// ListPending returns all records awaiting redemption
func (r *VoucherRepository) ListPending(ctx context.Context) ([]*entity.VoucherRecord, error) {
	query := `
		SELECT id, encoded_payload, status, created_at, used_at
		FROM voucher_records
		WHERE status = ?
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, entity.VoucherPending)
	if err != nil {
		r.logger.Error("Failed to list pending vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending vouchers: %w", err)
	}
	defer rows.Close()

	var records []*entity.VoucherRecord
	for rows.Next() {
		record, err := scanVoucherRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVoucherRecord(row rowScanner) (*entity.VoucherRecord, error) {
	var record entity.VoucherRecord
	var usedAt sql.NullTime

	if err := row.Scan(
		&record.ID,
		&record.EncodedPayload,
		&record.Status,
		&record.CreatedAt,
		&usedAt,
	); err != nil {
		return nil, err
	}

	if usedAt.Valid {
		record.UsedAt = &usedAt.Time
	}

	// The encoded payload is the source of truth; rehydrate the typed
	// voucher from it. Records written by this module always decode.
	if payload, err := qr.Decode(record.EncodedPayload); err == nil {
		record.Payload = payload
	}

	return &record, nil
}

func (r *VoucherRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
