package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/pkg/database"
)

// TransactionRepository implements port.TransactionRepository on
// SQLite. The table is append-only: rows are never updated or deleted.
type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

// Create appends a transaction record
func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, station_id, fuel_type, amount, liters, mode, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var stationID sql.NullString
	if tx.StationID != "" {
		stationID = sql.NullString{String: tx.StationID, Valid: true}
	}

	_, err := r.exec(ctx).ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		stationID,
		tx.FuelType,
		tx.Amount.String(),
		tx.Liters.String(),
		tx.Mode,
		tx.Status,
		tx.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("id", tx.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// List returns transactions matching the filter, newest first
func (r *TransactionRepository) List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	query := `
		SELECT id, user_id, station_id, fuel_type, amount, liters, mode, status, created_at
		FROM transactions
	`

	var conds []string
	var args []interface{}
	if filter.StationID != "" {
		conds = append(conds, "station_id = ?")
		args = append(args, filter.StationID)
	}
	if filter.Mode != "" {
		conds = append(conds, "mode = ?")
		args = append(args, filter.Mode)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.Since)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entity.Transaction
	for rows.Next() {
		var tx entity.Transaction
		var stationID sql.NullString
		var amount, liters string

		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&stationID,
			&tx.FuelType,
			&amount,
			&liters,
			&tx.Mode,
			&tx.Status,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if stationID.Valid {
			tx.StationID = stationID.String
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount value %q: %w", amount, err)
		}
		if tx.Liters, err = decimal.NewFromString(liters); err != nil {
			return nil, fmt.Errorf("corrupt liters value %q: %w", liters, err)
		}

		txs = append(txs, &tx)
	}

	return txs, rows.Err()
}

func (r *TransactionRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.TransactionRepository = (*TransactionRepository)(nil)
