package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/pkg/database"
)

// BalanceRepository implements port.BalanceRepository on SQLite
type BalanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *sql.DB, logger *zap.Logger) port.BalanceRepository {
	return &BalanceRepository{db: db, logger: logger}
}

// Get returns the subsidy account, or nil when absent
func (r *BalanceRepository) Get(ctx context.Context, subjectID string) (*entity.SubsidyAccount, error) {
	query := `
		SELECT subject_id, fuel_type, monthly_allocation, remaining_balance, expiry_date
		FROM subsidy_accounts
		WHERE subject_id = ?
	`

	var acct entity.SubsidyAccount
	var allocation, remaining string

	err := r.exec(ctx).QueryRowContext(ctx, query, subjectID).Scan(
		&acct.SubjectID,
		&acct.FuelType,
		&allocation,
		&remaining,
		&acct.ExpiryDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get subsidy account", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, fmt.Errorf("failed to get subsidy account: %w", err)
	}

	if acct.MonthlyAllocation, err = decimal.NewFromString(allocation); err != nil {
		return nil, fmt.Errorf("corrupt allocation value %q: %w", allocation, err)
	}
	if acct.RemainingBalance, err = decimal.NewFromString(remaining); err != nil {
		return nil, fmt.Errorf("corrupt balance value %q: %w", remaining, err)
	}

	return &acct, nil
}

// Upsert writes the account snapshot
func (r *BalanceRepository) Upsert(ctx context.Context, acct *entity.SubsidyAccount) error {
	query := `
		INSERT INTO subsidy_accounts (subject_id, fuel_type, monthly_allocation, remaining_balance, expiry_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			fuel_type = excluded.fuel_type,
			monthly_allocation = excluded.monthly_allocation,
			remaining_balance = excluded.remaining_balance,
			expiry_date = excluded.expiry_date
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		acct.SubjectID,
		acct.FuelType,
		acct.MonthlyAllocation.String(),
		acct.RemainingBalance.String(),
		acct.ExpiryDate,
	)
	if err != nil {
		r.logger.Error("Failed to upsert subsidy account", zap.String("subject_id", acct.SubjectID), zap.Error(err))
		return fmt.Errorf("failed to upsert subsidy account: %w", err)
	}

	return nil
}

// Debit reduces the remaining balance by amount, floored at zero, and
// returns the new balance. Unknown subjects debit to zero silently:
// the backend, not this cache, owns account existence.
func (r *BalanceRepository) Debit(ctx context.Context, subjectID string, amount decimal.Decimal) (decimal.Decimal, error) {
	acct, err := r.Get(ctx, subjectID)
	if err != nil {
		return decimal.Zero, err
	}
	if acct == nil {
		return decimal.Zero, nil
	}

	remaining := acct.RemainingBalance.Sub(amount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	acct.RemainingBalance = remaining

	if err := r.Upsert(ctx, acct); err != nil {
		return decimal.Zero, err
	}

	return remaining, nil
}

func (r *BalanceRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.BalanceRepository = (*BalanceRepository)(nil)
