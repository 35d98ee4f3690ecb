package port

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// VoucherRepository tracks issued vouchers and their redemption status.
// The store is a local cache; the backend remains the arbiter of
// whether a voucher has been consumed globally.
type VoucherRepository interface {
	// Save upserts a record by its natural key. Re-saving the same id
	// replaces in place and never duplicates.
	Save(ctx context.Context, record *entity.VoucherRecord) error

	// GetByID returns the record, or nil when absent
	GetByID(ctx context.Context, id string) (*entity.VoucherRecord, error)

	// UpdateStatus transitions Pending -> Used -> Complete. Used and
	// Complete stamp usedAt if not already set. A Complete record is
	// never moved back; such calls are no-ops.
	UpdateStatus(ctx context.Context, id string, status entity.VoucherStatus) error

	// ListPending returns all records awaiting redemption
	ListPending(ctx context.Context) ([]*entity.VoucherRecord, error)
}

// InventoryRepository owns the station-side fuel stock levels.
type InventoryRepository interface {
	Get(ctx context.Context, stationID string) (*entity.Inventory, error)

	// Put upserts the full snapshot (initial load and backend sync)
	Put(ctx context.Context, inv *entity.Inventory) error

	// Debit subtracts liters from the matching stock and stamps
	// lastUpdated. Fails without mutation when stock would go negative.
	Debit(ctx context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) (*entity.Inventory, error)
}

// TransactionRepository is append-only: records are never mutated.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error)
}

// BalanceRepository holds beneficiary subsidy balances.
type BalanceRepository interface {
	Get(ctx context.Context, subjectID string) (*entity.SubsidyAccount, error)
	Upsert(ctx context.Context, acct *entity.SubsidyAccount) error

	// Debit reduces the remaining balance by amount, floored at zero,
	// and returns the new balance.
	Debit(ctx context.Context, subjectID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// QueueRepository persists the offline durability queue.
type QueueRepository interface {
	// Enqueue persists a new Pending item and returns its id
	Enqueue(ctx context.Context, itemType entity.QueueItemType, payload json.RawMessage) (int64, error)

	// FetchDue returns up to batchSize Pending or Failed items whose
	// next attempt is due, oldest first
	FetchDue(ctx context.Context, batchSize int, now time.Time) ([]*entity.QueueItem, error)

	// Claim moves an item Pending/Failed -> Processing. Returns false
	// when another drain already holds it.
	Claim(ctx context.Context, id int64) (bool, error)

	// Remove deletes a resolved item
	Remove(ctx context.Context, id int64) error

	// MarkFailed increments retryCount, sets status Failed and
	// schedules the next attempt
	MarkFailed(ctx context.Context, id int64, nextAttempt time.Time) error

	// MarkDeadLetter parks an item that exhausted its retries
	MarkDeadLetter(ctx context.Context, id int64) error

	// ClearCompleted garbage-collects items marked Completed
	ClearCompleted(ctx context.Context) error

	// Backlog counts items still awaiting resolution
	Backlog(ctx context.Context) (int, error)
}

// TransactionManager scopes repository calls to one atomic unit.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
