// Package memory provides in-memory implementations of the persistence
// ports. They back the engine when durable storage is unavailable
// (durability is knowingly lost for that session) and keep unit tests
// free of disk fixtures.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/domain/redemption"
)

// VoucherStore is an in-memory port.VoucherRepository
type VoucherStore struct {
	mu      sync.RWMutex
	records map[string]*entity.VoucherRecord
}

// NewVoucherStore creates an empty voucher store
func NewVoucherStore() *VoucherStore {
	return &VoucherStore{records: make(map[string]*entity.VoucherRecord)}
}

// Save upserts a record by id
func (s *VoucherStore) Save(_ context.Context, record *entity.VoucherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// GetByID returns the record, or nil when absent
func (s *VoucherStore) GetByID(_ context.Context, id string) (*entity.VoucherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// UpdateStatus transitions the record's status, never reviving Complete
func (s *VoucherStore) UpdateStatus(_ context.Context, id string, status entity.VoucherStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.Status == entity.VoucherComplete {
		return nil
	}

	record.Status = status
	if (status == entity.VoucherUsed || status == entity.VoucherComplete) && record.UsedAt == nil {
		now := time.Now().UTC()
		record.UsedAt = &now
	}
	return nil
}

// ListPending returns all records awaiting redemption
func (s *VoucherStore) ListPending(_ context.Context) ([]*entity.VoucherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*entity.VoucherRecord
	for _, record := range s.records {
		if record.Status == entity.VoucherPending {
			clone := *record
			pending = append(pending, &clone)
		}
	}
	return pending, nil
}

// InventoryStore is an in-memory port.InventoryRepository
type InventoryStore struct {
	mu       sync.RWMutex
	stations map[string]*entity.Inventory
}

// NewInventoryStore creates an empty inventory store
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{stations: make(map[string]*entity.Inventory)}
}

// Get returns the station snapshot, or nil when absent
func (s *InventoryStore) Get(_ context.Context, stationID string) (*entity.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.stations[stationID]
	if !ok {
		return nil, nil
	}
	clone := *inv
	return &clone, nil
}

// Put upserts the full snapshot
func (s *InventoryStore) Put(_ context.Context, inv *entity.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *inv
	s.stations[inv.StationID] = &clone
	return nil
}

// Debit subtracts liters from the matching stock, rejecting any debit
// that would drive stock negative
func (s *InventoryStore) Debit(_ context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) (*entity.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.stations[stationID]
	if !ok {
		return nil, fmt.Errorf("no inventory for station %s", stationID)
	}

	remaining := inv.StockFor(fuel).Sub(liters)
	if remaining.IsNegative() {
		return nil, fmt.Errorf("%w: %s requested %s, available %s",
			redemption.ErrInsufficientStock, fuel, liters, inv.StockFor(fuel))
	}

	if fuel == entity.FuelDiesel {
		inv.DieselStock = remaining
	} else {
		inv.PetrolStock = remaining
	}
	inv.LastUpdated = time.Now().UTC()

	clone := *inv
	return &clone, nil
}

// TransactionStore is an in-memory, append-only port.TransactionRepository
type TransactionStore struct {
	mu  sync.RWMutex
	txs []*entity.Transaction
}

// NewTransactionStore creates an empty transaction store
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// Create appends a transaction record
func (s *TransactionStore) Create(_ context.Context, tx *entity.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *tx
	s.txs = append(s.txs, &clone)
	return nil
}

// List returns transactions matching the filter, newest first
func (s *TransactionStore) List(_ context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Transaction
	for _, tx := range s.txs {
		if filter.StationID != "" && tx.StationID != filter.StationID {
			continue
		}
		if filter.Mode != "" && tx.Mode != filter.Mode {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && tx.CreatedAt.Before(filter.Since) {
			continue
		}
		clone := *tx
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// BalanceStore is an in-memory port.BalanceRepository
type BalanceStore struct {
	mu       sync.RWMutex
	accounts map[string]*entity.SubsidyAccount
}

// NewBalanceStore creates an empty balance store
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{accounts: make(map[string]*entity.SubsidyAccount)}
}

// Get returns the subsidy account, or nil when absent
func (s *BalanceStore) Get(_ context.Context, subjectID string) (*entity.SubsidyAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[subjectID]
	if !ok {
		return nil, nil
	}
	clone := *acct
	return &clone, nil
}

// Upsert writes the account snapshot
func (s *BalanceStore) Upsert(_ context.Context, acct *entity.SubsidyAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *acct
	s.accounts[acct.SubjectID] = &clone
	return nil
}

// Debit reduces the remaining balance by amount, floored at zero
func (s *BalanceStore) Debit(_ context.Context, subjectID string, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[subjectID]
	if !ok {
		return decimal.Zero, nil
	}

	remaining := acct.RemainingBalance.Sub(amount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	acct.RemainingBalance = remaining
	return remaining, nil
}

// Queue is an in-memory port.QueueRepository. Items do not survive a
// restart; callers accept that when the durable store is unavailable.
type Queue struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*entity.QueueItem
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{items: make(map[int64]*entity.QueueItem)}
}

// Enqueue adds a new Pending item and returns its id
func (q *Queue) Enqueue(_ context.Context, itemType entity.QueueItemType, payload json.RawMessage) (int64, error) {
	if !itemType.IsValid() {
		return 0, fmt.Errorf("unknown queue item type %q", itemType)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	now := time.Now().UTC()
	q.items[q.nextID] = &entity.QueueItem{
		ID:            q.nextID,
		Type:          itemType,
		Payload:       append(json.RawMessage(nil), payload...),
		Status:        entity.QueueStatusPending,
		CreatedAt:     now,
		NextAttemptAt: now,
	}
	return q.nextID, nil
}

// FetchDue returns up to batchSize due items, oldest first
func (q *Queue) FetchDue(_ context.Context, batchSize int, now time.Time) ([]*entity.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*entity.QueueItem
	for _, item := range q.items {
		if (item.Status == entity.QueueStatusPending || item.Status == entity.QueueStatusFailed) &&
			!item.NextAttemptAt.After(now) {
			clone := *item
			due = append(due, &clone)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].CreatedAt.Equal(due[j].CreatedAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if len(due) > batchSize {
		due = due[:batchSize]
	}
	return due, nil
}

// Claim moves an item Pending/Failed -> Processing
func (q *Queue) Claim(_ context.Context, id int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok || (item.Status != entity.QueueStatusPending && item.Status != entity.QueueStatusFailed) {
		return false, nil
	}
	item.Status = entity.QueueStatusProcessing
	return true, nil
}

// Remove deletes a resolved item
func (q *Queue) Remove(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, id)
	return nil
}

// MarkFailed increments retryCount and schedules the next attempt
func (q *Queue) MarkFailed(_ context.Context, id int64, nextAttempt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.items[id]; ok {
		item.Status = entity.QueueStatusFailed
		item.RetryCount++
		item.NextAttemptAt = nextAttempt
	}
	return nil
}

// MarkDeadLetter parks an item that exhausted its retries
func (q *Queue) MarkDeadLetter(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.items[id]; ok {
		item.Status = entity.QueueStatusDeadLetter
	}
	return nil
}

// ClearCompleted garbage-collects Completed items
func (q *Queue) ClearCompleted(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, item := range q.items {
		if item.Status == entity.QueueStatusCompleted {
			delete(q.items, id)
		}
	}
	return nil
}

// Backlog counts items still awaiting resolution
func (q *Queue) Backlog(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, item := range q.items {
		switch item.Status {
		case entity.QueueStatusPending, entity.QueueStatusProcessing, entity.QueueStatusFailed:
			count++
		}
	}
	return count, nil
}

// NoopTxManager satisfies port.TransactionManager when there is no
// underlying database to scope.
type NoopTxManager struct{}

// WithTransaction runs fn directly
func (NoopTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Verify interface compliance
var (
	_ port.VoucherRepository     = (*VoucherStore)(nil)
	_ port.InventoryRepository   = (*InventoryStore)(nil)
	_ port.TransactionRepository = (*TransactionStore)(nil)
	_ port.BalanceRepository     = (*BalanceStore)(nil)
	_ port.QueueRepository       = (*Queue)(nil)
	_ port.TransactionManager    = NoopTxManager{}
)
