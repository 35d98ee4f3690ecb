package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// ErrDeferred marks an operation that could not reach the backend and
// was appended to the offline queue instead.
var ErrDeferred = errors.New("operation deferred to offline queue")

// RetryPolicy controls drain backoff and the dead-letter ceiling.
type RetryPolicy struct {
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	MaxRetries    int
	RemoteTimeout time.Duration
}

// NextAttempt schedules a retry with exponential backoff, capped at
// BackoffMax.
func (p RetryPolicy) NextAttempt(now time.Time, retryCount int) time.Time {
	backoff := p.BackoffBase
	for i := 0; i < retryCount && backoff < p.BackoffMax; i++ {
		backoff *= 2
	}
	if backoff > p.BackoffMax {
		backoff = p.BackoffMax
	}
	return now.Add(backoff)
}

// DrainStats summarizes one drain cycle.
type DrainStats struct {
	Fetched      int
	Resolved     int
	Failed       int
	DeadLettered int
	Skipped      int
}

// SyncService owns the offline durability queue: it pushes remote
// operations directly when the backend is reachable, queues them when
// it is not, and drains the backlog in FIFO order. Drain is safely
// re-entrant; items are claimed Pending -> Processing before any
// remote call.
type SyncService struct {
	queue          port.QueueRepository
	inventoryAPI   port.InventoryService
	transactionAPI port.TransactionService
	scanAPI        port.ScanReporter
	inventory      port.InventoryRepository
	vouchers       port.VoucherRepository
	retry          RetryPolicy
	logger         *zap.Logger
	now            func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(
	queue port.QueueRepository,
	inventoryAPI port.InventoryService,
	transactionAPI port.TransactionService,
	scanAPI port.ScanReporter,
	inventory port.InventoryRepository,
	vouchers port.VoucherRepository,
	retry RetryPolicy,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		queue:          queue,
		inventoryAPI:   inventoryAPI,
		transactionAPI: transactionAPI,
		scanAPI:        scanAPI,
		inventory:      inventory,
		vouchers:       vouchers,
		retry:          retry,
		logger:         logger,
		now:            time.Now,
	}
}

// PushInventoryDebit syncs a local stock debit to the backend, queuing
// it when the backend is unreachable. Returns ErrDeferred on queueing.
func (s *SyncService) PushInventoryDebit(ctx context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) error {
	callCtx, cancel := context.WithTimeout(ctx, s.retry.RemoteTimeout)
	defer cancel()

	remoteErr := s.inventoryAPI.UpdateInventory(callCtx, stationID, fuel, liters)
	if remoteErr == nil {
		return nil
	}

	payload, err := json.Marshal(entity.InventorySyncPayload{
		StationID: stationID,
		FuelType:  fuel,
		Liters:    liters.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal inventory sync payload: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, entity.QueueInventorySync, payload); err != nil {
		return fmt.Errorf("failed to queue inventory sync: %w", err)
	}

	return fmt.Errorf("%w: %v", ErrDeferred, remoteErr)
}

// PushTransaction submits a finalized transaction, queuing it when the
// backend is unreachable. Returns ErrDeferred on queueing.
func (s *SyncService) PushTransaction(ctx context.Context, tx *entity.Transaction, voucherID string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.retry.RemoteTimeout)
	defer cancel()

	remoteErr := s.transactionAPI.SubmitTransaction(callCtx, tx)
	if remoteErr == nil {
		return s.completeVoucher(ctx, voucherID)
	}

	payload, err := json.Marshal(entity.TransactionPayload{VoucherID: voucherID, Transaction: *tx})
	if err != nil {
		return fmt.Errorf("failed to marshal transaction payload: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, entity.QueueTransaction, payload); err != nil {
		return fmt.Errorf("failed to queue transaction submit: %w", err)
	}

	return fmt.Errorf("%w: %v", ErrDeferred, remoteErr)
}

// EnqueueScan records a scan event for later reporting. Scans are
// always queued; they are informational and never block redemption.
func (s *SyncService) EnqueueScan(ctx context.Context, scan entity.QRScanPayload) (int64, error) {
	payload, err := json.Marshal(scan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal scan payload: %w", err)
	}
	return s.queue.Enqueue(ctx, entity.QueueQRScan, payload)
}

// RefreshInventory pulls the backend snapshot into the local store.
func (s *SyncService) RefreshInventory(ctx context.Context, stationID string) (*entity.Inventory, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.retry.RemoteTimeout)
	defer cancel()

	inv, err := s.inventoryAPI.GetInventory(callCtx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}
	if err := s.inventory.Put(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Drain attempts to resolve up to batchSize due items, oldest first.
func (s *SyncService) Drain(ctx context.Context, batchSize int) (DrainStats, error) {
	var stats DrainStats

	items, err := s.queue.FetchDue(ctx, batchSize, s.now())
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(items)

	for _, item := range items {
		claimed, err := s.queue.Claim(ctx, item.ID)
		if err != nil {
			return stats, err
		}
		if !claimed {
			stats.Skipped++
			continue
		}

		if err := s.resolve(ctx, item); err != nil {
			s.logger.Warn("Queue item resolution failed",
				zap.Int64("item_id", item.ID),
				zap.String("type", string(item.Type)),
				zap.Int("retry_count", item.RetryCount),
				zap.Error(err))

			if s.retry.MaxRetries > 0 && item.RetryCount+1 >= s.retry.MaxRetries {
				if err := s.queue.MarkDeadLetter(ctx, item.ID); err != nil {
					return stats, err
				}
				stats.DeadLettered++
				continue
			}

			next := s.retry.NextAttempt(s.now(), item.RetryCount)
			if err := s.queue.MarkFailed(ctx, item.ID, next); err != nil {
				return stats, err
			}
			stats.Failed++
			continue
		}

		if err := s.queue.Remove(ctx, item.ID); err != nil {
			return stats, err
		}
		stats.Resolved++
	}

	return stats, nil
}

func (s *SyncService) resolve(ctx context.Context, item *entity.QueueItem) error {
	callCtx, cancel := context.WithTimeout(ctx, s.retry.RemoteTimeout)
	defer cancel()

	switch item.Type {
	case entity.QueueInventorySync:
		var payload entity.InventorySyncPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return fmt.Errorf("corrupt inventory sync payload: %w", err)
		}
		liters, err := decimal.NewFromString(payload.Liters)
		if err != nil {
			return fmt.Errorf("corrupt liters value %q: %w", payload.Liters, err)
		}
		return s.inventoryAPI.UpdateInventory(callCtx, payload.StationID, payload.FuelType, liters)

	case entity.QueueTransaction:
		var payload entity.TransactionPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return fmt.Errorf("corrupt transaction payload: %w", err)
		}
		if err := s.transactionAPI.SubmitTransaction(callCtx, &payload.Transaction); err != nil {
			return err
		}
		return s.completeVoucher(ctx, payload.VoucherID)

	case entity.QueueQRScan:
		var payload entity.QRScanPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return fmt.Errorf("corrupt scan payload: %w", err)
		}
		return s.scanAPI.ReportScan(callCtx, payload)

	default:
		return fmt.Errorf("unknown queue item type %q", item.Type)
	}
}

// completeVoucher marks the local record Complete once the backend has
// accepted the finalized transaction.
func (s *SyncService) completeVoucher(ctx context.Context, voucherID string) error {
	if voucherID == "" {
		return nil
	}
	return s.vouchers.UpdateStatus(ctx, voucherID, entity.VoucherComplete)
}

// Backlog reports items still awaiting resolution, for the retry
// indicator surfaced to the attendant.
func (s *SyncService) Backlog(ctx context.Context) (int, error) {
	return s.queue.Backlog(ctx)
}

// ClearCompleted garbage-collects items an external consumer marked
// Completed.
func (s *SyncService) ClearCompleted(ctx context.Context) error {
	return s.queue.ClearCompleted(ctx)
}
