package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/domain/redemption"
	"github.com/fuelgambia/fuel-voucher/internal/pricing"
	"github.com/fuelgambia/fuel-voucher/internal/qr"
)

// RedemptionConfig holds the attendant station identity and alerting
// threshold.
type RedemptionConfig struct {
	StationID         string
	LowStockThreshold decimal.Decimal
}

// RedemptionResult reports the terminal state of one attempt. On
// success it carries the computed liters, the recorded transaction and
// the post-debit balance for subsidy vouchers.
type RedemptionResult struct {
	State            redemption.State
	Voucher          entity.Voucher
	Liters           decimal.Decimal
	Transaction      *entity.Transaction
	Inventory        *entity.Inventory
	RemainingBalance *decimal.Decimal
}

// RedemptionService drives the per-voucher redemption state machine:
// Scanned -> Validated -> StockChecked -> Debited -> Recorded, with
// rejection terminal at every validation step. Rejections before the
// debit leave no side effects at all.
type RedemptionService struct {
	vouchers     port.VoucherRepository
	inventory    port.InventoryRepository
	transactions port.TransactionRepository
	balances     port.BalanceRepository
	txManager    port.TransactionManager
	sync         *SyncService
	notifier     port.Notifier
	prices       *pricing.Table
	cfg          RedemptionConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(
	vouchers port.VoucherRepository,
	inventory port.InventoryRepository,
	transactions port.TransactionRepository,
	balances port.BalanceRepository,
	txManager port.TransactionManager,
	sync *SyncService,
	notifier port.Notifier,
	prices *pricing.Table,
	cfg RedemptionConfig,
	logger *zap.Logger,
) *RedemptionService {
	return &RedemptionService{
		vouchers:     vouchers,
		inventory:    inventory,
		transactions: transactions,
		balances:     balances,
		txManager:    txManager,
		sync:         sync,
		notifier:     notifier,
		prices:       prices,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Redeem validates a scanned payload and dispenses fuel for the given
// monetary amount. A zero amount redeems the voucher's full amount.
func (s *RedemptionService) Redeem(ctx context.Context, raw string, amount decimal.Decimal) (*RedemptionResult, error) {
	attempt := redemption.NewAttempt()
	result := &RedemptionResult{State: attempt.State()}

	// Scanned -> Validated: structure, then expiry
	voucher, err := qr.Decode(raw)
	if err != nil {
		return s.reject(attempt, result, err)
	}
	result.Voucher = voucher

	if entity.Expired(voucher, s.now()) {
		return s.reject(attempt, result, fmt.Errorf("%w: voucher %s expired at %s",
			redemption.ErrExpired, voucher.VoucherID(), voucher.ExpiresAt().Format(time.RFC3339)))
	}

	// The local store is only a hint; the backend remains the arbiter
	// of global double-spend. It still catches a re-scan on this device.
	if record, err := s.vouchers.GetByID(ctx, voucher.VoucherID()); err == nil && record != nil {
		if record.Status.Rank() >= entity.VoucherUsed.Rank() {
			return s.reject(attempt, result, fmt.Errorf("%w: voucher %s",
				redemption.ErrVoucherConsumed, voucher.VoucherID()))
		}
	}

	if err := attempt.Fire(redemption.TriggerValidate); err != nil {
		return nil, err
	}
	result.State = attempt.State()

	if amount.IsZero() {
		amount = voucher.Amount()
	}
	if !amount.IsPositive() {
		return s.reject(attempt, result, fmt.Errorf("redemption amount must be positive: %s", amount))
	}

	// Validated -> StockChecked
	liters := s.prices.Liters(amount, voucher.Fuel())
	result.Liters = liters

	inv, err := s.inventory.Get(ctx, s.cfg.StationID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up station inventory: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("no inventory for station %s", s.cfg.StationID)
	}
	if liters.GreaterThan(inv.StockFor(voucher.Fuel())) {
		return s.reject(attempt, result, fmt.Errorf("%w: %s requested %s, available %s",
			redemption.ErrInsufficientStock, voucher.Fuel(), liters, inv.StockFor(voucher.Fuel())))
	}

	if err := attempt.Fire(redemption.TriggerCheckStock); err != nil {
		return nil, err
	}
	result.State = attempt.State()

	// StockChecked -> Debited -> Recorded: one atomic unit locally
	tx := &entity.Transaction{
		ID:        uuid.NewString(),
		UserID:    subjectOf(voucher),
		StationID: s.cfg.StationID,
		FuelType:  voucher.Fuel(),
		Amount:    amount,
		Liters:    liters,
		Mode:      voucher.Mode(),
		Status:    entity.PaymentSuccess,
		CreatedAt: s.now().UTC(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		debited, err := s.inventory.Debit(txCtx, s.cfg.StationID, voucher.Fuel(), liters)
		if err != nil {
			return err
		}
		result.Inventory = debited

		if err := attempt.Fire(redemption.TriggerDebit); err != nil {
			return err
		}

		if err := s.transactions.Create(txCtx, tx); err != nil {
			return err
		}

		// Vouchers issued on another device have no local record yet;
		// track them so a re-scan here is caught.
		if record, err := s.vouchers.GetByID(txCtx, voucher.VoucherID()); err == nil && record == nil {
			if err := s.vouchers.Save(txCtx, &entity.VoucherRecord{
				ID:             voucher.VoucherID(),
				EncodedPayload: raw,
				Payload:        voucher,
				Status:         entity.VoucherPending,
				CreatedAt:      s.now().UTC(),
			}); err != nil {
				return err
			}
		}
		if err := s.vouchers.UpdateStatus(txCtx, voucher.VoucherID(), entity.VoucherUsed); err != nil {
			return err
		}

		if voucher.Mode() == entity.ModeSubsidy {
			balance, err := s.balances.Debit(txCtx, subjectOf(voucher), amount)
			if err != nil {
				return err
			}
			result.RemainingBalance = &balance
		}

		return attempt.Fire(redemption.TriggerRecord)
	})
	if err != nil {
		// A losing race on stock inside the transaction surfaces here
		if rejectErr := attempt.Fire(redemption.TriggerReject); rejectErr == nil {
			result.State = attempt.State()
		}
		return result, err
	}

	result.State = attempt.State()
	result.Transaction = tx

	s.logger.Info("Voucher redeemed",
		zap.String("voucher_id", voucher.VoucherID()),
		zap.String("mode", voucher.Mode().String()),
		zap.String("amount", amount.String()),
		zap.String("liters", liters.String()))

	s.finalize(ctx, result, tx)

	return result, nil
}

// finalize pushes the committed redemption to the backend. The local
// debit stays applied either way; failures are queued for the drain
// cycle instead of failing the attendant-visible operation.
func (s *RedemptionService) finalize(ctx context.Context, result *RedemptionResult, tx *entity.Transaction) {
	if err := s.sync.PushInventoryDebit(ctx, s.cfg.StationID, tx.FuelType, tx.Liters); err != nil {
		s.logger.Warn("Inventory sync deferred to offline queue",
			zap.String("station_id", s.cfg.StationID),
			zap.Error(err))
	}
	if err := s.sync.PushTransaction(ctx, tx, result.Voucher.VoucherID()); err != nil {
		s.logger.Warn("Transaction submit deferred to offline queue",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}

	if result.Inventory != nil {
		s.alertLowStock(ctx, result.Inventory, tx.FuelType)
	}
}

func (s *RedemptionService) alertLowStock(ctx context.Context, inv *entity.Inventory, fuel entity.FuelType) {
	stock := inv.StockFor(fuel)
	if stock.GreaterThanOrEqual(s.cfg.LowStockThreshold) {
		return
	}

	n := entity.Notification{
		ID:        uuid.NewString(),
		SubjectID: inv.StationID,
		Title:     "Low fuel stock",
		Message:   fmt.Sprintf("%s stock at %s liters, below threshold %s", fuel, stock, s.cfg.LowStockThreshold),
		Type:      entity.NotificationLowStock,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Failed to send low stock alert", zap.Error(err))
	}
}

func (s *RedemptionService) reject(attempt redemption.Machine, result *RedemptionResult, cause error) (*RedemptionResult, error) {
	if err := attempt.Fire(redemption.TriggerReject); err != nil {
		return nil, err
	}
	result.State = attempt.State()

	s.logger.Info("Redemption rejected", zap.Error(cause))
	return result, cause
}

func subjectOf(v entity.Voucher) string {
	if sv, ok := v.(entity.SubsidyVoucher); ok {
		return sv.SubjectID
	}
	return ""
}
