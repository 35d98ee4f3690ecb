package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// ErrPaymentFailed marks a declined or cancelled charge. It is returned
// to the buyer immediately; payment failures never enter the offline
// queue.
var ErrPaymentFailed = errors.New("payment failed")

// PurchaseService drives the paid-fuel flow: create a charge with the
// payment collaborator, confirm it, and hand the completed intent to
// the issuer so the buyer leaves with a scannable voucher.
type PurchaseService struct {
	payments port.PaymentService
	issuer   *IssuerService
	logger   *zap.Logger
}

func NewPurchaseService(payments port.PaymentService, issuer *IssuerService, logger *zap.Logger) *PurchaseService {
	return &PurchaseService{
		payments: payments,
		issuer:   issuer,
		logger:   logger,
	}
}

// CreateIntent opens a charge for the given amount without capturing
// it. The caller completes the flow with Purchase once a payment
// method is chosen.
func (s *PurchaseService) CreateIntent(ctx context.Context, amount decimal.Decimal, fuel entity.FuelType) (*entity.PaymentIntent, error) {
	if !fuel.IsValid() {
		return nil, fmt.Errorf("create payment intent: unknown fuel type %q", fuel)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("create payment intent: amount must be positive, got %s", amount)
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, amount, fuel)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("amount", amount.String()),
		zap.String("fuel_type", fuel.String()))
	return intent, nil
}

// Purchase captures a previously created intent and issues a paid
// voucher against the completed charge. The voucher's expiry window is
// the issuer's paid validity.
func (s *PurchaseService) Purchase(ctx context.Context, intentID, method string) (*IssuedVoucher, error) {
	intent, err := s.payments.ProcessPayment(ctx, intentID, method)
	if err != nil {
		return nil, fmt.Errorf("process payment %s: %w", intentID, err)
	}
	if intent.Status != entity.PaymentSuccess {
		s.logger.Warn("Payment not completed",
			zap.String("intent_id", intentID),
			zap.String("status", string(intent.Status)))
		return nil, fmt.Errorf("%w: intent %s is %s", ErrPaymentFailed, intentID, intent.Status)
	}

	issued, err := s.issuer.IssuePaidVoucher(ctx, intent.TransactionID, intent.FuelType, intent.Amount, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("issue voucher for payment %s: %w", intentID, err)
	}

	s.logger.Info("Paid voucher issued for completed payment",
		zap.String("intent_id", intentID),
		zap.String("voucher_id", issued.Voucher.VoucherID()))
	return issued, nil
}
