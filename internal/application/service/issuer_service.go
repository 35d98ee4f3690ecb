package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/qr"
)

// IssuerConfig holds the default validity windows per voucher mode
type IssuerConfig struct {
	SubsidyValidity time.Duration
	PaidValidity    time.Duration
}

// IssuedVoucher pairs a voucher with its transport encoding. The
// encoded string is what the QR code carries and is the source of
// truth once displayed.
type IssuedVoucher struct {
	Voucher entity.Voucher
	Encoded string
}

// IssuerService constructs vouchers and tracks them in the store.
type IssuerService struct {
	vouchers port.VoucherRepository
	cfg      IssuerConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewIssuerService creates a new issuer service
func NewIssuerService(vouchers port.VoucherRepository, cfg IssuerConfig, logger *zap.Logger) *IssuerService {
	return &IssuerService{
		vouchers: vouchers,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// IssueSubsidyVoucher builds a coupon against a beneficiary's remaining
// allocation. A zero remaining amount is still issuable; redemption
// will simply have nothing to dispense against. A zero expiry gets the
// default subsidy window.
func (s *IssuerService) IssueSubsidyVoucher(ctx context.Context, subjectID, couponID string, fuel entity.FuelType, remaining decimal.Decimal, expiry time.Time) (*IssuedVoucher, error) {
	if remaining.IsNegative() {
		return nil, fmt.Errorf("remaining amount must not be negative: %s", remaining)
	}
	if !fuel.IsValid() {
		return nil, fmt.Errorf("unknown fuel type %q", fuel)
	}
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	if couponID == "" {
		couponID = "COUPON-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if expiry.IsZero() {
		expiry = s.now().Add(s.cfg.SubsidyValidity)
	}

	voucher := entity.SubsidyVoucher{
		SubjectID:       subjectID,
		CouponID:        couponID,
		FuelType:        fuel,
		RemainingAmount: remaining,
		Expiry:          expiry.UTC().Truncate(time.Second),
	}

	return s.issue(ctx, voucher)
}

// IssuePaidVoucher builds a voucher for an already completed payment.
// The transaction id must come from a successful payment-processing
// result; the paid amount is therefore strictly positive.
func (s *IssuerService) IssuePaidVoucher(ctx context.Context, transactionID string, fuel entity.FuelType, paid decimal.Decimal, expiry time.Time) (*IssuedVoucher, error) {
	if !paid.IsPositive() {
		return nil, fmt.Errorf("paid amount must be positive: %s", paid)
	}
	if !fuel.IsValid() {
		return nil, fmt.Errorf("unknown fuel type %q", fuel)
	}
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	if expiry.IsZero() {
		expiry = s.now().Add(s.cfg.PaidValidity)
	}

	voucher := entity.PaidVoucher{
		TransactionID: transactionID,
		FuelType:      fuel,
		PaidAmount:    paid,
		Expiry:        expiry.UTC().Truncate(time.Second),
	}

	return s.issue(ctx, voucher)
}

func (s *IssuerService) issue(ctx context.Context, voucher entity.Voucher) (*IssuedVoucher, error) {
	encoded, err := qr.Encode(voucher)
	if err != nil {
		return nil, fmt.Errorf("failed to encode voucher: %w", err)
	}

	record := &entity.VoucherRecord{
		ID:             voucher.VoucherID(),
		EncodedPayload: encoded,
		Payload:        voucher,
		Status:         entity.VoucherPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.vouchers.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to track issued voucher: %w", err)
	}

	s.logger.Info("Voucher issued",
		zap.String("voucher_id", voucher.VoucherID()),
		zap.String("mode", voucher.Mode().String()),
		zap.String("fuel_type", voucher.Fuel().String()),
		zap.Time("expiry", voucher.ExpiresAt()))

	return &IssuedVoucher{Voucher: voucher, Encoded: encoded}, nil
}

// ListPending surfaces the issuing party's vouchers awaiting redemption
func (s *IssuerService) ListPending(ctx context.Context) ([]*entity.VoucherRecord, error) {
	return s.vouchers.ListPending(ctx)
}

// Get looks up one tracked voucher by id.
func (s *IssuerService) Get(ctx context.Context, voucherID string) (*entity.VoucherRecord, error) {
	return s.vouchers.GetByID(ctx, voucherID)
}
