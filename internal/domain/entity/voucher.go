package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher is the payload carried inside a QR code. It is a sealed sum
// type over two variants: a subsidy coupon drawn against an allocated
// balance, or a receipt for an already completed payment. Exactly one
// monetary field is populated per variant.
type Voucher interface {
	// VoucherID returns the natural key (couponId or transactionId)
	VoucherID() string

	// Mode returns the variant discriminator
	Mode() TransactionMode

	// Fuel returns the fuel grade the voucher is valid for
	Fuel() FuelType

	// Amount returns the redeemable monetary amount in GMD
	Amount() decimal.Decimal

	// ExpiresAt returns the validity deadline
	ExpiresAt() time.Time

	sealed()
}

// SubsidyVoucher is a coupon drawn against a beneficiary's remaining
// subsidy allocation.
type SubsidyVoucher struct {
	SubjectID       string
	CouponID        string
	FuelType        FuelType
	RemainingAmount decimal.Decimal
	Expiry          time.Time
}

func (v SubsidyVoucher) VoucherID() string       { return v.CouponID }
func (v SubsidyVoucher) Mode() TransactionMode   { return ModeSubsidy }
func (v SubsidyVoucher) Fuel() FuelType          { return v.FuelType }
func (v SubsidyVoucher) Amount() decimal.Decimal { return v.RemainingAmount }
func (v SubsidyVoucher) ExpiresAt() time.Time    { return v.Expiry }
func (v SubsidyVoucher) sealed()                 {}

// PaidVoucher represents a single completed payment awaiting dispensing.
type PaidVoucher struct {
	TransactionID string
	FuelType      FuelType
	PaidAmount    decimal.Decimal
	Expiry        time.Time
}

func (v PaidVoucher) VoucherID() string       { return v.TransactionID }
func (v PaidVoucher) Mode() TransactionMode   { return ModePaid }
func (v PaidVoucher) Fuel() FuelType          { return v.FuelType }
func (v PaidVoucher) Amount() decimal.Decimal { return v.PaidAmount }
func (v PaidVoucher) ExpiresAt() time.Time    { return v.Expiry }
func (v PaidVoucher) sealed()                 {}

// Expired reports whether the voucher's validity window has passed at
// the given instant.
func Expired(v Voucher, now time.Time) bool {
	return now.After(v.ExpiresAt())
}

// VoucherRecord is the issuing party's tracked copy of a voucher. The
// encoded payload is the source of truth presented to the attendant;
// the record only mirrors it for local status tracking.
type VoucherRecord struct {
	ID             string        `json:"id"`
	EncodedPayload string        `json:"encoded_payload"`
	Payload        Voucher       `json:"-"`
	Status         VoucherStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UsedAt         *time.Time    `json:"used_at,omitempty"`
}
