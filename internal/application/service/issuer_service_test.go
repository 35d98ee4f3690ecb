package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/persistence/memory"
	"github.com/fuelgambia/fuel-voucher/internal/qr"
)

func newTestIssuer(store *memory.VoucherStore) *IssuerService {
	return NewIssuerService(store, IssuerConfig{
		SubsidyValidity: 720 * time.Hour,
		PaidValidity:    24 * time.Hour,
	}, zap.NewNop())
}

func TestIssuerService_IssueSubsidyVoucher(t *testing.T) {
	store := memory.NewVoucherStore()
	issuer := newTestIssuer(store)
	ctx := context.Background()

	before := time.Now()
	issued, err := issuer.IssueSubsidyVoucher(ctx, "user-1", "COUPON-X1",
		entity.FuelPetrol, decimal.RequireFromString("1500"), time.Time{})
	require.NoError(t, err)

	sv, ok := issued.Voucher.(entity.SubsidyVoucher)
	require.True(t, ok)
	assert.Equal(t, "user-1", sv.SubjectID)
	assert.Equal(t, "COUPON-X1", sv.CouponID)

	// Zero expiry gets the default subsidy window, truncated to seconds
	assert.WithinDuration(t, before.Add(720*time.Hour), sv.Expiry, 5*time.Second)
	assert.Equal(t, time.UTC, sv.Expiry.Location())
	assert.Zero(t, sv.Expiry.Nanosecond())

	// The encoded payload must decode back to the same voucher
	decoded, err := qr.Decode(issued.Encoded)
	require.NoError(t, err)
	assert.Equal(t, sv.CouponID, decoded.VoucherID())

	// Issuance tracks the voucher as pending
	record, err := store.GetByID(ctx, "COUPON-X1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, entity.VoucherPending, record.Status)
	assert.Equal(t, issued.Encoded, record.EncodedPayload)
}

func TestIssuerService_GeneratesCouponIDWhenAbsent(t *testing.T) {
	issuer := newTestIssuer(memory.NewVoucherStore())

	issued, err := issuer.IssueSubsidyVoucher(context.Background(), "user-1", "",
		entity.FuelDiesel, decimal.RequireFromString("800"), time.Time{})
	require.NoError(t, err)

	id := issued.Voucher.VoucherID()
	assert.True(t, strings.HasPrefix(id, "COUPON-"), "generated id %q", id)
	assert.Equal(t, id, strings.ToUpper(id))
}

func TestIssuerService_SubsidyValidation(t *testing.T) {
	issuer := newTestIssuer(memory.NewVoucherStore())
	ctx := context.Background()

	_, err := issuer.IssueSubsidyVoucher(ctx, "", "c1", entity.FuelPetrol, decimal.NewFromInt(100), time.Time{})
	assert.Error(t, err, "subject id is required")

	_, err = issuer.IssueSubsidyVoucher(ctx, "user-1", "c1", "KEROSENE", decimal.NewFromInt(100), time.Time{})
	assert.Error(t, err, "unknown fuel grade")

	_, err = issuer.IssueSubsidyVoucher(ctx, "user-1", "c1", entity.FuelPetrol, decimal.NewFromInt(-1), time.Time{})
	assert.Error(t, err, "negative remaining amount")

	// Zero remaining is issuable; redemption has nothing to dispense
	issued, err := issuer.IssueSubsidyVoucher(ctx, "user-1", "c1", entity.FuelPetrol, decimal.Zero, time.Time{})
	require.NoError(t, err)
	assert.True(t, issued.Voucher.Amount().IsZero())
}

func TestIssuerService_IssuePaidVoucher(t *testing.T) {
	store := memory.NewVoucherStore()
	issuer := newTestIssuer(store)
	ctx := context.Background()

	issued, err := issuer.IssuePaidVoucher(ctx, "txn-77", entity.FuelDiesel,
		decimal.RequireFromString("2000"), time.Time{})
	require.NoError(t, err)

	pv, ok := issued.Voucher.(entity.PaidVoucher)
	require.True(t, ok)
	assert.Equal(t, "txn-77", pv.TransactionID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), pv.Expiry, 5*time.Second)

	_, err = issuer.IssuePaidVoucher(ctx, "txn-78", entity.FuelDiesel, decimal.Zero, time.Time{})
	assert.Error(t, err, "paid amount must be positive")

	_, err = issuer.IssuePaidVoucher(ctx, "", entity.FuelDiesel, decimal.NewFromInt(100), time.Time{})
	assert.Error(t, err, "transaction id is required")
}

func TestIssuerService_ListPendingAndGet(t *testing.T) {
	store := memory.NewVoucherStore()
	issuer := newTestIssuer(store)
	ctx := context.Background()

	_, err := issuer.IssueSubsidyVoucher(ctx, "user-1", "c1", entity.FuelPetrol, decimal.NewFromInt(500), time.Time{})
	require.NoError(t, err)
	_, err = issuer.IssuePaidVoucher(ctx, "txn-1", entity.FuelDiesel, decimal.NewFromInt(680), time.Time{})
	require.NoError(t, err)

	pending, err := issuer.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, store.UpdateStatus(ctx, "c1", entity.VoucherUsed))
	pending, err = issuer.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	record, err := issuer.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, entity.VoucherPending, record.Status)

	missing, err := issuer.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
