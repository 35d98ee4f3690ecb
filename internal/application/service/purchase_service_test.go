package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/persistence/memory"
)

func newTestPurchase(payments *fakePayments) (*PurchaseService, *memory.VoucherStore) {
	store := memory.NewVoucherStore()
	issuer := newTestIssuer(store)
	return NewPurchaseService(payments, issuer, zap.NewNop()), store
}

func TestPurchase_HappyPath(t *testing.T) {
	payments := newFakePayments()
	svc, store := newTestPurchase(payments)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, decimal.NewFromInt(2000), entity.FuelDiesel)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPending, intent.Status)

	issued, err := svc.Purchase(ctx, intent.ID, "mobile_money")
	require.NoError(t, err)

	pv, ok := issued.Voucher.(entity.PaidVoucher)
	require.True(t, ok)
	assert.Equal(t, entity.FuelDiesel, pv.FuelType)
	assert.True(t, pv.PaidAmount.Equal(decimal.NewFromInt(2000)))

	// The voucher is tracked locally, keyed by the settlement id
	record, err := store.GetByID(ctx, pv.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, entity.VoucherPending, record.Status)
}

func TestPurchase_DeclinedChargeIssuesNothing(t *testing.T) {
	payments := newFakePayments()
	payments.decline = true
	svc, store := newTestPurchase(payments)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, decimal.NewFromInt(500), entity.FuelPetrol)
	require.NoError(t, err)

	_, err = svc.Purchase(ctx, intent.ID, "card")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentFailed)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "a declined charge must not issue a voucher")
}

func TestPurchase_CreateIntentValidation(t *testing.T) {
	svc, _ := newTestPurchase(newFakePayments())
	ctx := context.Background()

	_, err := svc.CreateIntent(ctx, decimal.Zero, entity.FuelPetrol)
	assert.Error(t, err, "amount must be positive")

	_, err = svc.CreateIntent(ctx, decimal.NewFromInt(100), "JET_FUEL")
	assert.Error(t, err, "unknown fuel grade")
}

func TestPurchase_UnknownIntent(t *testing.T) {
	svc, _ := newTestPurchase(newFakePayments())

	_, err := svc.Purchase(context.Background(), "payment-nope", "card")
	assert.Error(t, err)
}
