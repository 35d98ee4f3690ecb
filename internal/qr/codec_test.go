package qr

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

func TestCodec_RoundTrip_Subsidy(t *testing.T) {
	expiry := time.Date(2026, 9, 15, 12, 30, 45, 0, time.UTC)
	original := entity.SubsidyVoucher{
		SubjectID:       "user-42",
		CouponID:        "COUPON-AB12CD34",
		FuelType:        entity.FuelPetrol,
		RemainingAmount: decimal.RequireFromString("1500.50"),
		Expiry:          expiry,
	}

	encoded, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	sv, ok := decoded.(entity.SubsidyVoucher)
	require.True(t, ok, "expected a subsidy voucher, got %T", decoded)
	assert.Equal(t, original.SubjectID, sv.SubjectID)
	assert.Equal(t, original.CouponID, sv.CouponID)
	assert.Equal(t, original.FuelType, sv.FuelType)
	assert.True(t, original.RemainingAmount.Equal(sv.RemainingAmount),
		"amount changed in transit: %s != %s", original.RemainingAmount, sv.RemainingAmount)
	assert.True(t, original.Expiry.Equal(sv.Expiry))
}

func TestCodec_RoundTrip_Paid(t *testing.T) {
	expiry := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	original := entity.PaidVoucher{
		TransactionID: "txn-9f8e7d",
		FuelType:      entity.FuelDiesel,
		PaidAmount:    decimal.RequireFromString("2000"),
		Expiry:        expiry,
	}

	encoded, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	pv, ok := decoded.(entity.PaidVoucher)
	require.True(t, ok, "expected a paid voucher, got %T", decoded)
	assert.Equal(t, original.TransactionID, pv.TransactionID)
	assert.Equal(t, original.FuelType, pv.FuelType)
	assert.True(t, original.PaidAmount.Equal(pv.PaidAmount))
	assert.True(t, original.Expiry.Equal(pv.Expiry))
}

func TestCodec_EncodeIsDeterministic(t *testing.T) {
	v := entity.PaidVoucher{
		TransactionID: "txn-1",
		FuelType:      entity.FuelPetrol,
		PaidAmount:    decimal.RequireFromString("650"),
		Expiry:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}

	first, err := Encode(v)
	require.NoError(t, err)
	second, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCodec_WireCarriesAmountAsNumber(t *testing.T) {
	v := entity.SubsidyVoucher{
		SubjectID:       "user-1",
		CouponID:        "COUPON-1",
		FuelType:        entity.FuelPetrol,
		RemainingAmount: decimal.RequireFromString("500"),
		Expiry:          time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}

	encoded, err := Encode(v)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(encoded), &fields))
	assert.Equal(t, "500", string(fields["remainingAmount"]), "amount must be a bare JSON number")
	assert.Equal(t, `"SUBSIDY"`, string(fields["mode"]))
}

func TestDecode_ErrorTaxonomy(t *testing.T) {
	valid := `{"userId":"u1","couponId":"c1","fuelType":"PETROL","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z","mode":"SUBSIDY"}`

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "not JSON at all",
			raw:     "not-a-voucher",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "truncated JSON",
			raw:     `{"userId":"u1","mode":`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "empty string",
			raw:     "",
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "mode absent",
			raw:     `{"userId":"u1","couponId":"c1","fuelType":"PETROL","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z"}`,
			wantErr: ErrUnknownMode,
		},
		{
			name:    "mode unrecognized",
			raw:     `{"userId":"u1","couponId":"c1","fuelType":"PETROL","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z","mode":"LOYALTY"}`,
			wantErr: ErrUnknownMode,
		},
		{
			name:    "mode wrong type",
			raw:     `{"mode":7}`,
			wantErr: ErrUnknownMode,
		},
		{
			name:    "subsidy missing userId",
			raw:     `{"couponId":"c1","fuelType":"PETROL","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z","mode":"SUBSIDY"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "subsidy empty couponId",
			raw:     `{"userId":"u1","couponId":"","fuelType":"PETROL","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z","mode":"SUBSIDY"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "unknown fuel grade",
			raw:     `{"userId":"u1","couponId":"c1","fuelType":"KEROSENE","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z","mode":"SUBSIDY"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "amount quoted instead of numeric",
			raw:     `{"userId":"u1","couponId":"c1","fuelType":"PETROL","remainingAmount":"500","expiry":"2026-09-01T00:00:00Z","mode":"SUBSIDY"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "expiry not RFC3339",
			raw:     `{"userId":"u1","couponId":"c1","fuelType":"PETROL","remainingAmount":500,"expiry":"tomorrow","mode":"SUBSIDY"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "paid missing transactionId",
			raw:     `{"fuelType":"DIESEL","paidAmount":2000,"expiry":"2026-09-01T00:00:00Z","mode":"PAID"}`,
			wantErr: ErrMissingField,
		},
	}

	// Sanity check the baseline before probing mutations of it.
	_, err := Decode(valid)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_ErrorNamesField(t *testing.T) {
	_, err := Decode(`{"userId":"u1","fuelType":"PETROL","remainingAmount":500,"expiry":"2026-09-01T00:00:00Z","mode":"SUBSIDY"}`)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "couponId", decodeErr.Field)
}

func TestDecode_NeverPanics(t *testing.T) {
	inputs := []string{
		"", "null", "[]", "{}", "0", `"just a string"`,
		`{"mode":null}`, `{"mode":"SUBSIDY"}`, `{"mode":"PAID","paidAmount":{}}`,
	}
	for _, raw := range inputs {
		_, err := Decode(raw)
		assert.Error(t, err, "input %q should be rejected, not accepted or panic", raw)
	}
}
