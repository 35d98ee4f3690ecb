// Package qr implements the voucher transport codec: the UTF-8 JSON
// payload a voucher QR code carries. The encoded string is
// self-contained; decoding needs no external lookups.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

var (
	// ErrMalformedPayload is returned when the raw string is not a
	// well-formed JSON object
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnknownMode is returned when mode is absent or not one of the
	// two recognized variants
	ErrUnknownMode = errors.New("unknown voucher mode")

	// ErrMissingField is returned when a required field for the
	// detected variant is absent or of the wrong type
	ErrMissingField = errors.New("missing required field")
)

// DecodeError carries the failing field alongside the taxonomy sentinel.
type DecodeError struct {
	Field string
	err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%v: %s", e.err, e.Field)
	}
	return e.err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

func decodeErr(sentinel error, field string) error {
	return &DecodeError{Field: field, err: sentinel}
}

type subsidyWire struct {
	UserID          string      `json:"userId"`
	CouponID        string      `json:"couponId"`
	FuelType        string      `json:"fuelType"`
	RemainingAmount json.Number `json:"remainingAmount"`
	Expiry          string      `json:"expiry"`
	Mode            string      `json:"mode"`
}

type paidWire struct {
	TransactionID string      `json:"transactionId"`
	FuelType      string      `json:"fuelType"`
	PaidAmount    json.Number `json:"paidAmount"`
	Expiry        string      `json:"expiry"`
	Mode          string      `json:"mode"`
}

// Encode serializes a voucher to its transport string. It is total and
// deterministic for every valid voucher: Decode(Encode(v)) == v.
func Encode(v entity.Voucher) (string, error) {
	var wire any
	switch p := v.(type) {
	case entity.SubsidyVoucher:
		wire = subsidyWire{
			UserID:          p.SubjectID,
			CouponID:        p.CouponID,
			FuelType:        p.FuelType.String(),
			RemainingAmount: json.Number(p.RemainingAmount.String()),
			Expiry:          p.Expiry.UTC().Format(time.RFC3339),
			Mode:            entity.ModeSubsidy.String(),
		}
	case entity.PaidVoucher:
		wire = paidWire{
			TransactionID: p.TransactionID,
			FuelType:      p.FuelType.String(),
			PaidAmount:    json.Number(p.PaidAmount.String()),
			Expiry:        p.Expiry.UTC().Format(time.RFC3339),
			Mode:          entity.ModePaid.String(),
		}
	default:
		return "", fmt.Errorf("unsupported voucher variant %T", v)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to encode voucher: %w", err)
	}
	return string(data), nil
}

// Decode parses a scanned transport string back into a voucher. It
// never panics; all failures map to the decode error taxonomy.
func Decode(raw string) (entity.Voucher, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, decodeErr(ErrMalformedPayload, "")
	}

	var mode string
	if rawMode, ok := fields["mode"]; !ok || json.Unmarshal(rawMode, &mode) != nil {
		return nil, decodeErr(ErrUnknownMode, "mode")
	}

	switch entity.TransactionMode(mode) {
	case entity.ModeSubsidy:
		return decodeSubsidy(fields)
	case entity.ModePaid:
		return decodePaid(fields)
	default:
		return nil, decodeErr(ErrUnknownMode, "mode")
	}
}

func decodeSubsidy(fields map[string]json.RawMessage) (entity.Voucher, error) {
	userID, err := requireString(fields, "userId")
	if err != nil {
		return nil, err
	}
	couponID, err := requireString(fields, "couponId")
	if err != nil {
		return nil, err
	}
	fuel, err := requireFuelType(fields)
	if err != nil {
		return nil, err
	}
	amount, err := requireAmount(fields, "remainingAmount")
	if err != nil {
		return nil, err
	}
	expiry, err := requireTime(fields, "expiry")
	if err != nil {
		return nil, err
	}

	return entity.SubsidyVoucher{
		SubjectID:       userID,
		CouponID:        couponID,
		FuelType:        fuel,
		RemainingAmount: amount,
		Expiry:          expiry,
	}, nil
}

func decodePaid(fields map[string]json.RawMessage) (entity.Voucher, error) {
	txID, err := requireString(fields, "transactionId")
	if err != nil {
		return nil, err
	}
	fuel, err := requireFuelType(fields)
	if err != nil {
		return nil, err
	}
	amount, err := requireAmount(fields, "paidAmount")
	if err != nil {
		return nil, err
	}
	expiry, err := requireTime(fields, "expiry")
	if err != nil {
		return nil, err
	}

	return entity.PaidVoucher{
		TransactionID: txID,
		FuelType:      fuel,
		PaidAmount:    amount,
		Expiry:        expiry,
	}, nil
}

func requireString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", decodeErr(ErrMissingField, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", decodeErr(ErrMissingField, key)
	}
	return s, nil
}

func requireFuelType(fields map[string]json.RawMessage) (entity.FuelType, error) {
	s, err := requireString(fields, "fuelType")
	if err != nil {
		return "", err
	}
	fuel := entity.FuelType(s)
	if !fuel.IsValid() {
		return "", decodeErr(ErrMissingField, "fuelType")
	}
	return fuel, nil
}

// requireAmount insists on a JSON number, matching the wire contract.
// A quoted amount is treated as the wrong semantic type.
func requireAmount(fields map[string]json.RawMessage, key string) (decimal.Decimal, error) {
	raw, ok := fields[key]
	if !ok {
		return decimal.Zero, decodeErr(ErrMissingField, key)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return decimal.Zero, decodeErr(ErrMissingField, key)
	}
	if len(raw) > 0 && raw[0] == '"' {
		return decimal.Zero, decodeErr(ErrMissingField, key)
	}
	amount, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero, decodeErr(ErrMissingField, key)
	}
	return amount, nil
}

func requireTime(fields map[string]json.RawMessage, key string) (time.Time, error) {
	s, err := requireString(fields, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, parseErr := time.Parse(time.RFC3339, s)
	if parseErr != nil {
		return time.Time{}, decodeErr(ErrMissingField, key)
	}
	return ts, nil
}
