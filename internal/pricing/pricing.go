// Package pricing converts monetary amounts to dispensed liters. The
// same table backs purchase estimation and redemption so the two can
// never drift.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// Table holds the per-liter price for each fuel grade, in GMD.
type Table struct {
	prices map[entity.FuelType]decimal.Decimal
}

// NewTable builds a price table. Both prices must be positive.
func NewTable(petrol, diesel decimal.Decimal) (*Table, error) {
	if !petrol.IsPositive() || !diesel.IsPositive() {
		return nil, fmt.Errorf("fuel prices must be positive: petrol=%s diesel=%s", petrol, diesel)
	}
	return &Table{prices: map[entity.FuelType]decimal.Decimal{
		entity.FuelPetrol: petrol,
		entity.FuelDiesel: diesel,
	}}, nil
}

// Default returns the current regulated pump prices.
func Default() *Table {
	t, _ := NewTable(decimal.NewFromInt(65), decimal.NewFromInt(68))
	return t
}

// PricePerLiter returns the price for the given fuel grade.
func (t *Table) PricePerLiter(fuel entity.FuelType) decimal.Decimal {
	return t.prices[fuel]
}

// Liters converts a monetary amount to liters at the current price,
// rounded to 2 decimal places with standard rounding. Deterministic
// and monotonic non-decreasing in amount.
func (t *Table) Liters(amount decimal.Decimal, fuel entity.FuelType) decimal.Decimal {
	return amount.Div(t.prices[fuel]).Round(2)
}
