package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory is a station's fuel stock snapshot, in liters. Stock is
// only mutated by the redemption engine's debit and by backend sync,
// and is never driven negative.
type Inventory struct {
	StationID   string          `json:"station_id"`
	StationName string          `json:"station_name"`
	PetrolStock decimal.Decimal `json:"petrol_stock"`
	DieselStock decimal.Decimal `json:"diesel_stock"`
	LastUpdated time.Time       `json:"last_updated"`
}

// StockFor returns the current stock level for the given fuel grade.
func (i Inventory) StockFor(fuel FuelType) decimal.Decimal {
	if fuel == FuelDiesel {
		return i.DieselStock
	}
	return i.PetrolStock
}

// SubsidyAccount holds a beneficiary's allocation-cycle balance.
type SubsidyAccount struct {
	SubjectID         string          `json:"subject_id"`
	FuelType          FuelType        `json:"fuel_type"`
	MonthlyAllocation decimal.Decimal `json:"monthly_allocation"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`
	ExpiryDate        time.Time       `json:"expiry_date"`
}

// Notification is an operational alert surfaced to the station or
// account owner (low stock, redemption confirmations).
type Notification struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
