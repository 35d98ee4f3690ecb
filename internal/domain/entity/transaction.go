package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the append-only record of a redemption attempt. A
// failed retry produces a new record; existing rows are never mutated.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	StationID string          `json:"station_id,omitempty"`
	FuelType  FuelType        `json:"fuel_type"`
	Amount    decimal.Decimal `json:"amount"`
	Liters    decimal.Decimal `json:"liters"`
	Mode      TransactionMode `json:"mode"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionFilter narrows transaction queries. Zero values match all.
type TransactionFilter struct {
	StationID string
	Mode      TransactionMode
	Status    PaymentStatus
	Since     time.Time
	Limit     int
}

// PaymentIntent mirrors the payment collaborator's view of a charge.
type PaymentIntent struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	FuelType      FuelType        `json:"fuel_type"`
	Status        PaymentStatus   `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
}
