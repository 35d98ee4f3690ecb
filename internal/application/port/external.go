package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// InventoryService is the backend's view of station stock.
type InventoryService interface {
	GetInventory(ctx context.Context, stationID string) (*entity.Inventory, error)
	UpdateInventory(ctx context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) error
}

// PaymentService processes paid-fuel charges. Payment failures are
// surfaced immediately and never retried through the offline queue.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, fuel entity.FuelType) (*entity.PaymentIntent, error)
	ProcessPayment(ctx context.Context, intentID, method string) (*entity.PaymentIntent, error)
}

// TransactionService submits finalized transactions to the backend and
// queries history.
type TransactionService interface {
	SubmitTransaction(ctx context.Context, tx *entity.Transaction) error
	GetTransactions(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error)
}

// ScanReporter forwards scan events observed while offline.
type ScanReporter interface {
	ReportScan(ctx context.Context, scan entity.QRScanPayload) error
}

// Notifier surfaces operational alerts (low stock, redemptions).
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}
