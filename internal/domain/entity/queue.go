package entity

import (
	"encoding/json"
	"time"
)

// QueueItem is a deferred remote operation persisted by the offline
// durability queue. Items survive process restart and are retried with
// exponential backoff until they resolve or hit the dead-letter ceiling.
type QueueItem struct {
	ID            int64           `json:"id"`
	Type          QueueItemType   `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Status        QueueItemStatus `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	RetryCount    int             `json:"retry_count"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
}

// InventorySyncPayload reconciles a locally applied stock debit with
// the backend once connectivity returns.
type InventorySyncPayload struct {
	StationID string   `json:"station_id"`
	FuelType  FuelType `json:"fuel_type"`
	Liters    string   `json:"liters"`
}

// TransactionPayload defers submission of a finalized transaction.
// VoucherID lets the drain mark the local record Complete once the
// backend accepts the transaction.
type TransactionPayload struct {
	VoucherID   string      `json:"voucher_id"`
	Transaction Transaction `json:"transaction"`
}

// QRScanPayload records a scan event observed while offline.
type QRScanPayload struct {
	VoucherID string    `json:"voucher_id"`
	StationID string    `json:"station_id"`
	Raw       string    `json:"raw"`
	ScannedAt time.Time `json:"scanned_at"`
}
