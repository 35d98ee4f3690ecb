package entity

// FuelType identifies the dispensed fuel grade
type FuelType string

const (
	FuelPetrol FuelType = "PETROL"
	FuelDiesel FuelType = "DIESEL"
)

// IsValid returns true if the fuel type is a recognized grade
func (f FuelType) IsValid() bool {
	return f == FuelPetrol || f == FuelDiesel
}

// String returns the string representation of the fuel type
func (f FuelType) String() string {
	return string(f)
}

// TransactionMode discriminates subsidy coupons from paid vouchers
type TransactionMode string

const (
	ModeSubsidy TransactionMode = "SUBSIDY"
	ModePaid    TransactionMode = "PAID"
)

// IsValid returns true if the mode is one of the two recognized variants
func (m TransactionMode) IsValid() bool {
	return m == ModeSubsidy || m == ModePaid
}

// String returns the string representation of the mode
func (m TransactionMode) String() string {
	return string(m)
}

// VoucherStatus tracks the local lifecycle of an issued voucher
type VoucherStatus string

const (
	VoucherPending  VoucherStatus = "PENDING"
	VoucherUsed     VoucherStatus = "USED"
	VoucherComplete VoucherStatus = "COMPLETE"
)

// Rank orders statuses along the Pending -> Used -> Complete lifecycle.
// A consumed voucher never moves back to a lower rank.
func (s VoucherStatus) Rank() int {
	switch s {
	case VoucherPending:
		return 0
	case VoucherUsed:
		return 1
	case VoucherComplete:
		return 2
	}
	return -1
}

// PaymentStatus constants for transactions and payment intents
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// QueueItemType identifies the deferred operation carried by a queue item
type QueueItemType string

const (
	QueueQRScan        QueueItemType = "QR_SCAN"
	QueueInventorySync QueueItemType = "INVENTORY_SYNC"
	QueueTransaction   QueueItemType = "TRANSACTION"
)

// IsValid returns true if the queue item type is recognized
func (t QueueItemType) IsValid() bool {
	switch t {
	case QueueQRScan, QueueInventorySync, QueueTransaction:
		return true
	}
	return false
}

// QueueItemStatus constants for offline queue items
type QueueItemStatus string

const (
	QueueStatusPending    QueueItemStatus = "PENDING"
	QueueStatusProcessing QueueItemStatus = "PROCESSING"
	QueueStatusCompleted  QueueItemStatus = "COMPLETED"
	QueueStatusFailed     QueueItemStatus = "FAILED"
	QueueStatusDeadLetter QueueItemStatus = "DEAD_LETTER"
)

// Notification type constants
const (
	NotificationLowStock   = "LOW_STOCK"
	NotificationRedemption = "REDEMPTION"
	NotificationBalance    = "BALANCE"
)
