package redemption

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not allowed
	// in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrExpired is returned when a voucher's validity window has passed
	ErrExpired = errors.New("voucher expired")

	// ErrInsufficientStock is returned when requested liters exceed the
	// station's available stock for the fuel grade
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVoucherConsumed is returned when the local store already marks
	// the voucher as used or complete
	ErrVoucherConsumed = errors.New("voucher already consumed")
)
