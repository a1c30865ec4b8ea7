package store

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrCafeNotFound      = errors.New("cafe not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAccessDenied      = errors.New("access denied")
	ErrDateInPast        = errors.New("booking date in the past")
	ErrCapacityExceeded  = errors.New("party size exceeds table capacity")
	ErrSessionNotFound   = errors.New("session not found")
)
