package models

import "time"

type Booking struct {
	BookingID   string     `json:"booking_id"`
	RequestID   string     `json:"request_id"`
	UserID      string     `json:"user_id"`
	CafeID      string     `json:"cafe_id"`
	TableID     string     `json:"table_id"`
	SlotID      string     `json:"slot_id"`
	BookingDate string     `json:"booking_date"`
	PartySize   int        `json:"party_size"`
	Note        string     `json:"note,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

// DateLayout is the wire format for booking dates.
const DateLayout = "2006-01-02"

// Occupies reports whether a booking in this status holds its
// (table, slot, date) triple against other requests.
func Occupies(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

func IsTerminal(status string) bool {
	switch status {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	default:
		return false
	}
}
