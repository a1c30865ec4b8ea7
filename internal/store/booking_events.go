package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ohhaus/cafe-booking/internal/models"
)

// BookingEvent is one entry in a booking's append-only audit journal.
// Events form a hash chain per booking so tampering is detectable.
type BookingEvent struct {
	BookingID  string          `json:"booking_id"`
	BookingSeq int             `json:"booking_seq"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	PrevHash   string          `json:"prev_hash"`
	Hash       string          `json:"hash"`
}

type eventPayload struct {
	BookingID   string     `json:"booking_id"`
	UserID      string     `json:"user_id"`
	CafeID      string     `json:"cafe_id"`
	TableID     string     `json:"table_id"`
	SlotID      string     `json:"slot_id"`
	BookingDate string     `json:"booking_date"`
	PartySize   int        `json:"party_size"`
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

func ComputeBookingEventHash(prevHash, bookingID, eventType string, payload json.RawMessage, createdAt time.Time, seq int) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, bookingID, eventType, createdAt.UTC().Format(time.RFC3339Nano), seq, payload)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// RehydrateBooking folds an event journal back into the booking's final
// state. Later events win field by field.
func RehydrateBooking(events []BookingEvent) (models.Booking, error) {
	var booking models.Booking
	for _, event := range events {
		if len(event.Payload) == 0 {
			continue
		}
		var payload eventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return models.Booking{}, err
		}
		if payload.BookingID != "" {
			booking.BookingID = payload.BookingID
		}
		if payload.UserID != "" {
			booking.UserID = payload.UserID
		}
		if payload.CafeID != "" {
			booking.CafeID = payload.CafeID
		}
		if payload.TableID != "" {
			booking.TableID = payload.TableID
		}
		if payload.SlotID != "" {
			booking.SlotID = payload.SlotID
		}
		if payload.BookingDate != "" {
			booking.BookingDate = payload.BookingDate
		}
		if payload.PartySize != 0 {
			booking.PartySize = payload.PartySize
		}
		if payload.Status != "" {
			booking.Status = payload.Status
		}
		if payload.CreatedAt != nil {
			booking.CreatedAt = *payload.CreatedAt
		}
		if payload.ConfirmedAt != nil {
			booking.ConfirmedAt = payload.ConfirmedAt
		}
		if payload.CompletedAt != nil {
			booking.CompletedAt = payload.CompletedAt
		}
		if payload.CancelledAt != nil {
			booking.CancelledAt = payload.CancelledAt
		}
	}
	return booking, nil
}
