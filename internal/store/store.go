package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ohhaus/cafe-booking/internal/models"
)

type CreateBookingInput struct {
	RequestID   string
	UserID      string
	CafeID      string
	TableID     string
	SlotID      string
	BookingDate string
	PartySize   int
	Note        string
	CreatedAt   time.Time
}

type TransitionInput struct {
	RequestID    string
	BookingID    string
	ActorID      string
	ActorRole    string
	TargetStatus string
	OccurredAt   time.Time
}

type ListBookingsFilter struct {
	UserID     string
	CafeID     string
	Date       string
	ActiveOnly bool
}

// FreeTableSlot is one still-bookable (table, slot) pair for a cafe+date.
type FreeTableSlot struct {
	TableID  string `json:"table_id"`
	SlotID   string `json:"slot_id"`
	Capacity int    `json:"capacity"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// BookingStore is the authoritative store. CreateBooking and
// TransitionBooking report (booking, applied, error); applied is false when
// the request_id was already processed and the stored result is returned.
type BookingStore interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (models.Booking, bool, error)
	GetBooking(ctx context.Context, bookingID string) (models.Booking, error)
	ListBookings(ctx context.Context, filter ListBookingsFilter) ([]models.Booking, error)
	TransitionBooking(ctx context.Context, input TransitionInput) (models.Booking, bool, error)
	HasActiveBooking(ctx context.Context, tableID, slotID, date string) (bool, error)
	ListFreeTableSlots(ctx context.Context, cafeID, date string) ([]FreeTableSlot, error)
	GetCafe(ctx context.Context, cafeID string) (models.Cafe, error)
	EnsureTableSlotActive(ctx context.Context, cafeID, tableID, slotID string) error
	CompleteElapsed(ctx context.Context, asOf time.Time, batchSize int) ([]models.Booking, error)
	EnqueueReminders(ctx context.Context, targetDate string) (int, error)
	ListBookingEvents(ctx context.Context, bookingID string) ([]BookingEvent, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
}

type Session struct {
	SessionID string
	UserID    string
	Role      string
	ExpiresAt time.Time
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	CafeID    string          `json:"cafe_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReminderTask is a due reminder joined with the contact details the
// delivery worker needs. Keyed by (BookingID, EventType) for dedup.
type ReminderTask struct {
	BookingID  string
	EventType  string
	TargetDate string
	Attempts   int
	UserEmail  string
	CafeName   string
	SlotStart  string
	PartySize  int
}

type Notification struct {
	NotificationID string
	Channel        string
	Recipient      string
	Subject        string
	Body           string
	Status         string
	Attempts       int
}

// NotificationStore is the delivery worker's view of the store.
type NotificationStore interface {
	ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]OutboxEvent, error)
	GetLastOffset(ctx context.Context) (time.Time, error)
	UpdateOffset(ctx context.Context, value time.Time) error
	ListCafeManagerEmails(ctx context.Context, cafeID string) ([]string, error)
	ListDueReminders(ctx context.Context, limit int) ([]ReminderTask, error)
	MarkReminderSent(ctx context.Context, bookingID, eventType string) error
	MarkReminderFailed(ctx context.Context, bookingID, eventType, reason string) error
	InsertNotification(ctx context.Context, notification Notification) error
	MarkNotificationSent(ctx context.Context, notificationID string) error
	MarkNotificationFailed(ctx context.Context, notificationID, reason string) error
	InsertDLQ(ctx context.Context, notificationID, reason string) error
}
