// Package worker delivers notifications out of band: admin events from the
// outbox go to cafe managers, due reminders go to booking owners. Delivery
// is at-least-once; the offset cursor and reminder task status bound
// re-delivery after a crash.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ohhaus/cafe-booking/internal/store"

	"github.com/google/uuid"
)

type Worker struct {
	store        store.NotificationStore
	provider     Provider
	batchSize    int
	maxAttempts  int
	retryBackoff time.Duration
}

type payloadData map[string]interface{}

type Config struct {
	BatchSize     int
	MaxAttempts   int
	EmailProvider string
	RetryBackoff  time.Duration
}

func New(st store.NotificationStore, cfg Config) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Worker{
		store:        st,
		provider:     newProvider(cfg.EmailProvider, "email"),
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		retryBackoff: backoff,
	}
}

// Run drains one batch of outbox events and one batch of due reminders.
// A failed event is logged and skipped; the cursor still advances so one
// poison event cannot stall the stream.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.dispatchEvents(ctx); err != nil {
		return err
	}
	return w.deliverReminders(ctx)
}

func (w *Worker) dispatchEvents(ctx context.Context) error {
	last, err := w.store.GetLastOffset(ctx)
	if err != nil {
		return err
	}

	events, err := w.store.ListOutboxEvents(ctx, last, w.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			log.Printf("notif process error: %v", err)
		}
		last = event.CreatedAt
	}

	if !last.IsZero() {
		if err := w.store.UpdateOffset(ctx, last); err != nil {
			return err
		}
	}
	return nil
}

// processEvent fans an admin event out to every manager of the cafe it
// happened in. Events managers do not care about map to no template and
// are dropped.
func (w *Worker) processEvent(ctx context.Context, event store.OutboxEvent) error {
	template := templateForEvent(event.Type)
	if template == "" {
		return nil
	}

	payload := payloadData{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	message := renderTemplate(template, payload)

	emails, err := w.store.ListCafeManagerEmails(ctx, event.CafeID)
	if err != nil {
		return err
	}
	for _, email := range emails {
		w.deliver(ctx, store.Notification{
			NotificationID: uuid.NewString(),
			Channel:        "email",
			Recipient:      email,
			Subject:        subjectForEvent(event.Type),
			Body:           message,
			Status:         "pending",
			Attempts:       1,
		})
	}
	return nil
}

func (w *Worker) deliverReminders(ctx context.Context) error {
	tasks, err := w.store.ListDueReminders(ctx, w.batchSize)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if task.UserEmail == "" {
			if err := w.store.MarkReminderFailed(ctx, task.BookingID, task.EventType, "no recipient email"); err != nil {
				return err
			}
			continue
		}

		message := fmt.Sprintf("Reminder: your table at %s is booked for %s at %s (party of %d).",
			task.CafeName, task.TargetDate, task.SlotStart, task.PartySize)
		sent := w.deliver(ctx, store.Notification{
			NotificationID: uuid.NewString(),
			Channel:        "email",
			Recipient:      task.UserEmail,
			Subject:        "Booking reminder",
			Body:           message,
			Status:         "pending",
			Attempts:       1,
		})
		if sent {
			err = w.store.MarkReminderSent(ctx, task.BookingID, task.EventType)
		} else {
			err = w.store.MarkReminderFailed(ctx, task.BookingID, task.EventType, "provider failure")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// deliver records the notification, pushes it through the provider and
// marks the outcome. Retries happen in-line with a linear backoff capped
// by maxAttempts; after that the notification lands in the DLQ.
func (w *Worker) deliver(ctx context.Context, notification store.Notification) bool {
	if err := w.store.InsertNotification(ctx, notification); err != nil {
		log.Printf("notif insert error: %v", err)
		return false
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = w.provider.Send(ctx, notification.Body, notification.Recipient)
		if lastErr == nil {
			if err := w.store.MarkNotificationSent(ctx, notification.NotificationID); err != nil {
				log.Printf("notif mark sent error: %v", err)
			}
			return true
		}
		if err := w.store.MarkNotificationFailed(ctx, notification.NotificationID, lastErr.Error()); err != nil {
			log.Printf("notif mark failed error: %v", err)
		}
		if attempt < w.maxAttempts {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(w.retryBackoff * time.Duration(attempt)):
			}
		}
	}

	if err := w.store.InsertDLQ(ctx, notification.NotificationID, "max attempts reached: "+lastErr.Error()); err != nil {
		log.Printf("notif dlq error: %v", err)
	}
	return false
}

// templateForEvent maps admin-relevant events to a manager-facing message.
// booking.completed is the automatic sweep closing out an elapsed slot, not
// something a manager acts on, so it stays out of the fan-out.
func templateForEvent(eventType string) string {
	switch eventType {
	case "booking.created":
		return "New booking for {booking_date}, table {table_id}, party of {party_size}."
	case "booking.confirmed":
		return "Booking {booking_id} for {booking_date} was confirmed."
	case "booking.cancelled":
		return "Booking {booking_id} for {booking_date} was cancelled."
	case "booking.no_show":
		return "Booking {booking_id} for {booking_date} was marked no-show."
	default:
		return ""
	}
}

func subjectForEvent(eventType string) string {
	switch eventType {
	case "booking.created":
		return "New booking"
	case "booking.confirmed":
		return "Booking confirmed"
	case "booking.cancelled":
		return "Booking cancelled"
	case "booking.no_show":
		return "Booking no-show"
	default:
		return "Booking update"
	}
}

func renderTemplate(template string, payload payloadData) string {
	result := template
	for _, key := range []string{"booking_id", "booking_date", "table_id", "slot_id", "party_size"} {
		result = strings.ReplaceAll(result, "{"+key+"}", str(payload, key))
	}
	return result
}

func str(payload payloadData, key string) string {
	switch value := payload[key].(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}

func Start(ctx context.Context, interval time.Duration, w *Worker) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				log.Printf("notif worker error: %v", err)
			}
		}
	}
}
