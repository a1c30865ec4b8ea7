package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ohhaus/cafe-booking/internal/store"
)

type fakeNotifStore struct {
	events    []store.OutboxEvent
	offset    time.Time
	managers  []string
	reminders []store.ReminderTask

	inserted       []store.Notification
	sent           []string
	failed         []string
	dlq            []string
	remindersSent  []string
	remindersError []string
}

func (f *fakeNotifStore) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	var out []store.OutboxEvent
	for _, event := range f.events {
		if event.CreatedAt.After(after) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeNotifStore) GetLastOffset(ctx context.Context) (time.Time, error) {
	return f.offset, nil
}

func (f *fakeNotifStore) UpdateOffset(ctx context.Context, value time.Time) error {
	f.offset = value
	return nil
}

func (f *fakeNotifStore) ListCafeManagerEmails(ctx context.Context, cafeID string) ([]string, error) {
	return f.managers, nil
}

func (f *fakeNotifStore) ListDueReminders(ctx context.Context, limit int) ([]store.ReminderTask, error) {
	return f.reminders, nil
}

func (f *fakeNotifStore) MarkReminderSent(ctx context.Context, bookingID, eventType string) error {
	f.remindersSent = append(f.remindersSent, bookingID)
	return nil
}

func (f *fakeNotifStore) MarkReminderFailed(ctx context.Context, bookingID, eventType, reason string) error {
	f.remindersError = append(f.remindersError, bookingID)
	return nil
}

func (f *fakeNotifStore) InsertNotification(ctx context.Context, notification store.Notification) error {
	f.inserted = append(f.inserted, notification)
	return nil
}

func (f *fakeNotifStore) MarkNotificationSent(ctx context.Context, notificationID string) error {
	f.sent = append(f.sent, notificationID)
	return nil
}

func (f *fakeNotifStore) MarkNotificationFailed(ctx context.Context, notificationID, reason string) error {
	f.failed = append(f.failed, notificationID)
	return nil
}

func (f *fakeNotifStore) InsertDLQ(ctx context.Context, notificationID, reason string) error {
	f.dlq = append(f.dlq, notificationID)
	return nil
}

func outboxEvent(eventType string, at time.Time) store.OutboxEvent {
	payload, _ := json.Marshal(map[string]interface{}{
		"booking_id":   "b1",
		"booking_date": "2025-06-01",
		"table_id":     "t1",
		"party_size":   4,
	})
	return store.OutboxEvent{
		EventID:   "e-" + eventType,
		CafeID:    "c1",
		Type:      eventType,
		Payload:   payload,
		CreatedAt: at,
	}
}

func TestDispatchNotifiesEveryManager(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.created", now)},
		managers: []string{"a@cafe.test", "b@cafe.test"},
	}
	w := New(st, Config{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.inserted) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(st.inserted))
	}
	if len(st.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(st.sent))
	}
	if !st.offset.Equal(now) {
		t.Fatalf("expected cursor at %v, got %v", now, st.offset)
	}
}

func TestDispatchNotifiesOnConfirmation(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.confirmed", now)},
		managers: []string{"a@cafe.test", "b@cafe.test"},
	}
	w := New(st, Config{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.inserted) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(st.inserted))
	}
	if st.inserted[0].Subject != "Booking confirmed" {
		t.Fatalf("unexpected subject: %s", st.inserted[0].Subject)
	}
	if st.inserted[0].Body != "Booking b1 for 2025-06-01 was confirmed." {
		t.Fatalf("unexpected body: %s", st.inserted[0].Body)
	}
}

func TestDispatchSkipsUninterestingEvents(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.completed", now)},
		managers: []string{"a@cafe.test"},
	}
	w := New(st, Config{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.inserted) != 0 {
		t.Fatalf("expected no notifications, got %d", len(st.inserted))
	}
	// The cursor still advances past the skipped event.
	if !st.offset.Equal(now) {
		t.Fatalf("expected cursor at %v, got %v", now, st.offset)
	}
}

func TestCursorSkipsAlreadyDispatched(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.created", now)},
		offset:   now,
		managers: []string{"a@cafe.test"},
	}
	w := New(st, Config{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.inserted) != 0 {
		t.Fatalf("expected replayed event to be skipped, got %d notifications", len(st.inserted))
	}
}

func TestReminderDelivery(t *testing.T) {
	st := &fakeNotifStore{
		reminders: []store.ReminderTask{{
			BookingID:  "b1",
			EventType:  "reminder.day_before",
			TargetDate: "2025-06-01",
			UserEmail:  "guest@example.test",
			CafeName:   "Corner Cafe",
			SlotStart:  "18:00",
			PartySize:  2,
		}},
	}
	w := New(st, Config{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.remindersSent) != 1 || st.remindersSent[0] != "b1" {
		t.Fatalf("expected reminder b1 marked sent, got %v", st.remindersSent)
	}
	if len(st.inserted) != 1 || st.inserted[0].Recipient != "guest@example.test" {
		t.Fatalf("unexpected notifications: %v", st.inserted)
	}
}

func TestReminderWithoutEmailFails(t *testing.T) {
	st := &fakeNotifStore{
		reminders: []store.ReminderTask{{BookingID: "b1", EventType: "reminder.day_before"}},
	}
	w := New(st, Config{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.remindersError) != 1 {
		t.Fatalf("expected reminder marked failed, got %v", st.remindersError)
	}
	if len(st.inserted) != 0 {
		t.Fatalf("expected no notification without recipient, got %d", len(st.inserted))
	}
}

func TestProviderFailureLandsInDLQ(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.created", now)},
		managers: []string{"a@cafe.test"},
	}
	w := New(st, Config{EmailProvider: "fail", MaxAttempts: 2, RetryBackoff: time.Millisecond})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.failed) != 2 {
		t.Fatalf("expected 2 failed attempts, got %d", len(st.failed))
	}
	if len(st.dlq) != 1 {
		t.Fatalf("expected 1 DLQ entry, got %d", len(st.dlq))
	}
	if len(st.sent) != 0 {
		t.Fatalf("expected no successful send, got %d", len(st.sent))
	}
}

func TestRetryWaitsBetweenAttempts(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.created", now)},
		managers: []string{"a@cafe.test"},
	}
	backoff := 30 * time.Millisecond
	w := New(st, Config{EmailProvider: "fail", MaxAttempts: 3, RetryBackoff: backoff})

	started := time.Now()
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// Linear backoff: one wait of backoff and one of 2*backoff.
	if elapsed := time.Since(started); elapsed < 3*backoff {
		t.Fatalf("expected at least %v between attempts, ran in %v", 3*backoff, elapsed)
	}
	if len(st.dlq) != 1 {
		t.Fatalf("expected 1 DLQ entry, got %d", len(st.dlq))
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	now := time.Now()
	st := &fakeNotifStore{
		events:   []store.OutboxEvent{outboxEvent("booking.created", now)},
		managers: []string{"a@cafe.test"},
	}
	w := New(st, Config{EmailProvider: "fail", MaxAttempts: 5, RetryBackoff: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("delivery did not stop on cancelled context")
	}
	if len(st.failed) != 1 {
		t.Fatalf("expected a single attempt before stopping, got %d", len(st.failed))
	}
}

func TestRenderTemplate(t *testing.T) {
	payload := payloadData{
		"booking_date": "2025-06-01",
		"party_size":   float64(4),
	}
	got := renderTemplate("Booking for {booking_date}, party of {party_size}", payload)
	if got != "Booking for 2025-06-01, party of 4" {
		t.Fatalf("unexpected render: %s", got)
	}
}
