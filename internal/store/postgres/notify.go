package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ohhaus/cafe-booking/internal/models"
	"github.com/ohhaus/cafe-booking/internal/store"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, cafe_id, type, payload_json, created_at
		FROM outbox_events
		WHERE created_at > $1
		ORDER BY created_at ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.CafeID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetLastOffset(ctx context.Context) (time.Time, error) {
	var value time.Time
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time
		FROM notification_offsets
		WHERE id = 1
	`)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return value, nil
}

func (s *Store) UpdateOffset(ctx context.Context, value time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_offsets (id, last_event_time)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_event_time = EXCLUDED.last_event_time
	`, value)
	return err
}

func (s *Store) ListCafeManagerEmails(ctx context.Context, cafeID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.email
		FROM cafe_managers m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.cafe_id = $1 AND u.email <> ''
		ORDER BY u.email ASC
	`, cafeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

func (s *Store) ListDueReminders(ctx context.Context, limit int) ([]store.ReminderTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT r.booking_id, r.event_type, to_char(r.target_date, 'YYYY-MM-DD'),
			r.attempts, u.email, c.name, to_char(sl.start_time, 'HH24:MI'), b.party_size
		FROM reminder_tasks r
		JOIN bookings b ON b.booking_id = r.booking_id
		JOIN users u ON u.user_id = b.user_id
		JOIN cafes c ON c.cafe_id = b.cafe_id
		JOIN slots sl ON sl.slot_id = b.slot_id
		WHERE r.status = 'pending' AND b.status = $1
		ORDER BY r.created_at ASC
		LIMIT $2
	`, models.StatusConfirmed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []store.ReminderTask
	for rows.Next() {
		var task store.ReminderTask
		if err := rows.Scan(&task.BookingID, &task.EventType, &task.TargetDate, &task.Attempts, &task.UserEmail, &task.CafeName, &task.SlotStart, &task.PartySize); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, bookingID, eventType string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE reminder_tasks
		SET status = 'sent', sent_at = NOW()
		WHERE booking_id = $1 AND event_type = $2
	`, bookingID, eventType)
	return err
}

// MarkReminderFailed records a delivery failure. After the configured
// number of attempts the task is dropped (status failed), never retried.
func (s *Store) MarkReminderFailed(ctx context.Context, bookingID, eventType, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE reminder_tasks
		SET attempts = attempts + 1,
			last_error = $3,
			status = CASE WHEN attempts + 1 >= $4 THEN 'failed' ELSE 'pending' END
		WHERE booking_id = $1 AND event_type = $2
	`, bookingID, eventType, reason, s.maxReminderAttempts)
	return err
}

func (s *Store) InsertNotification(ctx context.Context, notification store.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, channel, recipient, subject, body, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, notification.NotificationID, notification.Channel, notification.Recipient,
		notification.Subject, notification.Body, notification.Status, notification.Attempts)
	return err
}

func (s *Store) MarkNotificationSent(ctx context.Context, notificationID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent', sent_at = NOW()
		WHERE notification_id = $1
	`, notificationID)
	return err
}

func (s *Store) MarkNotificationFailed(ctx context.Context, notificationID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', attempts = attempts + 1, last_error = $2
		WHERE notification_id = $1
	`, notificationID, reason)
	return err
}

func (s *Store) InsertDLQ(ctx context.Context, notificationID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_dlq (notification_id, reason, created_at)
		VALUES ($1, $2, NOW())
	`, notificationID, reason)
	return err
}
