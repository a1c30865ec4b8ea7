package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/ohhaus/cafe-booking/internal/models"
	"github.com/ohhaus/cafe-booking/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `
	booking_id, request_id, user_id, cafe_id, table_id, slot_id,
	booking_date, party_size, note, status, created_at, updated_at,
	confirmed_at, completed_at, cancelled_at
`

type Store struct {
	pool                *pgxpool.Pool
	autoConfirm         bool
	maxReminderAttempts int
}

type Options struct {
	// AutoConfirm makes new bookings start as confirmed instead of
	// pending staff approval.
	AutoConfirm         bool
	MaxReminderAttempts int
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	maxAttempts := options.MaxReminderAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Store{
		pool:                pool,
		autoConfirm:         options.AutoConfirm,
		maxReminderAttempts: maxAttempts,
	}
}

// CreateBooking validates the request against the catalog and commits the
// admission decision in one transaction. The partial unique index over
// non-terminal statuses is the final arbiter: when the conditional insert
// returns no row, another booking holds the triple and the caller gets
// ErrSlotUnavailable. A request_id that was already processed returns the
// original booking with applied=false.
func (s *Store) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findBookingByRequestID(ctx, tx, input.RequestID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		return existing, false, nil
	}

	if err = ensureCafeActive(ctx, tx, input.CafeID); err != nil {
		return models.Booking{}, false, err
	}
	capacity, err := lookupTableCapacity(ctx, tx, input.TableID, input.CafeID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if err = ensureSlotActive(ctx, tx, input.SlotID, input.CafeID); err != nil {
		return models.Booking{}, false, err
	}
	if input.PartySize > capacity {
		err = store.ErrCapacityExceeded
		return models.Booking{}, false, err
	}

	status := models.StatusPending
	if s.autoConfirm {
		status = models.StatusConfirmed
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	bookingID := uuid.NewString()

	var confirmedAt *time.Time
	if status == models.StatusConfirmed {
		confirmedAt = &createdAt
	}

	var booking models.Booking
	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (
			booking_id, request_id, user_id, cafe_id, table_id, slot_id,
			booking_date, party_size, note, status, created_at, updated_at, confirmed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11,$12)
		ON CONFLICT (table_id, slot_id, booking_date)
			WHERE status IN ('pending','confirmed')
			DO NOTHING
		RETURNING `+bookingColumns,
		bookingID, input.RequestID, input.UserID, input.CafeID, input.TableID,
		input.SlotID, input.BookingDate, input.PartySize, input.Note, status,
		createdAt, confirmedAt)
	booking, err = scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrSlotUnavailable
			return models.Booking{}, false, err
		}
		// Two in-flight requests with the same request_id can both miss
		// the pre-check; the loser trips the request_id unique key and
		// replays the winner's stored booking.
		if isUniqueViolation(err, "bookings_request_id_key") {
			_ = tx.Rollback(ctx)
			var found bool
			existing, found, err = findBookingByRequestID(ctx, s.pool, input.RequestID)
			if err != nil {
				return models.Booking{}, false, err
			}
			if found {
				return existing, false, nil
			}
			err = store.ErrSlotUnavailable
		}
		return models.Booking{}, false, err
	}

	if err = insertOutboxEvent(ctx, tx, "booking.created", booking); err != nil {
		return models.Booking{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

// TransitionBooking applies one lifecycle transition under the actor's
// authority. The booking row is locked for the duration so concurrent
// transitions serialize; repeated request_ids replay the stored outcome.
func (s *Store) TransitionBooking(ctx context.Context, input store.TransitionInput) (models.Booking, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findActionRequest(ctx, tx, input.RequestID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		return existing, false, nil
	}

	var booking models.Booking
	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
		FOR UPDATE
	`, input.BookingID)
	booking, err = scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrBookingNotFound
		}
		return models.Booking{}, false, err
	}

	// A concurrent transition with the same request_id may have committed
	// while we waited for the row lock; re-check now that we hold it so
	// the replay wins over a spurious invalid-transition error.
	existing, found, err = findActionRequest(ctx, tx, input.RequestID)
	if err != nil {
		return models.Booking{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Booking{}, false, err
		}
		return existing, false, nil
	}

	if err = s.authorizeTransition(ctx, tx, booking, input); err != nil {
		return models.Booking{}, false, err
	}

	if !store.ValidTransition(booking.Status, input.TargetStatus) {
		err = store.ErrInvalidTransition
		return models.Booking{}, false, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	timestampCol := ""
	switch input.TargetStatus {
	case models.StatusConfirmed:
		timestampCol = ", confirmed_at = $2"
	case models.StatusCompleted:
		timestampCol = ", completed_at = $2"
	case models.StatusCancelled:
		timestampCol = ", cancelled_at = $2"
	}
	row = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3,
			updated_at = $2`+timestampCol+`
		WHERE booking_id = $1 AND status = $4
		RETURNING `+bookingColumns,
		input.BookingID, occurredAt, input.TargetStatus, booking.Status)
	booking, err = scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrInvalidTransition
		}
		return models.Booking{}, false, err
	}

	if err = insertActionRequest(ctx, tx, input.RequestID, booking.BookingID, input.TargetStatus, input.ActorID); err != nil {
		if isUniqueViolation(err, "booking_actions_pkey") {
			_ = tx.Rollback(ctx)
			var replayed models.Booking
			var done bool
			replayed, done, err = findActionRequest(ctx, s.pool, input.RequestID)
			if err != nil {
				return models.Booking{}, false, err
			}
			if done {
				return replayed, false, nil
			}
			err = store.ErrInvalidTransition
		}
		return models.Booking{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, "booking."+input.TargetStatus, booking); err != nil {
		return models.Booking{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

func (s *Store) authorizeTransition(ctx context.Context, tx pgx.Tx, booking models.Booking, input store.TransitionInput) error {
	switch input.ActorRole {
	case "admin":
		return nil
	case "staff":
		manager, err := isCafeManager(ctx, tx, booking.CafeID, input.ActorID)
		if err != nil {
			return err
		}
		if !manager {
			return store.ErrAccessDenied
		}
		return nil
	default:
		if booking.UserID != input.ActorID || !store.OwnerMayRequest(input.TargetStatus) {
			return store.ErrAccessDenied
		}
		return nil
	}
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (models.Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	booking, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, store.ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return booking, nil
}

func (s *Store) ListBookings(ctx context.Context, filter store.ListBookingsFilter) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE TRUE
	`
	var args []interface{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += ` AND user_id = $` + itoa(len(args))
	}
	if filter.CafeID != "" {
		args = append(args, filter.CafeID)
		query += ` AND cafe_id = $` + itoa(len(args))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		query += ` AND booking_date = $` + itoa(len(args))
	}
	if filter.ActiveOnly {
		query += ` AND status IN ('pending','confirmed')`
	}
	query += ` ORDER BY booking_date DESC, created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBookingRow(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *Store) HasActiveBooking(ctx context.Context, tableID, slotID, date string) (bool, error) {
	var taken bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE table_id = $1 AND slot_id = $2 AND booking_date = $3
				AND status IN ('pending','confirmed')
		)
	`, tableID, slotID, date)
	if err := row.Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (s *Store) ListFreeTableSlots(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.table_id, sl.slot_id, t.capacity,
			to_char(sl.start_time, 'HH24:MI'), to_char(sl.end_time, 'HH24:MI')
		FROM tables t
		JOIN slots sl ON sl.cafe_id = t.cafe_id
		WHERE t.cafe_id = $1 AND t.active = TRUE AND sl.active = TRUE
			AND NOT EXISTS (
				SELECT 1
				FROM bookings b
				WHERE b.table_id = t.table_id AND b.slot_id = sl.slot_id
					AND b.booking_date = $2
					AND b.status IN ('pending','confirmed')
			)
		ORDER BY t.name ASC, sl.start_time ASC
	`, cafeID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var free []store.FreeTableSlot
	for rows.Next() {
		var pair store.FreeTableSlot
		if err := rows.Scan(&pair.TableID, &pair.SlotID, &pair.Capacity, &pair.Start, &pair.End); err != nil {
			return nil, err
		}
		free = append(free, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return free, nil
}

func (s *Store) GetCafe(ctx context.Context, cafeID string) (models.Cafe, error) {
	var cafe models.Cafe
	var tzNull sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT cafe_id, name, timezone, active
		FROM cafes
		WHERE cafe_id = $1
	`, cafeID)
	if err := row.Scan(&cafe.CafeID, &cafe.Name, &tzNull, &cafe.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Cafe{}, store.ErrCafeNotFound
		}
		return models.Cafe{}, err
	}
	if tzNull.Valid {
		cafe.Timezone = tzNull.String
	}
	return cafe, nil
}

// EnsureTableSlotActive checks that the table and slot exist, are active
// and belong to the cafe. Used by read paths; admission re-checks inside
// its own transaction.
func (s *Store) EnsureTableSlotActive(ctx context.Context, cafeID, tableID, slotID string) error {
	var ok bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tables WHERE table_id = $1 AND cafe_id = $2 AND active = TRUE
		)
	`, tableID, cafeID)
	if err := row.Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return store.ErrTableNotFound
	}
	row = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slots WHERE slot_id = $1 AND cafe_id = $2 AND active = TRUE
		)
	`, slotID, cafeID)
	if err := row.Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return store.ErrSlotNotFound
	}
	return nil
}

// CompleteElapsed promotes confirmed bookings whose slot end has passed in
// the cafe's local time to completed. Rows are claimed with SKIP LOCKED so
// concurrent sweeps never double-transition; already-terminal bookings are
// simply not selected, which makes re-runs no-ops.
func (s *Store) CompleteElapsed(ctx context.Context, asOf time.Time, batchSize int) ([]models.Booking, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT b.booking_id
		FROM bookings b
		JOIN slots sl ON sl.slot_id = b.slot_id
		JOIN cafes c ON c.cafe_id = b.cafe_id
		WHERE b.status = 'confirmed'
			AND ((b.booking_date + sl.end_time) AT TIME ZONE COALESCE(NULLIF(c.timezone, ''), 'UTC')) <= $1
		ORDER BY b.booking_date ASC
		FOR UPDATE OF b SKIP LOCKED
		LIMIT $2
	`, asOf, batchSize)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if err = tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	completedAt := asOf.UTC()
	var completed []models.Booking
	for _, id := range ids {
		row := tx.QueryRow(ctx, `
			UPDATE bookings
			SET status = 'completed',
				completed_at = $2,
				updated_at = $2
			WHERE booking_id = $1 AND status = 'confirmed'
			RETURNING `+bookingColumns, id, completedAt)
		booking, scanErr := scanBookingRow(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				continue
			}
			err = scanErr
			return nil, err
		}
		if err = insertOutboxEvent(ctx, tx, "booking.completed", booking); err != nil {
			return nil, err
		}
		completed = append(completed, booking)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return completed, nil
}

// EnqueueReminders inserts one reminder task per confirmed booking on the
// target date. The (booking_id, event_type) key makes the sweep safe to
// retry and to run concurrently with a previous invocation.
func (s *Store) EnqueueReminders(ctx context.Context, targetDate string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO reminder_tasks (booking_id, event_type, target_date, status, attempts, created_at)
		SELECT booking_id, 'reminder', booking_date, 'pending', 0, NOW()
		FROM bookings
		WHERE booking_date = $1 AND status = 'confirmed'
		ON CONFLICT (booking_id, event_type) DO NOTHING
	`, targetDate)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT s.session_id, s.user_id, u.role, s.expires_at
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.session_id = $1
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	if time.Now().After(session.ExpiresAt) {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

// rowQuerier lets the request-id lookups run inside a transaction or on
// the pool after a rollback.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findBookingByRequestID(ctx context.Context, q rowQuerier, requestID string) (models.Booking, bool, error) {
	row := q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE request_id = $1
	`, requestID)
	booking, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, false, nil
		}
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

func findActionRequest(ctx context.Context, q rowQuerier, requestID string) (models.Booking, bool, error) {
	row := q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = (
			SELECT booking_id FROM booking_actions WHERE request_id = $1
		)
	`, requestID)
	booking, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, false, nil
		}
		return models.Booking{}, false, err
	}
	return booking, true, nil
}

func insertActionRequest(ctx context.Context, tx pgx.Tx, requestID, bookingID, targetStatus, actorID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_actions (request_id, booking_id, target_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, requestID, bookingID, targetStatus, actorID)
	return err
}

func ensureCafeActive(ctx context.Context, tx pgx.Tx, cafeID string) error {
	var id string
	row := tx.QueryRow(ctx, `
		SELECT cafe_id FROM cafes WHERE cafe_id = $1 AND active = TRUE
	`, cafeID)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrCafeNotFound
		}
		return err
	}
	return nil
}

func lookupTableCapacity(ctx context.Context, tx pgx.Tx, tableID, cafeID string) (int, error) {
	var capacity int
	row := tx.QueryRow(ctx, `
		SELECT capacity
		FROM tables
		WHERE table_id = $1 AND cafe_id = $2 AND active = TRUE
	`, tableID, cafeID)
	if err := row.Scan(&capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrTableNotFound
		}
		return 0, err
	}
	return capacity, nil
}

func ensureSlotActive(ctx context.Context, tx pgx.Tx, slotID, cafeID string) error {
	var id string
	row := tx.QueryRow(ctx, `
		SELECT slot_id
		FROM slots
		WHERE slot_id = $1 AND cafe_id = $2 AND active = TRUE
	`, slotID, cafeID)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrSlotNotFound
		}
		return err
	}
	return nil
}

func isCafeManager(ctx context.Context, tx pgx.Tx, cafeID, userID string) (bool, error) {
	var manager bool
	row := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cafe_managers WHERE cafe_id = $1 AND user_id = $2
		)
	`, cafeID, userID)
	if err := row.Scan(&manager); err != nil {
		return false, err
	}
	return manager, nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, booking models.Booking) error {
	payload := map[string]interface{}{
		"booking_id":   booking.BookingID,
		"user_id":      booking.UserID,
		"cafe_id":      booking.CafeID,
		"table_id":     booking.TableID,
		"slot_id":      booking.SlotID,
		"booking_date": booking.BookingDate,
		"party_size":   booking.PartySize,
		"status":       booking.Status,
		"created_at":   booking.CreatedAt,
	}
	payloadJSON, err := jsonBytes(payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, cafe_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), booking.CafeID, eventType, payloadJSON, time.Now().UTC())
	if err != nil {
		return err
	}
	return insertBookingEvent(ctx, tx, booking.BookingID, eventType, payloadJSON)
}

func insertBookingEvent(ctx context.Context, tx pgx.Tx, bookingID, eventType string, payload []byte) error {
	var seq int
	var prevHash sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT booking_seq, hash
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY booking_seq DESC
		LIMIT 1
	`, bookingID)
	if err := row.Scan(&seq, &prevHash); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}
	createdAt := time.Now().UTC()
	hash := store.ComputeBookingEventHash(prevHash.String, bookingID, eventType, payload, createdAt, seq+1)
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_events (booking_id, booking_seq, type, payload, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, bookingID, seq+1, eventType, payload, createdAt, prevHash.String, hash)
	return err
}

func (s *Store) ListBookingEvents(ctx context.Context, bookingID string) ([]store.BookingEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT booking_id, booking_seq, type, payload, created_at, prev_hash, hash
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY booking_seq ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.BookingEvent
	for rows.Next() {
		var event store.BookingEvent
		if err := rows.Scan(&event.BookingID, &event.BookingSeq, &event.Type, &event.Payload, &event.CreatedAt, &event.PrevHash, &event.Hash); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBookingRow(row rowScanner) (models.Booking, error) {
	var booking models.Booking
	var bookingDate time.Time
	var confirmedAtNull sql.NullTime
	var completedAtNull sql.NullTime
	var cancelledAtNull sql.NullTime
	if err := row.Scan(
		&booking.BookingID, &booking.RequestID, &booking.UserID, &booking.CafeID,
		&booking.TableID, &booking.SlotID, &bookingDate, &booking.PartySize,
		&booking.Note, &booking.Status, &booking.CreatedAt, &booking.UpdatedAt,
		&confirmedAtNull, &completedAtNull, &cancelledAtNull,
	); err != nil {
		return models.Booking{}, err
	}
	booking.BookingDate = bookingDate.Format(models.DateLayout)
	booking.ConfirmedAt = nullTimePtr(confirmedAtNull)
	booking.CompletedAt = nullTimePtr(completedAtNull)
	booking.CancelledAt = nullTimePtr(cancelledAtNull)
	return booking, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func jsonBytes(payload map[string]interface{}) ([]byte, error) {
	return json.Marshal(payload)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
