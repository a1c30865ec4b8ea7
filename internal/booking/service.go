// Package booking orchestrates admission and lifecycle on top of the
// authoritative store and the availability index. Admission is decided by
// the store's unique index, never by the cache; this layer does the cheap
// input checks first and keeps the cache coherent after writes.
package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ohhaus/cafe-booking/internal/availability"
	"github.com/ohhaus/cafe-booking/internal/models"
	"github.com/ohhaus/cafe-booking/internal/store"

	"github.com/google/uuid"
)

type Service struct {
	store     store.BookingStore
	avail     *availability.Index
	timezone  string
	leadDays  int
	batchSize int
}

type Options struct {
	// DefaultTimezone is used for "date in the past" checks and reminder
	// target dates when a cafe has no timezone of its own.
	DefaultTimezone string
	// ReminderLeadDays is how many days before the booking date the
	// reminder fires. Defaults to 1 (remind about tomorrow).
	ReminderLeadDays int
	// CompletionBatchSize bounds each completion sweep batch.
	CompletionBatchSize int
}

func NewService(st store.BookingStore, avail *availability.Index, opts Options) *Service {
	if opts.ReminderLeadDays <= 0 {
		opts.ReminderLeadDays = 1
	}
	if opts.CompletionBatchSize <= 0 {
		opts.CompletionBatchSize = 100
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	return &Service{
		store:     st,
		avail:     avail,
		timezone:  opts.DefaultTimezone,
		leadDays:  opts.ReminderLeadDays,
		batchSize: opts.CompletionBatchSize,
	}
}

type CreateRequest struct {
	RequestID   string
	UserID      string
	CafeID      string
	TableID     string
	SlotID      string
	BookingDate string
	PartySize   int
	Note        string
}

// Create admits a booking. Validation order: cheap shape checks, then the
// catalog (cafe, table, slot must exist and be active), then the date
// against the cafe's local today, then the store insert where the unique
// index decides winners under concurrency. A duplicate request_id returns
// the previously stored booking.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Booking, error) {
	if err := validateCreate(req); err != nil {
		return models.Booking{}, err
	}

	cafe, err := s.checkCatalog(ctx, req.CafeID, req.TableID, req.SlotID)
	if err != nil {
		return models.Booking{}, err
	}
	now := time.Now().UTC()
	if err := checkDateNotPast(req.BookingDate, cafe.Timezone, s.timezone, now); err != nil {
		return models.Booking{}, err
	}

	booking, applied, err := s.store.CreateBooking(ctx, store.CreateBookingInput{
		RequestID:   req.RequestID,
		UserID:      req.UserID,
		CafeID:      req.CafeID,
		TableID:     req.TableID,
		SlotID:      req.SlotID,
		BookingDate: req.BookingDate,
		PartySize:   req.PartySize,
		Note:        req.Note,
		CreatedAt:   now,
	})
	if err != nil {
		return models.Booking{}, err
	}
	if applied {
		s.avail.Invalidate(ctx, booking.CafeID, booking.TableID, booking.SlotID, booking.BookingDate)
	}
	return booking, nil
}

type TransitionRequest struct {
	RequestID    string
	BookingID    string
	ActorID      string
	ActorRole    string
	TargetStatus string
}

// Transition moves a booking along its lifecycle. The store enforces the
// transition table and actor authorization; this layer invalidates the
// availability index when the booking stops occupying its triple.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (models.Booking, error) {
	if !isUUID(req.RequestID) {
		return models.Booking{}, fmt.Errorf("%w: request_id must be a uuid", store.ErrInvalidInput)
	}
	if !isUUID(req.BookingID) {
		return models.Booking{}, fmt.Errorf("%w: booking_id must be a uuid", store.ErrInvalidInput)
	}
	switch req.TargetStatus {
	case models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted, models.StatusNoShow:
	default:
		return models.Booking{}, fmt.Errorf("%w: unknown target status %q", store.ErrInvalidInput, req.TargetStatus)
	}

	booking, applied, err := s.store.TransitionBooking(ctx, store.TransitionInput{
		RequestID:    req.RequestID,
		BookingID:    req.BookingID,
		ActorID:      req.ActorID,
		ActorRole:    req.ActorRole,
		TargetStatus: req.TargetStatus,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		return models.Booking{}, err
	}
	if applied && !models.Occupies(booking.Status) {
		s.avail.Invalidate(ctx, booking.CafeID, booking.TableID, booking.SlotID, booking.BookingDate)
	}
	return booking, nil
}

// Get returns a booking if the actor may see it: owners see their own,
// staff and admin see everything.
func (s *Service) Get(ctx context.Context, actorID, actorRole, bookingID string) (models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if actorRole != "admin" && actorRole != "staff" && booking.UserID != actorID {
		return models.Booking{}, store.ErrAccessDenied
	}
	return booking, nil
}

// List returns bookings scoped to the actor: guests are pinned to their
// own user_id regardless of the requested filter.
func (s *Service) List(ctx context.Context, actorID, actorRole string, filter store.ListBookingsFilter) ([]models.Booking, error) {
	if actorRole != "admin" && actorRole != "staff" {
		filter.UserID = actorID
	}
	return s.store.ListBookings(ctx, filter)
}

// Events returns the booking's audit journal, same visibility as Get.
func (s *Service) Events(ctx context.Context, actorID, actorRole, bookingID string) ([]store.BookingEvent, error) {
	if _, err := s.Get(ctx, actorID, actorRole, bookingID); err != nil {
		return nil, err
	}
	return s.store.ListBookingEvents(ctx, bookingID)
}

// IsAvailable answers whether a (table, slot, date) triple is still
// bookable. The same catalog and date constraints as Create apply before
// the cached index is consulted, so a query against a retired table or a
// past date is rejected rather than answered from stale cache.
func (s *Service) IsAvailable(ctx context.Context, cafeID, tableID, slotID, date string) (bool, error) {
	if !isUUID(cafeID) || !isUUID(tableID) || !isUUID(slotID) {
		return false, fmt.Errorf("%w: cafe_id, table_id and slot_id must be uuids", store.ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return false, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	cafe, err := s.checkCatalog(ctx, cafeID, tableID, slotID)
	if err != nil {
		return false, err
	}
	if err := checkDateNotPast(date, cafe.Timezone, s.timezone, time.Now().UTC()); err != nil {
		return false, err
	}
	return s.avail.IsAvailable(ctx, tableID, slotID, date)
}

func (s *Service) ListFree(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error) {
	if !isUUID(cafeID) {
		return nil, fmt.Errorf("%w: cafe_id must be a uuid", store.ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	cafe, err := s.store.GetCafe(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	if !cafe.Active {
		return nil, store.ErrCafeNotFound
	}
	if err := checkDateNotPast(date, cafe.Timezone, s.timezone, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.avail.ListFree(ctx, cafeID, date)
}

// checkCatalog verifies the cafe is active and the table and slot exist,
// are active and belong to it. Returns the cafe for its timezone.
func (s *Service) checkCatalog(ctx context.Context, cafeID, tableID, slotID string) (models.Cafe, error) {
	cafe, err := s.store.GetCafe(ctx, cafeID)
	if err != nil {
		return models.Cafe{}, err
	}
	if !cafe.Active {
		return models.Cafe{}, store.ErrCafeNotFound
	}
	if err := s.store.EnsureTableSlotActive(ctx, cafeID, tableID, slotID); err != nil {
		return models.Cafe{}, err
	}
	return cafe, nil
}

// RunCompletionSweep moves confirmed bookings whose slot end has passed in
// their cafe's local time to completed. Batches repeat until a short batch;
// every completed booking's availability keys are dropped. Safe to run
// concurrently: the store skips rows another sweep holds.
func (s *Service) RunCompletionSweep(ctx context.Context, asOf time.Time) (int, error) {
	total := 0
	for {
		completed, err := s.store.CompleteElapsed(ctx, asOf, s.batchSize)
		if err != nil {
			return total, err
		}
		for _, b := range completed {
			s.avail.Invalidate(ctx, b.CafeID, b.TableID, b.SlotID, b.BookingDate)
		}
		total += len(completed)
		if len(completed) < s.batchSize {
			return total, nil
		}
	}
}

// RunReminderSweep enqueues reminder tasks for confirmed bookings
// ReminderLeadDays ahead of asOf, evaluated in the default timezone.
// Enqueueing is idempotent per (booking, event type); re-running the sweep
// never produces duplicates.
func (s *Service) RunReminderSweep(ctx context.Context, asOf time.Time) (int, error) {
	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		log.Printf("reminder sweep: bad timezone %q, falling back to UTC: %v", s.timezone, err)
		loc = time.UTC
	}
	target := asOf.In(loc).AddDate(0, 0, s.leadDays).Format(models.DateLayout)
	return s.store.EnqueueReminders(ctx, target)
}

func validateCreate(req CreateRequest) error {
	if !isUUID(req.RequestID) {
		return fmt.Errorf("%w: request_id must be a uuid", store.ErrInvalidInput)
	}
	for name, id := range map[string]string{
		"user_id":  req.UserID,
		"cafe_id":  req.CafeID,
		"table_id": req.TableID,
		"slot_id":  req.SlotID,
	} {
		if !isUUID(id) {
			return fmt.Errorf("%w: %s must be a uuid", store.ErrInvalidInput, name)
		}
	}
	if _, err := time.Parse(models.DateLayout, req.BookingDate); err != nil {
		return fmt.Errorf("%w: booking_date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	if req.PartySize < 1 {
		return fmt.Errorf("%w: party_size must be >= 1", store.ErrInvalidInput)
	}
	if len(req.Note) > 255 {
		return fmt.Errorf("%w: note exceeds 255 characters", store.ErrInvalidInput)
	}
	return nil
}

// checkDateNotPast compares the booking date against "today" in the cafe's
// timezone (falling back to the service default). Booking for today is
// allowed; slot-level elapse is not re-checked here.
func checkDateNotPast(date, cafeTZ, defaultTZ string, now time.Time) error {
	tz := cafeTZ
	if tz == "" {
		tz = defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	today := now.In(loc).Format(models.DateLayout)
	if date < today {
		return store.ErrDateInPast
	}
	return nil
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
