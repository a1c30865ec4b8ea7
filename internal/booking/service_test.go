package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ohhaus/cafe-booking/internal/availability"
	"github.com/ohhaus/cafe-booking/internal/cache"
	"github.com/ohhaus/cafe-booking/internal/models"
	"github.com/ohhaus/cafe-booking/internal/store"
)

const (
	reqID     = "11111111-1111-1111-1111-111111111111"
	userID    = "22222222-2222-2222-2222-222222222222"
	cafeID    = "33333333-3333-3333-3333-333333333333"
	tableID   = "44444444-4444-4444-4444-444444444444"
	slotID    = "55555555-5555-5555-5555-555555555555"
	bookingID = "66666666-6666-6666-6666-666666666666"
)

type fakeStore struct {
	createFn     func(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error)
	transitionFn func(ctx context.Context, input store.TransitionInput) (models.Booking, bool, error)
	getFn        func(ctx context.Context, bookingID string) (models.Booking, error)
	completeFn   func(ctx context.Context, asOf time.Time, batchSize int) ([]models.Booking, error)
	enqueueFn    func(ctx context.Context, targetDate string) (int, error)
	catalogErr   error

	hasActiveCalls int
	taken          bool
}

func (f *fakeStore) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
	return f.createFn(ctx, input)
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return models.Booking{}, store.ErrBookingNotFound
}

func (f *fakeStore) ListBookings(ctx context.Context, filter store.ListBookingsFilter) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeStore) TransitionBooking(ctx context.Context, input store.TransitionInput) (models.Booking, bool, error) {
	return f.transitionFn(ctx, input)
}

func (f *fakeStore) HasActiveBooking(ctx context.Context, tableID, slotID, date string) (bool, error) {
	f.hasActiveCalls++
	return f.taken, nil
}

func (f *fakeStore) ListFreeTableSlots(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error) {
	return nil, nil
}

func (f *fakeStore) GetCafe(ctx context.Context, id string) (models.Cafe, error) {
	return models.Cafe{CafeID: id, Name: "Test Cafe", Timezone: "UTC", Active: true}, nil
}

func (f *fakeStore) EnsureTableSlotActive(ctx context.Context, cafeID, tableID, slotID string) error {
	return f.catalogErr
}

func (f *fakeStore) CompleteElapsed(ctx context.Context, asOf time.Time, batchSize int) ([]models.Booking, error) {
	return f.completeFn(ctx, asOf, batchSize)
}

func (f *fakeStore) EnqueueReminders(ctx context.Context, targetDate string) (int, error) {
	return f.enqueueFn(ctx, targetDate)
}

func (f *fakeStore) ListBookingEvents(ctx context.Context, bookingID string) ([]store.BookingEvent, error) {
	return nil, nil
}

func (f *fakeStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	return store.Session{}, store.ErrSessionNotFound
}

func futureDate() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format(models.DateLayout)
}

func newService(st *fakeStore) (*Service, *availability.Index) {
	ix := availability.NewIndex(st, cache.NewMemory(), time.Minute)
	svc := NewService(st, ix, Options{DefaultTimezone: "UTC"})
	return svc, ix
}

func createReq() CreateRequest {
	return CreateRequest{
		RequestID:   reqID,
		UserID:      userID,
		CafeID:      cafeID,
		TableID:     tableID,
		SlotID:      slotID,
		BookingDate: futureDate(),
		PartySize:   2,
	}
}

func TestCreateValidation(t *testing.T) {
	st := &fakeStore{}
	svc, _ := newService(st)

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"bad request id", func(r *CreateRequest) { r.RequestID = "nope" }, store.ErrInvalidInput},
		{"bad table id", func(r *CreateRequest) { r.TableID = "nope" }, store.ErrInvalidInput},
		{"bad date", func(r *CreateRequest) { r.BookingDate = "01-06-2025" }, store.ErrInvalidInput},
		{"zero party", func(r *CreateRequest) { r.PartySize = 0 }, store.ErrInvalidInput},
		{"past date", func(r *CreateRequest) { r.BookingDate = "2020-01-01" }, store.ErrDateInPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createReq()
			tc.mutate(&req)
			if _, err := svc.Create(context.Background(), req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateInvalidatesAvailability(t *testing.T) {
	ctx := context.Background()
	date := futureDate()
	st := &fakeStore{
		createFn: func(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
			return models.Booking{
				BookingID:   bookingID,
				CafeID:      input.CafeID,
				TableID:     input.TableID,
				SlotID:      input.SlotID,
				BookingDate: input.BookingDate,
				Status:      models.StatusPending,
			}, true, nil
		},
	}
	svc, ix := newService(st)

	// Warm the cache: the triple looks free.
	if free, err := ix.IsAvailable(ctx, tableID, slotID, date); err != nil || !free {
		t.Fatalf("expected free, got free=%v err=%v", free, err)
	}
	if st.hasActiveCalls != 1 {
		t.Fatalf("expected 1 store read, got %d", st.hasActiveCalls)
	}

	if _, err := svc.Create(ctx, createReq()); err != nil {
		t.Fatalf("create: %v", err)
	}
	st.taken = true

	// The admission must have dropped the cached key.
	if free, err := ix.IsAvailable(ctx, tableID, slotID, date); err != nil || free {
		t.Fatalf("expected taken after create, got free=%v err=%v", free, err)
	}
	if st.hasActiveCalls != 2 {
		t.Fatalf("expected re-read after invalidation, got %d reads", st.hasActiveCalls)
	}
}

func TestCreateReplayDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	date := futureDate()
	st := &fakeStore{
		createFn: func(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
			return models.Booking{BookingID: bookingID, CafeID: cafeID, TableID: tableID, SlotID: slotID, BookingDate: date, Status: models.StatusPending}, false, nil
		},
	}
	svc, ix := newService(st)

	st.taken = true
	if _, err := ix.IsAvailable(ctx, tableID, slotID, date); err != nil {
		t.Fatalf("is available: %v", err)
	}

	if _, err := svc.Create(ctx, createReq()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ix.IsAvailable(ctx, tableID, slotID, date); err != nil {
		t.Fatalf("is available: %v", err)
	}
	if st.hasActiveCalls != 1 {
		t.Fatalf("replay must not drop the cache, got %d reads", st.hasActiveCalls)
	}
}

func TestCreateLoserGetsSlotUnavailable(t *testing.T) {
	st := &fakeStore{
		createFn: func(ctx context.Context, input store.CreateBookingInput) (models.Booking, bool, error) {
			return models.Booking{}, false, store.ErrSlotUnavailable
		},
	}
	svc, _ := newService(st)

	if _, err := svc.Create(context.Background(), createReq()); !errors.Is(err, store.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateCatalogCheckedBeforeDate(t *testing.T) {
	// A retired table with a past date must surface the catalog error,
	// not the date error.
	st := &fakeStore{catalogErr: store.ErrTableNotFound}
	svc, _ := newService(st)

	req := createReq()
	req.BookingDate = "2020-01-01"
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, store.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestAvailabilityReadRejectsBadInput(t *testing.T) {
	cases := []struct {
		name       string
		catalogErr error
		date       string
		want       error
	}{
		{"past date", nil, "2020-01-01", store.ErrDateInPast},
		{"unknown table", store.ErrTableNotFound, futureDate(), store.ErrTableNotFound},
		{"unknown slot", store.ErrSlotNotFound, futureDate(), store.ErrSlotNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeStore{catalogErr: tc.catalogErr}
			svc, _ := newService(st)

			_, err := svc.IsAvailable(context.Background(), cafeID, tableID, slotID, tc.date)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if st.hasActiveCalls != 0 {
				t.Fatalf("rejected query must not reach the index, got %d reads", st.hasActiveCalls)
			}
		})
	}
}

func TestAvailabilityReadConsultsIndex(t *testing.T) {
	st := &fakeStore{}
	svc, _ := newService(st)

	free, err := svc.IsAvailable(context.Background(), cafeID, tableID, slotID, futureDate())
	if err != nil {
		t.Fatalf("is available: %v", err)
	}
	if !free {
		t.Fatal("expected free triple")
	}
	if st.hasActiveCalls != 1 {
		t.Fatalf("expected 1 store read, got %d", st.hasActiveCalls)
	}
}

func TestListFreeRejectsPastDate(t *testing.T) {
	st := &fakeStore{}
	svc, _ := newService(st)

	if _, err := svc.ListFree(context.Background(), cafeID, "2020-01-01"); !errors.Is(err, store.ErrDateInPast) {
		t.Fatalf("expected ErrDateInPast, got %v", err)
	}
}

func TestTransitionInvalidation(t *testing.T) {
	ctx := context.Background()
	date := futureDate()

	cases := []struct {
		target     string
		wantsReads int
	}{
		{models.StatusConfirmed, 1},
		{models.StatusCancelled, 2},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			st := &fakeStore{
				transitionFn: func(ctx context.Context, input store.TransitionInput) (models.Booking, bool, error) {
					return models.Booking{
						BookingID: input.BookingID, CafeID: cafeID, TableID: tableID,
						SlotID: slotID, BookingDate: date, Status: input.TargetStatus,
					}, true, nil
				},
			}
			svc, ix := newService(st)
			if _, err := ix.IsAvailable(ctx, tableID, slotID, date); err != nil {
				t.Fatalf("is available: %v", err)
			}

			if _, err := svc.Transition(ctx, TransitionRequest{
				RequestID: reqID, BookingID: bookingID, ActorID: userID,
				ActorRole: "admin", TargetStatus: tc.target,
			}); err != nil {
				t.Fatalf("transition: %v", err)
			}

			if _, err := ix.IsAvailable(ctx, tableID, slotID, date); err != nil {
				t.Fatalf("is available: %v", err)
			}
			if st.hasActiveCalls != tc.wantsReads {
				t.Fatalf("target %s: expected %d store reads, got %d", tc.target, tc.wantsReads, st.hasActiveCalls)
			}
		})
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	st := &fakeStore{}
	svc, _ := newService(st)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		RequestID: reqID, BookingID: bookingID, ActorID: userID,
		ActorRole: "admin", TargetStatus: "archived",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetScopesToOwner(t *testing.T) {
	st := &fakeStore{
		getFn: func(ctx context.Context, id string) (models.Booking, error) {
			return models.Booking{BookingID: id, UserID: userID}, nil
		},
	}
	svc, _ := newService(st)

	if _, err := svc.Get(context.Background(), userID, "guest", bookingID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	other := "77777777-7777-7777-7777-777777777777"
	if _, err := svc.Get(context.Background(), other, "guest", bookingID); !errors.Is(err, store.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.Get(context.Background(), other, "staff", bookingID); err != nil {
		t.Fatalf("staff read: %v", err)
	}
}

func TestCompletionSweepDrainsBatches(t *testing.T) {
	ctx := context.Background()
	date := futureDate()
	calls := 0
	st := &fakeStore{
		completeFn: func(ctx context.Context, asOf time.Time, batchSize int) ([]models.Booking, error) {
			calls++
			if calls == 1 {
				out := make([]models.Booking, batchSize)
				for i := range out {
					out[i] = models.Booking{BookingID: bookingID, CafeID: cafeID, TableID: tableID, SlotID: slotID, BookingDate: date, Status: models.StatusCompleted}
				}
				return out, nil
			}
			return nil, nil
		},
	}
	ix := availability.NewIndex(st, cache.NewMemory(), time.Minute)
	svc := NewService(st, ix, Options{DefaultTimezone: "UTC", CompletionBatchSize: 3})

	total, err := svc.RunCompletionSweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 completed, got %d", total)
	}
	if calls != 2 {
		t.Fatalf("expected full batch to trigger a second pass, got %d calls", calls)
	}
}

func TestReminderSweepTargetsLeadDay(t *testing.T) {
	var got string
	st := &fakeStore{
		enqueueFn: func(ctx context.Context, targetDate string) (int, error) {
			got = targetDate
			return 4, nil
		},
	}
	ix := availability.NewIndex(st, cache.NewMemory(), time.Minute)
	svc := NewService(st, ix, Options{DefaultTimezone: "UTC", ReminderLeadDays: 1})

	asOf := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	n, err := svc.RunReminderSweep(context.Background(), asOf)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 enqueued, got %d", n)
	}
	if got != "2025-06-02" {
		t.Fatalf("expected target 2025-06-02, got %s", got)
	}
}
