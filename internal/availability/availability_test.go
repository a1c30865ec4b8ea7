package availability

import (
	"context"
	"testing"
	"time"

	"github.com/ohhaus/cafe-booking/internal/cache"
	"github.com/ohhaus/cafe-booking/internal/store"
)

type fakeStore struct {
	taken   bool
	queries int
	free    []store.FreeTableSlot
}

func (f *fakeStore) HasActiveBooking(ctx context.Context, tableID, slotID, date string) (bool, error) {
	f.queries++
	return f.taken, nil
}

func (f *fakeStore) ListFreeTableSlots(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error) {
	f.queries++
	return f.free, nil
}

func TestIsAvailablePopulatesCache(t *testing.T) {
	ctx := context.Background()
	st := &fakeStore{taken: false}
	ix := NewIndex(st, cache.NewMemory(), time.Minute)

	free, err := ix.IsAvailable(ctx, "t1", "s1", "2025-06-01")
	if err != nil || !free {
		t.Fatalf("expected free, got free=%v err=%v", free, err)
	}
	if st.queries != 1 {
		t.Fatalf("expected 1 store query, got %d", st.queries)
	}

	// Second read must be served from cache even if the store flips.
	st.taken = true
	free, err = ix.IsAvailable(ctx, "t1", "s1", "2025-06-01")
	if err != nil || !free {
		t.Fatalf("expected cached free, got free=%v err=%v", free, err)
	}
	if st.queries != 1 {
		t.Fatalf("expected cached read, store queried %d times", st.queries)
	}
}

func TestInvalidateForcesStoreRead(t *testing.T) {
	ctx := context.Background()
	st := &fakeStore{taken: false}
	ix := NewIndex(st, cache.NewMemory(), time.Minute)

	if _, err := ix.IsAvailable(ctx, "t1", "s1", "2025-06-01"); err != nil {
		t.Fatalf("is available: %v", err)
	}

	st.taken = true
	ix.Invalidate(ctx, "c1", "t1", "s1", "2025-06-01")

	free, err := ix.IsAvailable(ctx, "t1", "s1", "2025-06-01")
	if err != nil {
		t.Fatalf("is available: %v", err)
	}
	if free {
		t.Fatalf("expected taken after invalidation")
	}
	if st.queries != 2 {
		t.Fatalf("expected 2 store queries, got %d", st.queries)
	}
}

func TestListFreeCachesAggregate(t *testing.T) {
	ctx := context.Background()
	st := &fakeStore{free: []store.FreeTableSlot{{TableID: "t1", SlotID: "s1", Capacity: 4, Start: "18:00", End: "19:00"}}}
	ix := NewIndex(st, cache.NewMemory(), time.Minute)

	first, err := ix.ListFree(ctx, "c1", "2025-06-01")
	if err != nil || len(first) != 1 {
		t.Fatalf("expected 1 free pair, got %v err=%v", first, err)
	}

	st.free = nil
	second, err := ix.ListFree(ctx, "c1", "2025-06-01")
	if err != nil || len(second) != 1 {
		t.Fatalf("expected cached aggregate, got %v err=%v", second, err)
	}
	if st.queries != 1 {
		t.Fatalf("expected 1 store query, got %d", st.queries)
	}
}
