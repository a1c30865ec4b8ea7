// Package availability answers whether a (table, slot, date) triple is
// currently free. Reads go through a short-TTL cache; the authoritative
// store is only consulted on a miss. The booking write path does not use
// this package to decide admission.
package availability

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ohhaus/cafe-booking/internal/cache"
	"github.com/ohhaus/cafe-booking/internal/store"
)

// Store is the authoritative read surface the index falls back to.
type Store interface {
	HasActiveBooking(ctx context.Context, tableID, slotID, date string) (bool, error)
	ListFreeTableSlots(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error)
}

type Index struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
}

func NewIndex(st Store, c cache.Cache, ttl time.Duration) *Index {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Index{store: st, cache: c, ttl: ttl}
}

// IsAvailable reports whether the triple is free of pending/confirmed
// bookings. Staleness is bounded by the cache TTL; write paths invalidate
// the key eagerly so a fresh booking is visible immediately.
func (ix *Index) IsAvailable(ctx context.Context, tableID, slotID, date string) (bool, error) {
	key := cache.AvailabilityKey(tableID, slotID, date)
	if value, found, err := ix.cache.Get(ctx, key); err != nil {
		log.Printf("availability cache get error: %v", err)
	} else if found {
		return value == "1", nil
	}

	taken, err := ix.store.HasActiveBooking(ctx, tableID, slotID, date)
	if err != nil {
		return false, err
	}
	value := "1"
	if taken {
		value = "0"
	}
	if err := ix.cache.Set(ctx, key, value, ix.ttl); err != nil {
		log.Printf("availability cache set error: %v", err)
	}
	return !taken, nil
}

// ListFree lists still-bookable (table, slot) pairs for a cafe+date.
func (ix *Index) ListFree(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error) {
	key := cache.CafeFreeKey(cafeID, date)
	if value, found, err := ix.cache.Get(ctx, key); err != nil {
		log.Printf("availability cache get error: %v", err)
	} else if found {
		var free []store.FreeTableSlot
		if err := json.Unmarshal([]byte(value), &free); err == nil {
			return free, nil
		}
	}

	free, err := ix.store.ListFreeTableSlots(ctx, cafeID, date)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(free); err == nil {
		if err := ix.cache.Set(ctx, key, string(encoded), ix.ttl); err != nil {
			log.Printf("availability cache set error: %v", err)
		}
	}
	return free, nil
}

// Invalidate drops the triple's key and the cafe's aggregate free list.
// Failures are logged, not returned; the TTL bounds any divergence.
func (ix *Index) Invalidate(ctx context.Context, cafeID, tableID, slotID, date string) {
	keys := []string{
		cache.AvailabilityKey(tableID, slotID, date),
		cache.CafeFreeKey(cafeID, date),
	}
	if err := ix.cache.Delete(ctx, keys...); err != nil {
		log.Printf("availability cache invalidate error: %v", err)
	}
}
