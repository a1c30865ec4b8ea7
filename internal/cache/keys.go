package cache

import "strings"

// Key formats follow an entity-style scheme:
//
//	availability:<table_id>:<slot_id>:<date>
//	cafe:<cafe_id>:free:<date>

func AvailabilityKey(tableID, slotID, date string) string {
	return buildKey("availability", tableID, slotID, date)
}

// CafeFreeKey is the aggregate free-list key for a cafe+date. It is
// invalidated on writes for that cafe+date; TTL expiry is the fallback.
func CafeFreeKey(cafeID, date string) string {
	return buildKey("cafe", cafeID, "free", date)
}

func buildKey(parts ...string) string {
	return strings.Join(parts, ":")
}
