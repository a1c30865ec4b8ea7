package models

// Cafe carries the catalog fields the booking engine consumes: the active
// flag gates admission and the timezone anchors date arithmetic. Tables and
// slots are read straight from the catalog tables where needed.
type Cafe struct {
	CafeID   string `json:"cafe_id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
	Active   bool   `json:"active"`
}
