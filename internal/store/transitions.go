package store

import "github.com/ohhaus/cafe-booking/internal/models"

var transitionMap = map[string][]string{
	models.StatusConfirmed: {models.StatusPending},
	models.StatusCancelled: {models.StatusPending, models.StatusConfirmed},
	models.StatusCompleted: {models.StatusConfirmed},
	models.StatusNoShow:    {models.StatusConfirmed},
}

func ValidTransition(fromStatus, toStatus string) bool {
	allowed, ok := transitionMap[toStatus]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// OwnerMayRequest reports whether the booking's owning user may ask for
// the target status. Owners can only cancel; everything else is staff-only.
func OwnerMayRequest(toStatus string) bool {
	return toStatus == models.StatusCancelled
}
