// internal/booking/availability.go
package booking

import (
	"time"

	"github.com/rs/zerolog/log"
)

// PopularityFunc reports whether a recurring (weekday, start time) slot is
// historically in demand. Implementations must not fail the resolve: errors
// default the flag to false.
type PopularityFunc func(courtID int64, weekday time.Weekday, startsAt string) (bool, error)

// Resolve marks each generated slot available or not against the set of
// already-booked slot ids and the current time. A slot whose start is
// strictly before now is never bookable. The input slice is not mutated.
func Resolve(slots []TimeSlot, bookedSlotIDs map[string]struct{}, now time.Time, loc *time.Location, popular PopularityFunc) []TimeSlot {
	if loc == nil {
		loc = time.UTC
	}

	resolved := make([]TimeSlot, len(slots))
	for i, slot := range slots {
		slot.IsAvailable = true

		if _, taken := bookedSlotIDs[slot.ID]; taken {
			slot.IsAvailable = false
		} else if start, err := SlotStart(slot.Date, slot.StartsAt, loc); err != nil || start.Before(now) {
			slot.IsAvailable = false
		}

		slot.IsPopular = resolvePopularity(slot, loc, popular)
		resolved[i] = slot
	}
	return resolved
}

func resolvePopularity(slot TimeSlot, loc *time.Location, popular PopularityFunc) bool {
	if popular == nil {
		return false
	}
	day, err := ParseDate(slot.Date)
	if err != nil {
		return false
	}
	isPopular, err := popular(slot.CourtID, day.Weekday(), slot.StartsAt)
	if err != nil {
		// Heuristic only; missing history never blocks a slot.
		log.Debug().Err(err).Str("slot_id", slot.ID).Msg("Popularity lookup failed")
		return false
	}
	return isPopular
}
