// internal/booking/slots.go
package booking

import "time"

// GenerateSlots produces the canonical ordered slot set for a court on one
// calendar day, before availability is resolved. The sequence is fully
// determined by (court, date): starting at the weekday's open time, step by
// SlotMinutes while the slot still fits before close, skipping any slot
// that overlaps an excluded break on that weekday.
//
// A closed weekday or an inactive court yields an empty sequence, not an
// error.
func GenerateSlots(court Court, date string) ([]TimeSlot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	if !court.IsActive {
		return nil, nil
	}

	weekday := day.Weekday()
	hours := court.Hours[weekday]
	if !hours.IsOpen {
		return nil, nil
	}

	open, err := parseMinutes(hours.OpensAt)
	if err != nil {
		return nil, err
	}
	close, err := parseMinutes(hours.ClosesAt)
	if err != nil {
		return nil, err
	}
	if court.SlotMinutes <= 0 || close <= open {
		return nil, nil
	}

	breaks, err := breaksForWeekday(court.Breaks, weekday)
	if err != nil {
		return nil, err
	}

	price := SlotPrice(court.PricePerHour, court.SlotMinutes)

	var slots []TimeSlot
	for start := open; start+court.SlotMinutes <= close; start += court.SlotMinutes {
		end := start + court.SlotMinutes
		if overlapsAny(start, end, breaks) {
			continue
		}
		startsAt := formatMinutes(start)
		slots = append(slots, TimeSlot{
			ID:       SlotID(court.ID, date, startsAt),
			CourtID:  court.ID,
			Date:     date,
			StartsAt: startsAt,
			EndsAt:   formatMinutes(end),
			Price:    price,
		})
	}
	return slots, nil
}

type breakRange struct {
	start int
	end   int
}

func breaksForWeekday(breaks []BreakWindow, weekday time.Weekday) ([]breakRange, error) {
	var ranges []breakRange
	for _, b := range breaks {
		if b.DayOfWeek != weekday {
			continue
		}
		start, err := parseMinutes(b.StartsAt)
		if err != nil {
			return nil, err
		}
		end, err := parseMinutes(b.EndsAt)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, breakRange{start: start, end: end})
	}
	return ranges, nil
}

func overlapsAny(start, end int, breaks []breakRange) bool {
	for _, b := range breaks {
		if start < b.end && b.start < end {
			return true
		}
	}
	return false
}
