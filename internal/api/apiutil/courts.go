package apiutil

import (
	"context"
	"time"

	"github.com/quickcourt/quickcourt/internal/booking"
	"github.com/quickcourt/quickcourt/internal/db"
)

// LoadCourt assembles the domain Court from its row plus its per-weekday
// hours and excluded breaks.
func LoadCourt(ctx context.Context, q *db.Queries, courtID int64) (booking.Court, error) {
	row, err := q.GetCourt(ctx, courtID)
	if err != nil {
		return booking.Court{}, err
	}

	hours, err := q.ListOperatingHours(ctx, courtID)
	if err != nil {
		return booking.Court{}, err
	}
	breaks, err := q.ListExcludedTimes(ctx, courtID)
	if err != nil {
		return booking.Court{}, err
	}

	return BuildCourt(row, hours, breaks), nil
}

// BuildCourt maps storage rows to the slot engine's Court value.
func BuildCourt(row db.Court, hours []db.OperatingHours, breaks []db.ExcludedTime) booking.Court {
	court := booking.Court{
		ID:           row.ID,
		Name:         row.Name,
		CourtType:    row.CourtType,
		PricePerHour: row.PricePerHour,
		Capacity:     int(row.Capacity),
		SlotMinutes:  int(row.SlotMinutes),
		IsActive:     row.IsActive,
	}
	for _, h := range hours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			continue
		}
		court.Hours[h.DayOfWeek] = booking.DayHours{
			IsOpen:   h.IsOpen,
			OpensAt:  h.OpensAt,
			ClosesAt: h.ClosesAt,
		}
	}
	for _, b := range breaks {
		court.Breaks = append(court.Breaks, booking.BreakWindow{
			Name:      b.Name,
			DayOfWeek: time.Weekday(b.DayOfWeek),
			StartsAt:  b.StartsAt,
			EndsAt:    b.EndsAt,
		})
	}
	return court
}
