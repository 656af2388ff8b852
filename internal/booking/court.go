// internal/booking/court.go

// Package booking implements the slot engine: deterministic time-slot
// generation from a court's operating hours, availability resolution
// against confirmed bookings, the user's selection state, and the
// sequential confirm orchestration.
package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// DayHours is one weekday's open/close window. Times are venue-local
// wall-clock strings ("06:00").
type DayHours struct {
	IsOpen   bool
	OpensAt  string
	ClosesAt string
}

// BreakWindow is a recurring excluded range; no slot may overlap it.
type BreakWindow struct {
	Name      string
	DayOfWeek time.Weekday
	StartsAt  string
	EndsAt    string
}

type Court struct {
	ID        int64
	Name      string
	CourtType string
	// PricePerHour is in currency minor units.
	PricePerHour int64
	// Capacity is the maximum simultaneous players.
	Capacity    int
	SlotMinutes int
	// Hours is indexed by time.Weekday (Sunday = 0).
	Hours    [7]DayHours
	Breaks   []BreakWindow
	IsActive bool
}

// TimeSlot is a derived bookable window. ID is a deterministic composite
// of court, date, and start time, so regenerating for the same inputs
// always matches stored booking records.
type TimeSlot struct {
	ID       string `json:"id"`
	CourtID  int64  `json:"court_id"`
	Date     string `json:"date"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	// Price is in currency minor units.
	Price       int64 `json:"price"`
	IsAvailable bool  `json:"is_available"`
	IsPopular   bool  `json:"is_popular"`
}

// SlotID builds the canonical slot identifier: "<courtID>:<date>:<HHMM>".
func SlotID(courtID int64, date, startsAt string) string {
	return fmt.Sprintf("%d:%s:%s", courtID, date, strings.Replace(startsAt, ":", "", 1))
}

// ParseSlotID splits a canonical slot id back into its components.
func ParseSlotID(id string) (courtID int64, date, startsAt string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return 0, "", "", fmt.Errorf("invalid slot id %q", id)
	}
	courtID, convErr := strconv.ParseInt(parts[0], 10, 64)
	if convErr != nil || courtID <= 0 {
		return 0, "", "", fmt.Errorf("invalid slot id %q", id)
	}
	date = parts[1]
	if _, err := ParseDate(date); err != nil {
		return 0, "", "", fmt.Errorf("invalid slot id %q", id)
	}
	startsAt = parts[2][:2] + ":" + parts[2][2:]
	if _, err := parseMinutes(startsAt); err != nil {
		return 0, "", "", fmt.Errorf("invalid slot id %q", id)
	}
	return courtID, date, startsAt, nil
}

// SlotPrice computes a slot's price from the hourly rate, rounding half up
// to the nearest minor unit. Totals are always summed from per-slot prices,
// never recomputed from aggregate minutes.
func SlotPrice(pricePerHour int64, slotMinutes int) int64 {
	return (pricePerHour*int64(slotMinutes) + 30) / 60
}

// parseMinutes converts "HH:MM" to minutes since midnight.
func parseMinutes(value string) (int, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid wall-clock time %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a "YYYY-MM-DD" calendar day.
func ParseDate(date string) (time.Time, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day, nil
}

// SlotStart resolves a slot's start instant in the venue timezone.
func SlotStart(date, startsAt string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	minutes, err := parseMinutes(startsAt)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}
