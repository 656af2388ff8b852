package booking

import (
	"errors"
	"testing"
	"time"
)

func TestResolve_BookedAndPastUnavailable(t *testing.T) {
	loc := time.UTC
	court := testCourt()
	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	booked := map[string]struct{}{
		SlotID(court.ID, testDate, "09:00"): {},
	}
	// Mid-morning on the same day: 06:00 through 09:00 have started.
	now := time.Date(2026, 9, 2, 9, 30, 0, 0, loc)

	resolved := Resolve(slots, booked, now, loc, nil)
	if len(resolved) != len(slots) {
		t.Fatalf("resolve changed slot count: %d != %d", len(resolved), len(slots))
	}

	byStart := map[string]TimeSlot{}
	for _, slot := range resolved {
		byStart[slot.StartsAt] = slot
	}

	for _, startsAt := range []string{"06:00", "07:00", "08:00", "09:00"} {
		if byStart[startsAt].IsAvailable {
			t.Errorf("slot %s in the past (or booked) but available", startsAt)
		}
	}
	for _, startsAt := range []string{"10:00", "21:00"} {
		if !byStart[startsAt].IsAvailable {
			t.Errorf("slot %s should be available", startsAt)
		}
	}
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	court := testCourt()
	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	popular := func(int64, time.Weekday, string) (bool, error) { return true, nil }
	resolved := Resolve(slots, nil, now, time.UTC, popular)

	for i, slot := range slots {
		if slot.IsAvailable || slot.IsPopular {
			t.Fatal("input slice was mutated")
		}
		if !resolved[i].IsAvailable || !resolved[i].IsPopular {
			t.Fatal("resolved copy missing flags")
		}
	}
}

func TestResolve_PopularityFlag(t *testing.T) {
	court := testCourt()
	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// testDate is a Wednesday; flag the 18:00 evening slot.
	popular := func(courtID int64, weekday time.Weekday, startsAt string) (bool, error) {
		if weekday != time.Wednesday {
			t.Errorf("weekday = %v, want Wednesday", weekday)
		}
		return courtID == court.ID && startsAt == "18:00", nil
	}

	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	resolved := Resolve(slots, nil, now, time.UTC, popular)

	for _, slot := range resolved {
		want := slot.StartsAt == "18:00"
		if slot.IsPopular != want {
			t.Errorf("slot %s popular = %v, want %v", slot.StartsAt, slot.IsPopular, want)
		}
		if want && !slot.IsAvailable {
			t.Error("popular slot must stay independently bookable")
		}
	}
}

func TestResolve_PopularityErrorDefaultsFalse(t *testing.T) {
	court := testCourt()
	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	popular := func(int64, time.Weekday, string) (bool, error) {
		return true, errors.New("history store down")
	}

	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for _, slot := range Resolve(slots, nil, now, time.UTC, popular) {
		if slot.IsPopular {
			t.Fatalf("slot %s flagged popular despite lookup error", slot.StartsAt)
		}
		if !slot.IsAvailable {
			t.Fatalf("slot %s availability affected by popularity error", slot.StartsAt)
		}
	}
}
