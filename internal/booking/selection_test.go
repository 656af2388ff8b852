package booking

import (
	"errors"
	"testing"
)

func availableSlot(court Court, startsAt string) TimeSlot {
	return TimeSlot{
		ID:          SlotID(court.ID, testDate, startsAt),
		CourtID:     court.ID,
		Date:        testDate,
		StartsAt:    startsAt,
		EndsAt:      "23:59",
		Price:       SlotPrice(court.PricePerHour, court.SlotMinutes),
		IsAvailable: true,
	}
}

func TestToggle_AddAndRemove(t *testing.T) {
	court := testCourt()
	slot := availableSlot(court, "07:00")

	sel, err := NewSelection().Toggle(slot, court)
	if err != nil {
		t.Fatalf("toggle add: %v", err)
	}
	if sel.Len() != 1 || !sel.Contains(slot.ID) {
		t.Fatalf("slot not selected")
	}

	sel2, err := sel.Toggle(slot, court)
	if err != nil {
		t.Fatalf("toggle remove: %v", err)
	}
	if sel2.Len() != 0 {
		t.Fatalf("toggle twice should return to empty, got %d slots", sel2.Len())
	}

	// The intermediate value is untouched.
	if sel.Len() != 1 {
		t.Error("original selection mutated by toggle")
	}
}

func TestToggle_UnavailableRejected(t *testing.T) {
	court := testCourt()
	slot := availableSlot(court, "07:00")
	slot.IsAvailable = false

	sel := NewSelection()
	next, err := sel.Toggle(slot, court)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if next.Len() != 0 {
		t.Error("rejected toggle changed the selection")
	}
}

func TestToggle_CourtBelowPlayerCountRejected(t *testing.T) {
	small := testCourt()
	small.ID = 7
	small.Capacity = 2

	sel, err := NewSelection().SetPlayerCount(4)
	if err != nil {
		t.Fatalf("set player count: %v", err)
	}

	_, err = sel.Toggle(availableSlot(small, "08:00"), small)
	var capErr CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	if capErr.Capacity != 2 || capErr.Requested != 4 {
		t.Errorf("unexpected error detail: %+v", capErr)
	}
}

func TestTotalPrice_SumsPerSlot(t *testing.T) {
	court := testCourt() // 600/hour, 60-minute slots

	sel := NewSelection()
	for _, startsAt := range []string{"07:00", "08:00", "09:00"} {
		var err error
		sel, err = sel.Toggle(availableSlot(court, startsAt), court)
		if err != nil {
			t.Fatalf("toggle %s: %v", startsAt, err)
		}
	}

	if got := sel.TotalPrice(); got != 1800 {
		t.Fatalf("total price = %d, want 1800", got)
	}
}

func TestSetPlayerCount_CapacityEnforced(t *testing.T) {
	court := testCourt() // capacity 10
	sel, err := NewSelection().Toggle(availableSlot(court, "07:00"), court)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}

	sel, err = sel.SetPlayerCount(8)
	if err != nil {
		t.Fatalf("set player count 8: %v", err)
	}

	next, err := sel.SetPlayerCount(12)
	var capErr CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	// Prior valid value is kept.
	if next.PlayerCount() != 8 {
		t.Errorf("player count = %d, want 8", next.PlayerCount())
	}
}

func TestSetPlayerCount_MinimumAcrossCourts(t *testing.T) {
	big := testCourt()
	small := testCourt()
	small.ID = 7
	small.Capacity = 4

	sel, err := NewSelection().Toggle(availableSlot(big, "07:00"), big)
	if err != nil {
		t.Fatalf("toggle big: %v", err)
	}
	sel, err = sel.Toggle(availableSlot(small, "08:00"), small)
	if err != nil {
		t.Fatalf("toggle small: %v", err)
	}

	if _, err := sel.SetPlayerCount(6); err == nil {
		t.Fatal("player count above the smallest selected court's capacity should fail")
	}

	// Removing the small court's slot lifts the constraint.
	sel, err = sel.Toggle(availableSlot(small, "08:00"), small)
	if err != nil {
		t.Fatalf("toggle remove: %v", err)
	}
	if _, err := sel.SetPlayerCount(6); err != nil {
		t.Fatalf("set player count after removal: %v", err)
	}
}

func TestSetPlayerCount_InvalidRejected(t *testing.T) {
	sel := NewSelection()
	if _, err := sel.SetPlayerCount(0); !errors.Is(err, ErrInvalidPlayerCount) {
		t.Fatalf("expected ErrInvalidPlayerCount, got %v", err)
	}
}

func TestPrune_DropsOutOfContextSlots(t *testing.T) {
	court := testCourt()
	other := testCourt()
	other.ID = 7

	sel, err := NewSelection().Toggle(availableSlot(court, "07:00"), court)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	sel, err = sel.Toggle(availableSlot(other, "08:00"), other)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}

	stale := availableSlot(court, "09:00")
	stale.ID = SlotID(court.ID, "2026-09-03", "09:00")
	stale.Date = "2026-09-03"
	sel, err = sel.Toggle(stale, court)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// Keep only testDate slots on court 42.
	pruned := sel.Prune(testDate, func(courtID int64) bool { return courtID == court.ID })
	if pruned.Len() != 1 {
		t.Fatalf("expected 1 slot after prune, got %d", pruned.Len())
	}
	if !pruned.Contains(SlotID(court.ID, testDate, "07:00")) {
		t.Error("wrong slot survived the prune")
	}
}

func TestClear_EmptiesSelection(t *testing.T) {
	court := testCourt()
	sel, err := NewSelection().Toggle(availableSlot(court, "07:00"), court)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	sel, err = sel.SetPlayerCount(4)
	if err != nil {
		t.Fatalf("set player count: %v", err)
	}

	cleared := sel.Clear()
	if cleared.Len() != 0 {
		t.Fatalf("clear left %d slots", cleared.Len())
	}
	if cleared.PlayerCount() != 4 {
		t.Errorf("clear reset player count to %d", cleared.PlayerCount())
	}
	if cleared.TotalPrice() != 0 {
		t.Errorf("cleared selection has price %d", cleared.TotalPrice())
	}
}
