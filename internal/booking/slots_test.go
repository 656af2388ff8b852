package booking

import (
	"testing"
	"time"
)

func openAllWeek(opensAt, closesAt string) [7]DayHours {
	var hours [7]DayHours
	for day := range hours {
		hours[day] = DayHours{IsOpen: true, OpensAt: opensAt, ClosesAt: closesAt}
	}
	return hours
}

func testCourt() Court {
	return Court{
		ID:           42,
		Name:         "Court 1",
		CourtType:    "badminton",
		PricePerHour: 600,
		Capacity:     10,
		SlotMinutes:  60,
		Hours:        openAllWeek("06:00", "22:00"),
		IsActive:     true,
	}
}

// 2026-09-02 is a Wednesday.
const testDate = "2026-09-02"

func TestGenerateSlots_SkipsLunchBreak(t *testing.T) {
	court := testCourt()
	court.Breaks = []BreakWindow{
		{Name: "Lunch", DayOfWeek: time.Wednesday, StartsAt: "12:00", EndsAt: "13:00"},
	}

	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}

	// 06:00..21:00 hourly minus the 12:00 slot
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
	if slots[0].StartsAt != "06:00" || slots[0].EndsAt != "07:00" {
		t.Errorf("first slot = %s-%s, want 06:00-07:00", slots[0].StartsAt, slots[0].EndsAt)
	}
	if slots[len(slots)-1].StartsAt != "21:00" || slots[len(slots)-1].EndsAt != "22:00" {
		t.Errorf("last slot = %s-%s, want 21:00-22:00", slots[len(slots)-1].StartsAt, slots[len(slots)-1].EndsAt)
	}
	for _, slot := range slots {
		if slot.StartsAt == "12:00" {
			t.Error("slot overlapping the excluded break was generated")
		}
		if slot.EndsAt > "22:00" {
			t.Errorf("slot %s extends past close time", slot.ID)
		}
	}
}

func TestGenerateSlots_BreakOnOtherWeekdayIgnored(t *testing.T) {
	court := testCourt()
	court.Breaks = []BreakWindow{
		{Name: "Maintenance", DayOfWeek: time.Thursday, StartsAt: "12:00", EndsAt: "13:00"},
	}

	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
}

func TestGenerateSlots_PartialOverlapSkippedEntirely(t *testing.T) {
	court := testCourt()
	court.SlotMinutes = 90
	court.Breaks = []BreakWindow{
		{Name: "Cleaning", DayOfWeek: time.Wednesday, StartsAt: "07:00", EndsAt: "07:30"},
	}

	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	// The 06:00-07:30 slot touches the break and must be dropped whole;
	// no partial slots are emitted.
	for _, slot := range slots {
		if slot.StartsAt < "07:30" && slot.EndsAt > "07:00" {
			t.Errorf("slot %s-%s overlaps the break", slot.StartsAt, slot.EndsAt)
		}
	}
}

func TestGenerateSlots_ClosedDayEmpty(t *testing.T) {
	court := testCourt()
	court.Hours[time.Wednesday].IsOpen = false

	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a closed day, got %d", len(slots))
	}
}

func TestGenerateSlots_InactiveCourtEmpty(t *testing.T) {
	court := testCourt()
	court.IsActive = false

	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for an inactive court, got %d", len(slots))
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	court := testCourt()
	court.Breaks = []BreakWindow{
		{Name: "Lunch", DayOfWeek: time.Wednesday, StartsAt: "12:00", EndsAt: "13:00"},
	}

	first, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	second, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("slot counts differ: %d vs %d", len(first), len(second))
	}
	seen := map[string]struct{}{}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("slot %d id differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if _, dup := seen[first[i].ID]; dup {
			t.Errorf("duplicate slot id %s", first[i].ID)
		}
		seen[first[i].ID] = struct{}{}
	}
}

func TestGenerateSlots_PricePinned(t *testing.T) {
	court := testCourt()

	slots, err := GenerateSlots(court, testDate)
	if err != nil {
		t.Fatalf("generate slots: %v", err)
	}
	for _, slot := range slots {
		if slot.Price != 600 {
			t.Fatalf("slot price = %d, want 600", slot.Price)
		}
	}
}

func TestSlotPrice_Rounding(t *testing.T) {
	tests := []struct {
		pricePerHour int64
		minutes      int
		want         int64
	}{
		{600, 60, 600},
		{600, 30, 300},
		{500, 90, 750},
		{999, 45, 749}, // 749.25 rounds down
		{999, 50, 833}, // 832.5 rounds up
	}
	for _, tt := range tests {
		if got := SlotPrice(tt.pricePerHour, tt.minutes); got != tt.want {
			t.Errorf("SlotPrice(%d, %d) = %d, want %d", tt.pricePerHour, tt.minutes, got, tt.want)
		}
	}
}

func TestSlotID_RoundTrip(t *testing.T) {
	id := SlotID(42, testDate, "07:00")
	if id != "42:2026-09-02:0700" {
		t.Fatalf("slot id = %s", id)
	}

	courtID, date, startsAt, err := ParseSlotID(id)
	if err != nil {
		t.Fatalf("parse slot id: %v", err)
	}
	if courtID != 42 || date != testDate || startsAt != "07:00" {
		t.Errorf("parsed (%d, %s, %s)", courtID, date, startsAt)
	}

	for _, bad := range []string{"", "42", "42:2026-09-02", "x:2026-09-02:0700", "42:not-a-date:0700", "42:2026-09-02:7am"} {
		if _, _, _, err := ParseSlotID(bad); err == nil {
			t.Errorf("ParseSlotID(%q) should fail", bad)
		}
	}
}
