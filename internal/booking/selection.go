// internal/booking/selection.go
package booking

// Selection is the user's current, unconfirmed set of chosen slots. It is
// an immutable value: every transition returns a new Selection and leaves
// the receiver untouched, so a rejected transition cannot leave partial
// state behind.
//
// Invariants held at all times:
//   - a slot id appears at most once
//   - every selected slot was available when added
//   - playerCount never exceeds the minimum capacity across selected courts
type Selection struct {
	slots       []TimeSlot
	capacities  map[int64]int
	playerCount int
}

// NewSelection returns an empty selection for one player.
func NewSelection() Selection {
	return Selection{playerCount: 1}
}

// Toggle adds the slot if absent and removes it if present. Adding an
// unavailable slot is rejected with ErrSlotUnavailable; adding a court
// whose capacity is below the current player count is rejected with
// CapacityExceededError.
func (s Selection) Toggle(slot TimeSlot, court Court) (Selection, error) {
	if s.Contains(slot.ID) {
		return s.remove(slot.ID), nil
	}

	if !slot.IsAvailable {
		return s, ErrSlotUnavailable
	}
	if s.playerCount > court.Capacity {
		return s, CapacityExceededError{CourtID: court.ID, Requested: s.playerCount, Capacity: court.Capacity}
	}

	next := s.clone()
	next.slots = append(next.slots, slot)
	next.capacities[court.ID] = court.Capacity
	return next, nil
}

// SetPlayerCount updates the player count. It fails with
// CapacityExceededError when n exceeds the minimum capacity among the
// selected courts, and the prior valid count is kept.
func (s Selection) SetPlayerCount(n int) (Selection, error) {
	if n < 1 {
		return s, ErrInvalidPlayerCount
	}
	for courtID, capacity := range s.capacities {
		if n > capacity {
			return s, CapacityExceededError{CourtID: courtID, Requested: n, Capacity: capacity}
		}
	}
	next := s.clone()
	next.playerCount = n
	return next, nil
}

// Prune drops every slot outside the visible (date, court-filter) context
// in one step, so the selection can never reference a slot the user is not
// looking at. A nil filter keeps all courts.
func (s Selection) Prune(date string, courtVisible func(courtID int64) bool) Selection {
	next := Selection{playerCount: s.playerCount, capacities: map[int64]int{}}
	for _, slot := range s.slots {
		if slot.Date != date {
			continue
		}
		if courtVisible != nil && !courtVisible(slot.CourtID) {
			continue
		}
		next.slots = append(next.slots, slot)
		next.capacities[slot.CourtID] = s.capacities[slot.CourtID]
	}
	return next
}

// Clear returns an empty selection, keeping the player count.
func (s Selection) Clear() Selection {
	return Selection{playerCount: s.playerCount}
}

// TotalPrice sums the per-slot prices. Prices are integers in minor units,
// so the sum carries no rounding drift.
func (s Selection) TotalPrice() int64 {
	var total int64
	for _, slot := range s.slots {
		total += slot.Price
	}
	return total
}

func (s Selection) Contains(slotID string) bool {
	for _, slot := range s.slots {
		if slot.ID == slotID {
			return true
		}
	}
	return false
}

// Slots returns the selected slots in insertion order.
func (s Selection) Slots() []TimeSlot {
	out := make([]TimeSlot, len(s.slots))
	copy(out, s.slots)
	return out
}

func (s Selection) PlayerCount() int {
	return s.playerCount
}

func (s Selection) Len() int {
	return len(s.slots)
}

func (s Selection) remove(slotID string) Selection {
	next := Selection{playerCount: s.playerCount, capacities: map[int64]int{}}
	remaining := map[int64]bool{}
	for _, slot := range s.slots {
		if slot.ID == slotID {
			continue
		}
		next.slots = append(next.slots, slot)
		remaining[slot.CourtID] = true
	}
	// Capacities of courts with no remaining slot no longer constrain the
	// player count.
	for courtID, capacity := range s.capacities {
		if remaining[courtID] {
			next.capacities[courtID] = capacity
		}
	}
	return next
}

func (s Selection) clone() Selection {
	next := Selection{
		slots:       make([]TimeSlot, len(s.slots)),
		capacities:  make(map[int64]int, len(s.capacities)),
		playerCount: s.playerCount,
	}
	copy(next.slots, s.slots)
	for id, capacity := range s.capacities {
		next.capacities[id] = capacity
	}
	return next
}
