// internal/booking/errors.go
package booking

import (
	"errors"
	"fmt"
)

// ErrSlotUnavailable marks an attempt to act on a slot that is no longer
// bookable: already taken, in the past, or its court deactivated.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrInvalidPlayerCount rejects a non-positive player count.
var ErrInvalidPlayerCount = errors.New("player count must be positive")

// CapacityExceededError reports a player count above a selected court's
// capacity. The selection is left unchanged.
type CapacityExceededError struct {
	CourtID   int64
	Requested int
	Capacity  int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("player count %d exceeds capacity %d of court %d", e.Requested, e.Capacity, e.CourtID)
}

// AvailabilityFetchError isolates one court's availability failure so a
// batch can still serve the remaining courts.
type AvailabilityFetchError struct {
	CourtID int64
	Err     error
}

func (e AvailabilityFetchError) Error() string {
	return fmt.Sprintf("availability for court %d: %v", e.CourtID, e.Err)
}

func (e AvailabilityFetchError) Unwrap() error {
	return e.Err
}
