// internal/api/bookings/selection.go
package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/api/apiutil"
	"github.com/quickcourt/quickcourt/internal/api/availability"
	"github.com/quickcourt/quickcourt/internal/booking"
	"github.com/quickcourt/quickcourt/internal/cache"
	appdb "github.com/quickcourt/quickcourt/internal/db"
)

// SelectionBuilder rebuilds a client's selection server-side from slot ids.
// The client's view is only a cache; every slot is re-resolved against the
// authoritative availability state before it enters the selection.
type SelectionBuilder struct {
	store     *appdb.DB
	cache     *cache.AvailabilityCache
	loc       *time.Location
	threshold int64
}

func NewSelectionBuilder(store *appdb.DB, c *cache.AvailabilityCache, loc *time.Location, popularityThreshold int) *SelectionBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &SelectionBuilder{
		store:     store,
		cache:     c,
		loc:       loc,
		threshold: int64(popularityThreshold),
	}
}

// Build resolves each requested slot id and toggles it into a fresh
// selection. Slots that cannot be selected (unknown id, already booked, in
// the past, capacity below the player count) are returned as immediate
// failed outcomes rather than aborting the batch. Only an invalid player
// count fails the whole build.
func (b *SelectionBuilder) Build(ctx context.Context, slotIDs []string, playerCount int) (booking.Selection, []booking.SlotOutcome, error) {
	sel, err := booking.NewSelection().SetPlayerCount(playerCount)
	if err != nil {
		return booking.Selection{}, nil, err
	}

	var immediate []booking.SlotOutcome
	courts := map[int64]booking.Court{}
	resolvedDays := map[string][]booking.TimeSlot{}

	for _, slotID := range slotIDs {
		if sel.Contains(slotID) {
			// Duplicate ids in one request collapse to a single attempt.
			continue
		}

		courtID, date, _, err := booking.ParseSlotID(slotID)
		if err != nil {
			immediate = append(immediate, failedOutcome(slotID))
			continue
		}

		court, ok := courts[courtID]
		if !ok {
			court, err = apiutil.LoadCourt(ctx, b.store.Queries, courtID)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("slot_id", slotID).Msg("Failed to load court for selection")
				immediate = append(immediate, failedOutcome(slotID))
				continue
			}
			courts[courtID] = court
		}

		slot, ok := b.findSlot(ctx, resolvedDays, courtID, date, slotID)
		if !ok {
			immediate = append(immediate, failedOutcome(slotID))
			continue
		}

		next, err := sel.Toggle(slot, court)
		if err != nil {
			immediate = append(immediate, booking.SlotOutcome{
				SlotID: slotID,
				Status: booking.OutcomeFailed,
				Err:    err,
			})
			continue
		}
		sel = next
	}

	return sel, immediate, nil
}

func (b *SelectionBuilder) findSlot(ctx context.Context, days map[string][]booking.TimeSlot, courtID int64, date, slotID string) (booking.TimeSlot, bool) {
	key := fmt.Sprintf("%d:%s", courtID, date)
	slots, ok := days[key]
	if !ok {
		var err error
		slots, err = availability.ResolveCourtDay(ctx, b.store, b.cache, courtID, date, b.loc, b.threshold)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Int64("court_id", courtID).Str("date", date).Msg("Failed to resolve availability for selection")
			return booking.TimeSlot{}, false
		}
		days[key] = slots
	}

	for _, slot := range slots {
		if slot.ID == slotID {
			return slot, true
		}
	}
	return booking.TimeSlot{}, false
}

func failedOutcome(slotID string) booking.SlotOutcome {
	return booking.SlotOutcome{
		SlotID: slotID,
		Status: booking.OutcomeFailed,
		Err:    booking.ErrSlotUnavailable,
	}
}
