// internal/booking/orchestrator.go
package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/db"
	"github.com/quickcourt/quickcourt/internal/payment"
)

type OutcomeStatus string

const (
	OutcomeConfirmed OutcomeStatus = "CONFIRMED"
	OutcomeFailed    OutcomeStatus = "FAILED"
)

// finalizeTimeout bounds one slot's charge-and-finalize section. Once a
// charge is sent, the booking must reach CONFIRMED or FAILED even if the
// originating request goes away.
const finalizeTimeout = 60 * time.Second

// SlotOutcome is the final word on one slot of a confirm call. Err is set
// only for failed outcomes.
type SlotOutcome struct {
	SlotID     string
	Status     OutcomeStatus
	BookingRef string
	Err        error
}

// RefreshFunc is invoked after every slot outcome so cached availability
// for the affected court/date is never stale.
type RefreshFunc func(ctx context.Context, courtID int64, date string)

// Orchestrator turns a finalized selection into bookings, one payment at a
// time. Charges are real-money side effects, so slots are processed
// strictly sequentially and a failure never aborts the remaining slots.
type Orchestrator struct {
	store   *db.DB
	gateway payment.Gateway
	refresh RefreshFunc
	loc     *time.Location
	now     func() time.Time
}

func NewOrchestrator(store *db.DB, gateway payment.Gateway, loc *time.Location, refresh RefreshFunc) *Orchestrator {
	if loc == nil {
		loc = time.UTC
	}
	return &Orchestrator{
		store:   store,
		gateway: gateway,
		refresh: refresh,
		loc:     loc,
		now:     time.Now,
	}
}

// Confirm processes each selected slot in order and returns one outcome per
// slot. Partial success is a valid end state: the caller reports "booked 3
// of 4" from the outcome list. If ctx is cancelled mid-sequence, the slot
// being processed runs to completion, confirmed slots stay booked, and
// unprocessed slots are dropped; no compensating transaction is attempted
// here.
//
// An empty selection returns an empty outcome list without touching the
// gateway.
func (o *Orchestrator) Confirm(ctx context.Context, sel Selection, payer payment.Payer) []SlotOutcome {
	slots := dedupeByID(sel.Slots())
	outcomes := make([]SlotOutcome, 0, len(slots))

	for _, slot := range slots {
		if ctx.Err() != nil {
			log.Ctx(ctx).Warn().
				Str("slot_id", slot.ID).
				Int("processed", len(outcomes)).
				Msg("Confirm cancelled; dropping remaining slots")
			break
		}

		outcome := o.confirmSlot(ctx, slot, sel.PlayerCount(), payer)
		outcomes = append(outcomes, outcome)

		// Refresh is ordered after the outcome so the caller never sees
		// availability older than the attempt it just made.
		if o.refresh != nil {
			o.refresh(ctx, slot.CourtID, slot.Date)
		}
	}
	return outcomes
}

func (o *Orchestrator) confirmSlot(ctx context.Context, slot TimeSlot, playerCount int, payer payment.Payer) SlotOutcome {
	logger := log.Ctx(ctx).With().Str("slot_id", slot.ID).Int64("court_id", slot.CourtID).Logger()

	court, err := o.store.Queries.GetCourt(ctx, slot.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failed(slot.ID, ErrSlotUnavailable)
		}
		logger.Error().Err(err).Msg("Failed to load court for confirm")
		return failed(slot.ID, AvailabilityFetchError{CourtID: slot.CourtID, Err: err})
	}
	if !court.IsActive {
		return failed(slot.ID, ErrSlotUnavailable)
	}

	// Capacity is re-validated at confirm time; the court may have changed
	// since the slot was selected.
	if int64(playerCount) > court.Capacity {
		return failed(slot.ID, CapacityExceededError{
			CourtID:   court.ID,
			Requested: playerCount,
			Capacity:  int(court.Capacity),
		})
	}

	start, err := SlotStart(slot.Date, slot.StartsAt, o.loc)
	if err != nil {
		return failed(slot.ID, ErrSlotUnavailable)
	}
	if start.Before(o.now()) {
		return failed(slot.ID, ErrSlotUnavailable)
	}

	bookingRef := uuid.New().String()
	var pending db.Booking
	err = o.store.RunInTx(ctx, func(txdb *db.DB) error {
		taken, err := txdb.Queries.CountConfirmedBySlotID(ctx, slot.ID)
		if err != nil {
			return err
		}
		if taken > 0 {
			return ErrSlotUnavailable
		}
		pending, err = txdb.Queries.CreateBooking(ctx, db.CreateBookingParams{
			BookingRef:   bookingRef,
			CourtID:      slot.CourtID,
			SlotID:       slot.ID,
			Date:         slot.Date,
			StartsAt:     slot.StartsAt,
			EndsAt:       slot.EndsAt,
			Price:        slot.Price,
			PlayerCount:  int64(playerCount),
			PayerName:    payer.Name,
			PayerEmail:   payer.Email,
			PayerContact: toNullString(payer.Contact),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			return failed(slot.ID, ErrSlotUnavailable)
		}
		logger.Error().Err(err).Msg("Failed to create pending booking")
		return failed(slot.ID, AvailabilityFetchError{CourtID: slot.CourtID, Err: err})
	}

	// Cancellation is honored between slots only. A cancel landing inside
	// the charge would leave the gateway-side outcome unknown and could
	// strand a PENDING row for a captured payment, so the charge and its
	// finalization run detached from the caller's ctx under their own
	// deadline.
	finCtx, cancelFin := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancelFin()

	result, err := o.gateway.AuthorizeAndCapture(finCtx, slot.ID, slot.Price, payer)
	if err != nil {
		if failErr := o.store.Queries.FailBooking(finCtx, pending.ID); failErr != nil {
			logger.Error().Err(failErr).Str("booking_ref", bookingRef).Msg("Failed to mark booking failed")
		}
		logger.Warn().Err(err).Str("booking_ref", bookingRef).Msg("Payment failed for slot")
		return failed(slot.ID, err)
	}

	if err := o.store.Queries.ConfirmBooking(finCtx, pending.ID, result.PaymentRef); err != nil {
		// The charge went through but the row could not be confirmed:
		// another session took the slot first, or the expiry job failed the
		// row mid-charge. Mark ours failed and flag the payment ref for
		// server-side reconciliation.
		if failErr := o.store.Queries.FailBooking(finCtx, pending.ID); failErr != nil {
			logger.Error().Err(failErr).Str("booking_ref", bookingRef).Msg("Failed to mark booking failed")
		}
		logger.Error().Err(err).
			Str("booking_ref", bookingRef).
			Str("payment_ref", result.PaymentRef).
			Msg("Charge captured but slot lost; needs reconciliation")
		return failed(slot.ID, ErrSlotUnavailable)
	}

	logger.Info().Str("booking_ref", bookingRef).Msg("Slot confirmed")
	return SlotOutcome{SlotID: slot.ID, Status: OutcomeConfirmed, BookingRef: bookingRef}
}

// dedupeByID keeps the first occurrence of each slot id so a double-fired
// confirm can never charge the same slot twice in one invocation.
func dedupeByID(slots []TimeSlot) []TimeSlot {
	seen := make(map[string]struct{}, len(slots))
	out := slots[:0:0]
	for _, slot := range slots {
		if _, dup := seen[slot.ID]; dup {
			continue
		}
		seen[slot.ID] = struct{}{}
		out = append(out, slot)
	}
	return out
}

func failed(slotID string, err error) SlotOutcome {
	return SlotOutcome{SlotID: slotID, Status: OutcomeFailed, Err: err}
}

func toNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
