// internal/api/bookings/handlers.go
package bookings

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/api/apiutil"
	"github.com/quickcourt/quickcourt/internal/booking"
	appdb "github.com/quickcourt/quickcourt/internal/db"
	"github.com/quickcourt/quickcourt/internal/payment"
	"github.com/quickcourt/quickcourt/internal/ratelimit"
)

var (
	store        *appdb.DB
	orchestrator *booking.Orchestrator
	limiter      *ratelimit.Limiter
	selections   *SelectionBuilder
	initOnce     sync.Once
)

// InitHandlers must be called during server startup before handling
// requests. limiter may be nil (rate limiting disabled).
func InitHandlers(database *appdb.DB, orch *booking.Orchestrator, sel *SelectionBuilder, lim *ratelimit.Limiter) {
	if database == nil || orch == nil || sel == nil {
		return
	}
	initOnce.Do(func() {
		store = database
		orchestrator = orch
		selections = sel
		limiter = lim
	})
}

type slotOutcomeResponse struct {
	SlotID     string `json:"slot_id"`
	Status     string `json:"status"`
	BookingRef string `json:"booking_ref,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
}

type confirmResponse struct {
	Booked   int                   `json:"booked"`
	Failed   int                   `json:"failed"`
	Outcomes []slotOutcomeResponse `json:"outcomes"`
}

// POST /api/v1/bookings
//
// Confirms a selection slot by slot. Partial success is a valid end state
// and still a 200: the outcome list carries each slot's final status.
func HandleBookingConfirm(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil || orchestrator == nil {
		logger.Error().Msg("Booking handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	req, err := decodeConfirmRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if limiter != nil {
		ip := ratelimit.GetClientIP(r, false)
		result := limiter.CheckConfirm(req.PayerEmail, ip)
		if !result.Allowed {
			ratelimit.LogRateLimitExceeded(req.PayerEmail, ip, result.Reason)
			w.Header().Set("Retry-After", result.RetryAfter.String())
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		limiter.RecordConfirm(req.PayerEmail, ip)
	}

	sel, immediate, err := selections.Build(r.Context(), req.SlotIDs, req.PlayerCount)
	if err != nil {
		var capErr booking.CapacityExceededError
		if errors.As(err, &capErr) {
			http.Error(w, capErr.Error(), http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, booking.ErrInvalidPlayerCount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Msg("Failed to build selection")
		http.Error(w, "Failed to build selection", http.StatusInternalServerError)
		return
	}

	payer := payment.Payer{
		Name:    req.PayerName,
		Email:   req.PayerEmail,
		Contact: req.PayerContact,
	}
	outcomes := orchestrator.Confirm(r.Context(), sel, payer)

	// Slots rejected while rebuilding the selection (already booked, in the
	// past) still get a reported outcome; nothing is silently dropped.
	all := append(immediate, outcomes...)

	resp := confirmResponse{Outcomes: make([]slotOutcomeResponse, 0, len(all))}
	for _, outcome := range all {
		item := slotOutcomeResponse{
			SlotID: outcome.SlotID,
			Status: string(outcome.Status),
		}
		if outcome.Status == booking.OutcomeConfirmed {
			resp.Booked++
			item.BookingRef = outcome.BookingRef
		} else {
			resp.Failed++
			item.ErrorCode = errorCode(outcome.Err)
			item.Retryable = payment.IsRetryable(outcome.Err)
		}
		resp.Outcomes = append(resp.Outcomes, item)
	}

	logger.Info().
		Int("booked", resp.Booked).
		Int("failed", resp.Failed).
		Msg("Booking confirm completed")

	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write confirm response")
	}
}

func errorCode(err error) string {
	var declined payment.DeclinedError
	var capErr booking.CapacityExceededError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.As(err, &capErr):
		return "capacity_exceeded"
	case errors.As(err, &declined):
		return "payment_declined"
	case payment.IsRetryable(err):
		return "payment_gateway_error"
	default:
		return "availability_error"
	}
}
