package bookings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quickcourt/quickcourt/internal/booking"
	appdb "github.com/quickcourt/quickcourt/internal/db"
	"github.com/quickcourt/quickcourt/internal/payment"
	"github.com/quickcourt/quickcourt/internal/ratelimit"
	"github.com/quickcourt/quickcourt/internal/testutil"
)

type fakeGateway struct {
	charges  []string
	declines map[string]error
}

func (g *fakeGateway) AuthorizeAndCapture(_ context.Context, reference string, _ int64, _ payment.Payer) (payment.Result, error) {
	g.charges = append(g.charges, reference)
	if err, ok := g.declines[reference]; ok {
		return payment.Result{}, err
	}
	return payment.Result{PaymentRef: "pay_" + reference}, nil
}

func futureWednesday() string {
	day := time.Now().AddDate(0, 0, 14)
	for day.Weekday() != time.Wednesday {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format("2006-01-02")
}

func confirmBody(t *testing.T, slotIDs []string, playerCount int, email string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"slot_ids":     slotIDs,
		"player_count": playerCount,
		"payer_name":   "Asha",
		"payer_email":  email,
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(body)
}

func postConfirm(t *testing.T, body *bytes.Reader) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", body)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleBookingConfirm(w, r)
	return w
}

func decodeConfirmResponse(t *testing.T, w *httptest.ResponseRecorder) confirmResponse {
	t.Helper()
	var resp confirmResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandleBookingConfirm(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	date := futureWednesday()

	court, err := database.Queries.CreateCourt(ctx, appdb.CreateCourtParams{
		Name:         "Court 1",
		CourtType:    "badminton",
		PricePerHour: 600,
		Capacity:     10,
		SlotMinutes:  60,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	for day := int64(0); day < 7; day++ {
		err := database.Queries.UpsertOperatingHours(ctx, appdb.UpsertOperatingHoursParams{
			CourtID: court.ID, DayOfWeek: day, IsOpen: true, OpensAt: "06:00", ClosesAt: "22:00",
		})
		if err != nil {
			t.Fatalf("upsert hours: %v", err)
		}
	}

	// The 09:00 slot is already taken by a rival session.
	rival, err := database.Queries.CreateBooking(ctx, appdb.CreateBookingParams{
		BookingRef:  "rival-ref",
		CourtID:     court.ID,
		SlotID:      booking.SlotID(court.ID, date, "09:00"),
		Date:        date,
		StartsAt:    "09:00",
		EndsAt:      "10:00",
		Price:       600,
		PlayerCount: 2,
		PayerName:   "Rival",
		PayerEmail:  "rival@example.com",
	})
	if err != nil {
		t.Fatalf("create rival booking: %v", err)
	}
	if err := database.Queries.ConfirmBooking(ctx, rival.ID, "pay_rival"); err != nil {
		t.Fatalf("confirm rival: %v", err)
	}

	gateway := &fakeGateway{declines: map[string]error{
		booking.SlotID(court.ID, date, "08:00"): payment.DeclinedError{Code: "insufficient_funds"},
	}}
	orch := booking.NewOrchestrator(database, gateway, time.UTC, nil)
	sel := NewSelectionBuilder(database, nil, time.UTC, 3)
	lim := ratelimit.New(&ratelimit.Config{
		ConfirmCooldown:     5 * time.Second,
		ConfirmMaxPerHour:   30,
		ConfirmMaxIPPerHour: 60,
	})
	defer lim.Close()

	InitHandlers(database, orch, sel, lim)

	t.Run("mixed outcomes are a 200", func(t *testing.T) {
		slotIDs := []string{
			booking.SlotID(court.ID, date, "07:00"), // books
			booking.SlotID(court.ID, date, "08:00"), // payment declined
			booking.SlotID(court.ID, date, "09:00"), // already taken
		}
		w := postConfirm(t, confirmBody(t, slotIDs, 2, "mixed@example.com"))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}

		resp := decodeConfirmResponse(t, w)
		if resp.Booked != 1 || resp.Failed != 2 {
			t.Fatalf("booked/failed = %d/%d, want 1/2", resp.Booked, resp.Failed)
		}

		byID := map[string]slotOutcomeResponse{}
		for _, outcome := range resp.Outcomes {
			byID[outcome.SlotID] = outcome
		}
		if len(byID) != 3 {
			t.Fatalf("expected 3 outcomes, got %d", len(resp.Outcomes))
		}

		booked := byID[slotIDs[0]]
		if booked.Status != string(booking.OutcomeConfirmed) || booked.BookingRef == "" {
			t.Errorf("bookable slot outcome: %+v", booked)
		}
		declined := byID[slotIDs[1]]
		if declined.ErrorCode != "payment_declined" || declined.Retryable {
			t.Errorf("declined slot outcome: %+v", declined)
		}
		unavailable := byID[slotIDs[2]]
		if unavailable.ErrorCode != "slot_unavailable" {
			t.Errorf("taken slot outcome: %+v", unavailable)
		}

		// The confirmed booking is persisted with the payment reference.
		row, err := database.Queries.GetBookingByRef(ctx, booked.BookingRef)
		if err != nil {
			t.Fatalf("load booking: %v", err)
		}
		if row.Status != appdb.BookingStatusConfirmed || !row.PaymentRef.Valid {
			t.Errorf("persisted booking: %+v", row)
		}
		// The taken slot never reached the gateway.
		for _, ref := range gateway.charges {
			if ref == slotIDs[2] {
				t.Error("taken slot was charged")
			}
		}
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		w := postConfirm(t, confirmBody(t, []string{}, 1, "empty@example.com"))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		resp := decodeConfirmResponse(t, w)
		if resp.Booked != 0 || resp.Failed != 0 || len(resp.Outcomes) != 0 {
			t.Errorf("empty selection produced outcomes: %+v", resp)
		}
	})

	t.Run("player count above capacity fails per slot", func(t *testing.T) {
		slotIDs := []string{booking.SlotID(court.ID, date, "10:00")}
		w := postConfirm(t, confirmBody(t, slotIDs, 12, "crowd@example.com"))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		resp := decodeConfirmResponse(t, w)
		if resp.Failed != 1 || resp.Outcomes[0].ErrorCode != "capacity_exceeded" {
			t.Errorf("capacity outcome: %+v", resp)
		}
	})

	t.Run("malformed slot id fails that slot only", func(t *testing.T) {
		slotIDs := []string{"junk", booking.SlotID(court.ID, date, "11:00")}
		w := postConfirm(t, confirmBody(t, slotIDs, 2, "mal@example.com"))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		resp := decodeConfirmResponse(t, w)
		if resp.Booked != 1 || resp.Failed != 1 {
			t.Fatalf("booked/failed = %d/%d, want 1/1", resp.Booked, resp.Failed)
		}
	})

	t.Run("validation failures are a 400", func(t *testing.T) {
		w := postConfirm(t, confirmBody(t, nil, 2, "not-an-email"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("bad email: status = %d, want 400", w.Code)
		}
		w = postConfirm(t, confirmBody(t, nil, 0, "valid@example.com"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("zero players: status = %d, want 400", w.Code)
		}
	})

	t.Run("cooldown returns 429", func(t *testing.T) {
		email := "throttled@example.com"
		w := postConfirm(t, confirmBody(t, []string{}, 1, email))
		if w.Code != http.StatusOK {
			t.Fatalf("first confirm: status = %d", w.Code)
		}
		w = postConfirm(t, confirmBody(t, []string{}, 1, email))
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("second confirm: status = %d, want 429", w.Code)
		}
		if w.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After header")
		}
	})
}
