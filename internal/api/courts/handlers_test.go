package courts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quickcourt/quickcourt/internal/testutil"
)

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(body)
}

func TestCourtHandlers(t *testing.T) {
	database := testutil.NewTestDB(t)
	InitHandlers(database, nil)

	var created courtResponse

	t.Run("create", func(t *testing.T) {
		body := jsonBody(t, courtRequest{
			Name:         "Court 1",
			CourtType:    "badminton",
			PricePerHour: 600,
			Capacity:     10,
			SlotMinutes:  60,
		})
		r := httptest.NewRequest(http.MethodPost, "/api/v1/courts", body)
		w := httptest.NewRecorder()
		HandleCourtCreate(w, r)

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if created.ID == 0 || !created.IsActive {
			t.Errorf("created court: %+v", created)
		}
	})

	t.Run("create rejects bad slot duration", func(t *testing.T) {
		body := jsonBody(t, courtRequest{
			Name:         "Court X",
			CourtType:    "badminton",
			PricePerHour: 600,
			Capacity:     10,
			SlotMinutes:  5,
		})
		r := httptest.NewRequest(http.MethodPost, "/api/v1/courts", body)
		w := httptest.NewRecorder()
		HandleCourtCreate(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		body := jsonBody(t, courtRequest{
			Name:         "Court 1",
			CourtType:    "badminton",
			PricePerHour: 750,
			Capacity:     10,
			SlotMinutes:  90,
		})
		r := httptest.NewRequest(http.MethodPut, "/api/v1/courts/1", body)
		w := httptest.NewRecorder()
		HandleCourtUpdate(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var updated courtResponse
		if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if updated.PricePerHour != 750 || updated.SlotMinutes != 90 {
			t.Errorf("update not applied: %+v", updated)
		}
	})

	t.Run("update missing court", func(t *testing.T) {
		body := jsonBody(t, courtRequest{
			Name:         "Ghost",
			CourtType:    "badminton",
			PricePerHour: 600,
			Capacity:     10,
			SlotMinutes:  60,
		})
		r := httptest.NewRequest(http.MethodPut, "/api/v1/courts/404", body)
		w := httptest.NewRecorder()
		HandleCourtUpdate(w, r)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("hours upsert", func(t *testing.T) {
		body := jsonBody(t, operatingHoursRequest{
			DayOfWeek: 3, IsOpen: true, OpensAt: "06:00", ClosesAt: "22:00",
		})
		r := httptest.NewRequest(http.MethodPut, "/api/v1/courts/1/hours", body)
		w := httptest.NewRecorder()
		HandleOperatingHoursUpsert(w, r)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}

		hours, err := database.Queries.ListOperatingHours(context.Background(), 1)
		if err != nil {
			t.Fatalf("list hours: %v", err)
		}
		if len(hours) != 1 || hours[0].OpensAt != "06:00" {
			t.Errorf("hours = %+v", hours)
		}
	})

	t.Run("open day requires times", func(t *testing.T) {
		body := jsonBody(t, operatingHoursRequest{DayOfWeek: 3, IsOpen: true})
		r := httptest.NewRequest(http.MethodPut, "/api/v1/courts/1/hours", body)
		w := httptest.NewRecorder()
		HandleOperatingHoursUpsert(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("break create", func(t *testing.T) {
		body := jsonBody(t, excludedTimeRequest{
			DayOfWeek: 3, Name: "Lunch", StartsAt: "12:00", EndsAt: "13:00",
		})
		r := httptest.NewRequest(http.MethodPost, "/api/v1/courts/1/breaks", body)
		w := httptest.NewRecorder()
		HandleExcludedTimeCreate(w, r)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("deactivate and list", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/courts/1/deactivate", nil)
		w := httptest.NewRecorder()
		HandleCourtDeactivate(w, r)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d", w.Code)
		}

		r = httptest.NewRequest(http.MethodGet, "/api/v1/courts", nil)
		w = httptest.NewRecorder()
		HandleCourtsList(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("list status = %d", w.Code)
		}
		var courts []courtResponse
		if err := json.NewDecoder(w.Body).Decode(&courts); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(courts) != 1 || courts[0].IsActive {
			t.Errorf("deactivated court should still list, inactive: %+v", courts)
		}
	})

	t.Run("invalid court id in path", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/courts/zero/deactivate", nil)
		w := httptest.NewRecorder()
		HandleCourtDeactivate(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
