// internal/api/availability/handlers.go
package availability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/api/apiutil"
	"github.com/quickcourt/quickcourt/internal/booking"
	"github.com/quickcourt/quickcourt/internal/cache"
	appdb "github.com/quickcourt/quickcourt/internal/db"
)

var (
	store        *appdb.DB
	slotCache    *cache.AvailabilityCache
	location     *time.Location
	popThreshold int64
	initOnce     sync.Once
)

const availabilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling
// requests. slotCache may be nil (caching disabled).
func InitHandlers(database *appdb.DB, c *cache.AvailabilityCache, loc *time.Location, popularityThreshold int) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		store = database
		slotCache = c
		location = loc
		popThreshold = int64(popularityThreshold)
	})
}

type courtAvailability struct {
	CourtID int64              `json:"court_id"`
	Slots   []booking.TimeSlot `json:"slots,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type availabilityResponse struct {
	Date   string              `json:"date"`
	Courts []courtAvailability `json:"courts"`
}

// GET /api/v1/availability?date=YYYY-MM-DD&court_id=N
// GET /api/v1/availability?date=YYYY-MM-DD&court_ids=N,M,...
//
// The read is idempotent and reflects bookings committed by any session.
// One court's failure never invalidates the rest of the batch.
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Availability handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := booking.ParseDate(date); err != nil {
		http.Error(w, "Valid date is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	courtIDs, err := courtIDsFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	resp := availabilityResponse{Date: date}
	for _, courtID := range courtIDs {
		slots, err := ResolveCourtDay(ctx, store, slotCache, courtID, date, location, popThreshold)
		if err != nil {
			logger.Warn().Err(err).Int64("court_id", courtID).Str("date", date).Msg("Availability resolution failed for court")
			resp.Courts = append(resp.Courts, courtAvailability{
				CourtID: courtID,
				Error:   "availability unavailable",
			})
			continue
		}
		resp.Courts = append(resp.Courts, courtAvailability{CourtID: courtID, Slots: slots})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// ResolveCourtDay computes the resolved slot set for one (court, date),
// consulting the cache first. Errors wrap AvailabilityFetchError so callers
// can isolate them per court.
func ResolveCourtDay(ctx context.Context, database *appdb.DB, c *cache.AvailabilityCache, courtID int64, date string, loc *time.Location, threshold int64) ([]booking.TimeSlot, error) {
	if cached, ok := c.Get(ctx, courtID, date); ok {
		return cached, nil
	}

	court, err := apiutil.LoadCourt(ctx, database.Queries, courtID)
	if err != nil {
		return nil, booking.AvailabilityFetchError{CourtID: courtID, Err: err}
	}

	slots, err := booking.GenerateSlots(court, date)
	if err != nil {
		return nil, booking.AvailabilityFetchError{CourtID: courtID, Err: err}
	}

	bookedIDs, err := database.Queries.ListConfirmedSlotIDs(ctx, courtID, date)
	if err != nil {
		return nil, booking.AvailabilityFetchError{CourtID: courtID, Err: err}
	}
	booked := make(map[string]struct{}, len(bookedIDs))
	for _, id := range bookedIDs {
		booked[id] = struct{}{}
	}

	resolved := booking.Resolve(slots, booked, time.Now(), loc, popularityFunc(ctx, database.Queries, threshold))

	c.Set(ctx, courtID, date, resolved)
	return resolved, nil
}

// popularityFunc looks up precomputed booking density for the court's
// weekday. The whole day's stats are fetched once and memoized across the
// per-slot calls.
func popularityFunc(ctx context.Context, q *appdb.Queries, threshold int64) booking.PopularityFunc {
	type dayKey struct {
		courtID int64
		weekday time.Weekday
	}
	counts := make(map[dayKey]map[string]int64)

	return func(courtID int64, weekday time.Weekday, startsAt string) (bool, error) {
		if threshold <= 0 {
			return false, nil
		}
		key := dayKey{courtID: courtID, weekday: weekday}
		byStart, ok := counts[key]
		if !ok {
			stats, err := q.ListSlotPopularityForDay(ctx, courtID, int64(weekday))
			if err != nil {
				return false, err
			}
			byStart = make(map[string]int64, len(stats))
			for _, s := range stats {
				byStart[s.StartsAt] = s.BookingCount
			}
			counts[key] = byStart
		}
		return byStart[startsAt] >= threshold, nil
	}
}

func courtIDsFromRequest(r *http.Request) ([]int64, error) {
	if raw := r.URL.Query().Get("court_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, apiutil.FieldError{Field: "court_id", Reason: "must be a positive integer"}
		}
		return []int64{id}, nil
	}

	raw := r.URL.Query().Get("court_ids")
	if raw == "" {
		return nil, apiutil.FieldError{Field: "court_id", Reason: "is required"}
	}

	var ids []int64
	seen := map[int64]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, apiutil.FieldError{Field: "court_ids", Reason: "must be positive integers"}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apiutil.FieldError{Field: "court_ids", Reason: "is required"}
	}
	return ids, nil
}
