// internal/api/courts/handlers.go
package courts

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/api/apiutil"
	"github.com/quickcourt/quickcourt/internal/cache"
	appdb "github.com/quickcourt/quickcourt/internal/db"
)

var (
	store     *appdb.DB
	slotCache *cache.AvailabilityCache
	initOnce  sync.Once
)

const courtsQueryTimeout = 5 * time.Second

var validate = validator.New()

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, c *cache.AvailabilityCache) {
	if database == nil {
		return
	}
	initOnce.Do(func() {
		store = database
		slotCache = c
	})
}

type courtRequest struct {
	Name         string `json:"name" validate:"required"`
	CourtType    string `json:"court_type" validate:"required"`
	PricePerHour int64  `json:"price_per_hour" validate:"min=1"`
	Capacity     int64  `json:"capacity" validate:"min=1"`
	SlotMinutes  int64  `json:"slot_minutes" validate:"min=15,max=240"`
}

type courtResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CourtType    string `json:"court_type"`
	PricePerHour int64  `json:"price_per_hour"`
	Capacity     int64  `json:"capacity"`
	SlotMinutes  int64  `json:"slot_minutes"`
	IsActive     bool   `json:"is_active"`
}

// POST /api/v1/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Court handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := store.Queries.CreateCourt(ctx, appdb.CreateCourtParams{
		Name:         req.Name,
		CourtType:    req.CourtType,
		PricePerHour: req.PricePerHour,
		Capacity:     req.Capacity,
		SlotMinutes:  req.SlotMinutes,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create court")
		http.Error(w, "Failed to create court", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, toCourtResponse(court)); err != nil {
		logger.Error().Err(err).Int64("court_id", court.ID).Msg("Failed to write court response")
	}
}

// GET /api/v1/courts
func HandleCourtsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Court handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	courts, err := store.Queries.ListCourts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list courts")
		http.Error(w, "Failed to list courts", http.StatusInternalServerError)
		return
	}

	resp := make([]courtResponse, 0, len(courts))
	for _, court := range courts {
		resp = append(resp, toCourtResponse(court))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write courts response")
	}
}

// PUT /api/v1/courts/{id}
func HandleCourtUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	courtID, ok := courtIDFromPath(w, r)
	if !ok {
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := store.Queries.UpdateCourt(ctx, appdb.UpdateCourtParams{
		ID:           courtID,
		Name:         req.Name,
		CourtType:    req.CourtType,
		PricePerHour: req.PricePerHour,
		Capacity:     req.Capacity,
		SlotMinutes:  req.SlotMinutes,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Court not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to update court")
		http.Error(w, "Failed to update court", http.StatusInternalServerError)
		return
	}

	// Pricing or duration changes make every cached day stale.
	slotCache.InvalidateCourt(ctx, courtID)

	if err := apiutil.WriteJSON(w, http.StatusOK, toCourtResponse(court)); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write court response")
	}
}

// POST /api/v1/courts/{id}/deactivate
func HandleCourtDeactivate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	courtID, ok := courtIDFromPath(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	if err := store.Queries.DeactivateCourt(ctx, courtID); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to deactivate court")
		http.Error(w, "Failed to deactivate court", http.StatusInternalServerError)
		return
	}

	slotCache.InvalidateCourt(ctx, courtID)
	w.WriteHeader(http.StatusNoContent)
}

type operatingHoursRequest struct {
	DayOfWeek int64  `json:"day_of_week" validate:"min=0,max=6"`
	IsOpen    bool   `json:"is_open"`
	OpensAt   string `json:"opens_at" validate:"required_if=IsOpen true,omitempty,len=5"`
	ClosesAt  string `json:"closes_at" validate:"required_if=IsOpen true,omitempty,len=5"`
}

// PUT /api/v1/courts/{id}/hours
func HandleOperatingHoursUpsert(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	courtID, ok := courtIDFromPath(w, r)
	if !ok {
		return
	}

	var req operatingHoursRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	err := store.Queries.UpsertOperatingHours(ctx, appdb.UpsertOperatingHoursParams{
		CourtID:   courtID,
		DayOfWeek: req.DayOfWeek,
		IsOpen:    req.IsOpen,
		OpensAt:   req.OpensAt,
		ClosesAt:  req.ClosesAt,
	})
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to upsert operating hours")
		http.Error(w, "Failed to upsert operating hours", http.StatusInternalServerError)
		return
	}

	slotCache.InvalidateCourt(ctx, courtID)
	w.WriteHeader(http.StatusNoContent)
}

type excludedTimeRequest struct {
	DayOfWeek int64  `json:"day_of_week" validate:"min=0,max=6"`
	Name      string `json:"name" validate:"required"`
	StartsAt  string `json:"starts_at" validate:"required,len=5"`
	EndsAt    string `json:"ends_at" validate:"required,len=5"`
}

// POST /api/v1/courts/{id}/breaks
func HandleExcludedTimeCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	courtID, ok := courtIDFromPath(w, r)
	if !ok {
		return
	}

	var req excludedTimeRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	created, err := store.Queries.AddExcludedTime(ctx, appdb.AddExcludedTimeParams{
		CourtID:   courtID,
		DayOfWeek: req.DayOfWeek,
		Name:      req.Name,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to add excluded time")
		http.Error(w, "Failed to add excluded time", http.StatusInternalServerError)
		return
	}

	slotCache.InvalidateCourt(ctx, courtID)
	if err := apiutil.WriteJSON(w, http.StatusCreated, created); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write excluded time response")
	}
}

func toCourtResponse(court appdb.Court) courtResponse {
	return courtResponse{
		ID:           court.ID,
		Name:         court.Name,
		CourtType:    court.CourtType,
		PricePerHour: court.PricePerHour,
		Capacity:     court.Capacity,
		SlotMinutes:  court.SlotMinutes,
		IsActive:     court.IsActive,
	}
}

// courtIDFromPath extracts the court id from "/api/v1/courts/{id}/...".
func courtIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if store == nil {
		log.Ctx(r.Context()).Error().Msg("Court handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return 0, false
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api / v1 / courts / {id} [/ action]
	if len(parts) < 4 {
		http.Error(w, "Court ID is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid court ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
