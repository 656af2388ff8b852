// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/quickcourt/quickcourt/internal/api"
	"github.com/quickcourt/quickcourt/internal/api/availability"
	"github.com/quickcourt/quickcourt/internal/api/bookings"
	"github.com/quickcourt/quickcourt/internal/api/courts"
	"github.com/quickcourt/quickcourt/internal/booking"
	"github.com/quickcourt/quickcourt/internal/cache"
	"github.com/quickcourt/quickcourt/internal/config"
	"github.com/quickcourt/quickcourt/internal/db"
	"github.com/quickcourt/quickcourt/internal/payment"
	"github.com/quickcourt/quickcourt/internal/ratelimit"
)

func newServer(cfg *config.Config, database *db.DB, slotCache *cache.AvailabilityCache, gateway payment.Gateway, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	loc := cfg.Location()

	// Availability for the affected court/date is refreshed after every
	// booking outcome by invalidating its cache entry; the next read
	// recomputes from the authoritative store.
	refresh := func(ctx context.Context, courtID int64, date string) {
		slotCache.Invalidate(ctx, courtID, date)
	}
	orchestrator := booking.NewOrchestrator(database, gateway, loc, refresh)
	selections := bookings.NewSelectionBuilder(database, slotCache, loc, cfg.Booking.PopularityThreshold)

	availability.InitHandlers(database, slotCache, loc, cfg.Booking.PopularityThreshold)
	bookings.InitHandlers(database, orchestrator, selections, limiter)
	courts.InitHandlers(database, slotCache)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // confirm sequences multiple payments
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability
	mux.HandleFunc("GET /api/v1/availability", availability.HandleAvailability)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingConfirm)

	// Court management
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtsList)
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCourtCreate)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courts.HandleCourtUpdate)
	mux.HandleFunc("POST /api/v1/courts/{id}/deactivate", courts.HandleCourtDeactivate)
	mux.HandleFunc("PUT /api/v1/courts/{id}/hours", courts.HandleOperatingHoursUpsert)
	mux.HandleFunc("POST /api/v1/courts/{id}/breaks", courts.HandleExcludedTimeCreate)
}
