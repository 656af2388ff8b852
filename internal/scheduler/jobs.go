package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickcourt/quickcourt/internal/config"
	"github.com/quickcourt/quickcourt/internal/db"
)

const jobTimeout = 2 * time.Minute

// RegisterBookingJobs registers the recurring maintenance tasks of the
// booking engine: slot popularity recomputation and pending-booking expiry.
func RegisterBookingJobs(database *db.DB, cfg *config.Config) error {
	if database == nil {
		return fmt.Errorf("booking jobs require database")
	}

	if err := registerPopularityJob(database, cfg); err != nil {
		return err
	}
	return registerExpiryJob(database, cfg)
}

func registerPopularityJob(database *db.DB, cfg *config.Config) error {
	jobName := "slot_popularity_recompute"
	cronExpr := cfg.Booking.PopularityCron
	windowDays := cfg.Booking.PopularityWindowDays

	jobLogger := log.With().
		Str("component", "slot_popularity_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		now := time.Now().UTC()
		windowStart := now.AddDate(0, 0, -windowDays).Format("2006-01-02")
		windowEnd := now.Format("2006-01-02")
		if err := database.Queries.RecomputeSlotPopularity(ctx, windowStart, windowEnd); err != nil {
			jobLogger.Error().Err(err).Msg("Failed to recompute slot popularity")
			return
		}
		jobLogger.Info().
			Str("window_start", windowStart).
			Str("window_end", windowEnd).
			Msg("Slot popularity recomputed")
	})
	if err != nil {
		return fmt.Errorf("register popularity job: %w", err)
	}
	return nil
}

func registerExpiryJob(database *db.DB, cfg *config.Config) error {
	jobName := "pending_booking_expiry"
	cronExpr := cfg.Booking.ExpiryCron
	ttl := time.Duration(cfg.Booking.PendingTTLMinutes) * time.Minute

	jobLogger := log.With().
		Str("component", "pending_expiry_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		cutoff := time.Now().Add(-ttl)
		expired, err := database.Queries.ExpirePendingBookings(ctx, cutoff)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to expire pending bookings")
			return
		}
		if expired > 0 {
			jobLogger.Info().Int64("expired", expired).Msg("Expired stale pending bookings")
		}
	})
	if err != nil {
		return fmt.Errorf("register expiry job: %w", err)
	}
	return nil
}
