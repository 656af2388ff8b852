// Package scheduler owns the process-wide gocron instance and the
// recurring maintenance jobs of the booking engine.
package scheduler

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
)

var (
	initOnce sync.Once
	initErr  error
	stopOnce sync.Once
	stopErr  error

	mu    sync.Mutex
	sched gocron.Scheduler
)

// Init creates the scheduler. A job panic is logged and swallowed so one
// bad run never takes the process down.
func Init() error {
	initOnce.Do(func() {
		s, err := gocron.NewScheduler(
			gocron.WithGlobalJobOptions(
				gocron.WithEventListeners(
					gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recovered any) {
						log.Error().
							Str("job_id", jobID.String()).
							Str("job_name", jobName).
							Interface("panic", recovered).
							Msg("Scheduler job panicked")
					}),
				),
			),
		)
		if err != nil {
			initErr = err
			return
		}
		mu.Lock()
		sched = s
		mu.Unlock()
		log.Info().Msg("Scheduler initialized")
	})
	return initErr
}

// Start begins running registered jobs.
func Start() error {
	mu.Lock()
	defer mu.Unlock()
	if sched == nil {
		return ErrNotInitialized
	}
	sched.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
// Safe to call more than once.
func Stop() error {
	mu.Lock()
	defer mu.Unlock()
	if sched == nil {
		return ErrNotInitialized
	}
	stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		stopErr = sched.Shutdown()
	})
	return stopErr
}

// AddJob registers a cron-triggered job.
func AddJob(name, cronExpr string, task func()) (gocron.Job, error) {
	mu.Lock()
	defer mu.Unlock()
	if sched == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()

	job, err := sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			jobLogger.Debug().Msg("Scheduler job started")
			task()
			jobLogger.Debug().Msg("Scheduler job completed")
		}),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}
