package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/database"
)

// Runner runs fn inside its own database scope and tears it down afterwards.
type Runner interface {
	Run(parent context.Context, fn func(ctx context.Context) error) error
}

// Janitor periodically deletes expired sessions
type Janitor struct {
	runner   Runner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	now      func() time.Time
}

// New creates a janitor that purges on the given cron schedule
func New(runner Runner, schedule string) *Janitor {
	return &Janitor{
		runner:   runner,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules the purge job. An empty schedule leaves the janitor stopped.
func (j *Janitor) Start() (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return true, nil
	}
	if j.schedule == "" {
		return false, nil
	}

	if _, err := j.cron.AddFunc(j.schedule, j.scheduledRun); err != nil {
		return false, fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.running = true

	log.Info().Str("schedule", j.schedule).Msg("Session janitor started")
	return true, nil
}

// Stop stops the scheduler and waits for a running purge to finish
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}

	ctx := j.cron.Stop()
	<-ctx.Done()

	j.running = false
	log.Info().Msg("Session janitor stopped")
}

// Purge deletes expired sessions once and returns how many were removed
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	var removed int64
	err := j.runner.Run(ctx, func(ctx context.Context) error {
		conn, err := database.Get(ctx)
		if err != nil {
			return err
		}
		removed, err = conn.DeleteExpiredSessions(ctx, j.now())
		return err
	})
	return removed, err
}

func (j *Janitor) scheduledRun() {
	removed, err := j.Purge(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired sessions")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Purged expired sessions")
	} else {
		log.Trace().Msg("No expired sessions to purge")
	}
}
