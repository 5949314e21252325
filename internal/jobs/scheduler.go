// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// CatalogRefresher reloads the reward catalog cache.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler evaluating schedules in loc.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: time.Minute,
	}
}

// AddCatalogRefresh registers a catalog cache refresh on schedule.
// An empty schedule registers nothing.
func (s *Scheduler) AddCatalogRefresh(ctx context.Context, schedule string, r CatalogRefresher) error {
	if schedule == "" {
		return nil
	}
	_, err := s.cron.AddFunc(schedule, func() {
		s.refreshCatalog(ctx, r)
	})
	if err != nil {
		return errors.Wrapf(err, "invalid catalog refresh schedule %q", schedule)
	}
	log.Info().Str("schedule", schedule).Msg("Catalog refresh job registered")
	return nil
}

func (s *Scheduler) refreshCatalog(ctx context.Context, r CatalogRefresher) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := r.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("[CRON] Catalog refresh failed")
		return
	}
	log.Debug().Int("entries", n).Msg("[CRON] Catalog refreshed")
}

// Start runs the registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Job scheduler started")
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Job scheduler stopped")
}
