// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/service-marketplace-api/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TokenPurger removes expired action tokens
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner with the application's jobs
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the token purge on spec (standard cron syntax or
// descriptors such as "@every 15m").
func NewScheduler(spec string, purger TokenPurger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(spec, func() { PurgeTokens(purger) }); err != nil {
		return nil, fmt.Errorf("invalid token purge schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// PurgeTokens runs one purge pass
func PurgeTokens(purger TokenPurger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := purger.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired action tokens")
		return
	}
	if n > 0 {
		metrics.ActionTokensPurged.Add(float64(n))
		log.Info().Int64("purged", n).Msg("Purged expired action tokens")
	}
}
