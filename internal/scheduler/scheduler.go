// Package scheduler runs a job on a fixed interval until its context is
// cancelled. It backs the daemon mode of the CLI.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/apex/log"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = time.Hour

// maxStartJitter bounds the random delay before the first pass, spreading
// API load when many daemons start at once. Variable so tests can shorten it.
var maxStartJitter = 30 * time.Second

// startJitter picks a random delay in [0, maxStartJitter).
func startJitter() time.Duration {
	if maxStartJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(maxStartJitter)))
}

// Job is a single scheduled pass. A returned error is logged; it never stops
// the schedule.
type Job func(ctx context.Context) error

// Scheduler triggers a Job every interval.
type Scheduler struct {
	interval   time.Duration
	runOnStart bool
	job        Job
}

// New builds a Scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(interval time.Duration, runOnStart bool, job Job) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval:   interval,
		runOnStart: runOnStart,
		job:        job,
	}
}

// Run blocks, executing the job on each tick, until ctx is cancelled. It
// returns the context's error.
func (s *Scheduler) Run(ctx context.Context) error {
	log.WithField("interval", s.interval.String()).Info("scheduler started")

	if jitter := startJitter(); jitter > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter):
		}
	}

	if s.runOnStart {
		s.execute(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		log.WithError(err).Error("scheduled pass failed")
		return
	}
	log.WithField("duration", time.Since(start).Round(time.Millisecond).String()).
		Info("scheduled pass complete")
}
