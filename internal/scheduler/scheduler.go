// Package scheduler triggers recurring jobs on a cron schedule.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner with structured logging around each job.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a stopped scheduler using the standard 5-field cron syntax.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), logger: logger}
}

// Schedule registers a named job on the given cron spec. Jobs do not overlap
// with themselves only if the job itself guards against it; the BLS update
// cadence (monthly) makes overlap a non-issue in practice.
func (s *Scheduler) Schedule(spec, name string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("scheduled job starting", "job", name)
		job()
		s.logger.Info("scheduled job finished", "job", name)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and blocks until any in-flight job completes.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
