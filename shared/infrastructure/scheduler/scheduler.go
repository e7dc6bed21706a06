// Package scheduler runs a job once at start and then on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"mavencrawler/shared/application/ports"
)

// Job is one scheduled pass. An error is logged and the schedule continues.
type Job func(ctx context.Context) error

type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	logger   ports.Logger
	metrics  ports.Metrics
}

func New(name string, interval time.Duration, job Job, obs ports.Observability) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler %s: interval must be positive, got %s", name, interval)
	}
	logger, metrics, err := obs.ComponentsScoped("scheduler." + name)
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Run blocks until ctx is cancelled. Passes never overlap: a pass that takes
// longer than the interval delays the next tick instead of stacking up.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "job", s.name, "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped", "job", s.name)
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	startTime := time.Now()
	err := s.job(ctx)
	s.metrics.RecordHistogram("scheduler.run.duration_ms",
		float64(time.Since(startTime).Milliseconds()),
		map[string]string{"job": s.name})

	if err != nil {
		s.logger.Error("Scheduled run failed", "job", s.name, "error", err)
		s.metrics.IncrementCounter("scheduler.run.failure", map[string]string{"job": s.name})
		return
	}
	s.metrics.IncrementCounter("scheduler.run.success", map[string]string{"job": s.name})
}
