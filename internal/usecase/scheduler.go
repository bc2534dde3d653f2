package usecase

import (
	"context"
	"time"

	"NewsCollector/internal/ports"
)

// Job is a self-rescheduling unit of work.
type Job func(ctx context.Context, reschedule func(time.Duration))

// Scheduler binds a job to a scheduling driver.
type Scheduler struct {
	driver ports.Scheduler
	job    Job
}

// NewScheduler returns a helper to start/stop the recurring job.
func NewScheduler(driver ports.Scheduler, job Job) *Scheduler {
	return &Scheduler{driver: driver, job: job}
}

// Start registers the job with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}
	return s.driver.Start(ctx, s.job)
}

// Trigger asks for an immediate run.
func (s *Scheduler) Trigger() {
	if s.driver != nil {
		s.driver.Trigger()
	}
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
