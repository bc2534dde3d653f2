package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"NewsCollector/internal/ports"
)

// TimerScheduler runs one job on a single goroutine with one pending deadline.
// The job moves the deadline through reschedule; runs never overlap.
type TimerScheduler struct {
	name   string
	logger *slog.Logger

	mu      sync.Mutex
	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

var _ ports.Scheduler = (*TimerScheduler)(nil)

// NewTimerScheduler builds a stopped scheduler. The first run happens right after Start.
func NewTimerScheduler(name string, log *slog.Logger) *TimerScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &TimerScheduler{
		name:    name,
		logger:  log.With("scheduler", name),
		trigger: make(chan struct{}, 1),
	}
}

// Start launches the loop. It fails when the scheduler is already running.
func (s *TimerScheduler) Start(ctx context.Context, job func(ctx context.Context, reschedule func(time.Duration))) error {
	if job == nil {
		return errors.New("scheduler job is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("scheduler %s already started", s.name)
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, job, s.stop, s.done)
	return nil
}

// Trigger requests an immediate run. Requests made while a run is in flight
// collapse into one run after it.
func (s *TimerScheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the loop and waits for an in-flight run up to ctx.
func (s *TimerScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TimerScheduler) loop(ctx context.Context, job func(context.Context, func(time.Duration)), stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
		case <-s.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		next, scheduled := s.runOnce(ctx, job)
		if !scheduled {
			s.logger.Warn("job did not reschedule itself, waiting for trigger")
			continue
		}
		// an overrunning job gets an immediate next run
		timer.Reset(max(0, time.Until(next)))
	}
}

// runOnce returns the deadline of the next run. The deadline counts from the
// moment the job calls reschedule, not from the moment it returns.
func (s *TimerScheduler) runOnce(ctx context.Context, job func(context.Context, func(time.Duration))) (next time.Time, scheduled bool) {
	reschedule := func(d time.Duration) {
		if d < 0 {
			d = 0
		}
		next, scheduled = time.Now().Add(d), true
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	job(ctx, reschedule)
	return next, scheduled
}
