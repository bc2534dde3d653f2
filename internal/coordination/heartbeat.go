// Package coordination decides which of several running instances performs a
// scheduled action. Every instance appends heartbeat records to shared storage;
// the instance with the smallest (order, id) among fresh records acts.
// The lease is advisory: during partitions two instances may act at once.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/metrics"
	"NewsCollector/internal/ports"
)

const (
	// DefaultHeartbeatInterval matches the collection retry delay.
	DefaultHeartbeatInterval = 60 * time.Second

	// staleFactor times the interval is how long a record counts as alive.
	staleFactor = 2

	// pruneFactor times the interval is how long records are kept at all.
	pruneFactor = 10
)

// Config tunes one coordinator.
type Config struct {
	Group    string
	Interval time.Duration
	// Settle is the wait before the first decision. Zero means Interval, negative disables it.
	Settle time.Duration
}

// Coordinator implements ports.Coordinator over a HeartbeatStore.
type Coordinator struct {
	store    ports.HeartbeatStore
	group    string
	interval time.Duration
	settle   time.Duration
	id       string
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu          sync.Mutex
	started     bool
	order       int64
	settleUntil time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ ports.Coordinator = (*Coordinator)(nil)

// New creates a coordinator. Heartbeating starts with the first ShouldAct call.
func New(store ports.HeartbeatStore, cfg Config, m *metrics.Metrics, log *slog.Logger) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("heartbeat store is required")
	}
	if cfg.Group == "" {
		return nil, errors.New("coordination group is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHeartbeatInterval
	}
	switch {
	case cfg.Settle == 0:
		cfg.Settle = cfg.Interval
	case cfg.Settle < 0:
		cfg.Settle = 0
	}
	if log == nil {
		log = slog.Default()
	}

	id := uuid.NewString()
	return &Coordinator{
		store:    store,
		group:    cfg.Group,
		interval: cfg.Interval,
		settle:   cfg.Settle,
		id:       id,
		now:      time.Now,
		metrics:  m,
		logger:   log.With("group", cfg.Group, "instance_id", id),
		stopCh:   make(chan struct{}),
	}, nil
}

// ID returns the instance id written into heartbeat records.
func (c *Coordinator) ID() string {
	return c.id
}

// ShouldAct reports whether this instance holds the lease right now. The first
// call registers the instance and waits for the settle interval.
func (c *Coordinator) ShouldAct(ctx context.Context) (bool, error) {
	settleUntil, err := c.ensureStarted(ctx)
	if err != nil {
		return false, err
	}
	if err := c.waitUntil(ctx, settleUntil); err != nil {
		return false, err
	}

	cutoff := c.now().Add(-staleFactor * c.interval).UnixMilli()
	leader, ok, err := c.store.LeastAfter(ctx, c.group, cutoff)
	if err != nil {
		c.metrics.SetLeader(c.group, false)
		return false, fmt.Errorf("query least heartbeat: %w", err)
	}
	if !ok {
		c.metrics.SetLeader(c.group, false)
		return false, domain.ErrNoHeartbeat
	}

	act := leader == c.id
	c.metrics.SetLeader(c.group, act)
	c.logger.Debug("lease checked", "leader_id", leader, "acting", act)
	return act, nil
}

// Close stops heartbeating. Records already written expire on their own.
func (c *Coordinator) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return nil
}

func (c *Coordinator) ensureStarted(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return c.settleUntil, nil
	}

	now := c.now()
	c.order = now.UnixMilli()
	if err := c.beat(ctx); err != nil {
		return time.Time{}, err
	}

	c.started = true
	c.settleUntil = now.Add(c.settle)
	c.wg.Add(1)
	go c.run()

	c.logger.Info("heartbeat started", "order", c.order, "interval", c.interval)
	return c.settleUntil, nil
}

func (c *Coordinator) waitUntil(ctx context.Context, deadline time.Time) error {
	wait := deadline.Sub(c.now())
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.interval)
			if err := c.beat(ctx); err != nil {
				c.logger.Error("heartbeat failed", "error", err)
			}
			c.prune(ctx)
			cancel()
		}
	}
}

func (c *Coordinator) beat(ctx context.Context) error {
	record := domain.HeartbeatRecord{
		Group:      c.group,
		Order:      c.order,
		InstanceID: c.id,
		Timestamp:  c.now().UnixMilli(),
	}
	if err := c.store.AddRecord(ctx, record); err != nil {
		return fmt.Errorf("add heartbeat: %w", err)
	}
	return nil
}

func (c *Coordinator) prune(ctx context.Context) {
	pruner, ok := c.store.(ports.HeartbeatPruner)
	if !ok {
		return
	}
	cutoff := c.now().Add(-pruneFactor * c.interval).UnixMilli()
	if err := pruner.PruneBefore(ctx, c.group, cutoff); err != nil {
		c.logger.Warn("prune heartbeats", "error", err)
	}
}
