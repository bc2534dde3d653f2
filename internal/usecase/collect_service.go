package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/metrics"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/source"
)

// DefaultRetryDelay is used while no usable config is stored.
const DefaultRetryDelay = 60 * time.Second

const collectorJob = "collector"

// SourceBuilder turns a stored source config into a runnable source.
type SourceBuilder interface {
	Build(name string, cfg domain.SourceConfig) (source.Source, error)
}

// CollectServiceDeps wires the collaborators of the collection cycle.
type CollectServiceDeps struct {
	Configs     ports.ConfigStore
	Sources     SourceBuilder
	Collector   *Collector
	Coordinator ports.Coordinator
	RetryDelay  time.Duration
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// CollectService runs collection cycles.
type CollectService struct {
	configs     ports.ConfigStore
	sources     SourceBuilder
	collector   *Collector
	coordinator ports.Coordinator
	retryDelay  time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewCollectService constructs the orchestrator. A nil coordinator always acts.
func NewCollectService(deps CollectServiceDeps) *CollectService {
	if deps.RetryDelay <= 0 {
		deps.RetryDelay = DefaultRetryDelay
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &CollectService{
		configs:     deps.Configs,
		sources:     deps.Sources,
		collector:   deps.Collector,
		coordinator: deps.Coordinator,
		retryDelay:  deps.RetryDelay,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Cycle is the scheduler job. The next run is scheduled before any source is touched.
func (s *CollectService) Cycle(ctx context.Context, reschedule func(time.Duration)) {
	raw, ok, err := s.configs.GetCollectorConfig(ctx)
	if err != nil {
		s.logger.Error("load collector config", "error", err)
		s.metrics.ObserveCycle(collectorJob, metrics.OutcomeFailed)
		reschedule(s.retryDelay)
		return
	}
	if !ok {
		s.logger.Info("collector config is absent, retrying later", "retry_in", s.retryDelay)
		s.metrics.ObserveCycle(collectorJob, metrics.OutcomeNoConfig)
		reschedule(s.retryDelay)
		return
	}

	cfg, err := domain.ParseCollectorConfig(raw)
	if err != nil {
		s.logger.Error("collector config is malformed", "error", err, "retry_in", s.retryDelay)
		s.metrics.ObserveCycle(collectorJob, metrics.OutcomeFailed)
		reschedule(s.retryDelay)
		return
	}
	reschedule(cfg.RateDuration())

	if !s.shouldAct(ctx) {
		s.metrics.ObserveCycle(collectorJob, metrics.OutcomeSkipped)
		return
	}

	if err := s.collectAll(ctx, cfg); err != nil {
		s.logger.Error("collect cycle", "error", err)
		s.metrics.ObserveCycle(collectorJob, metrics.OutcomeFailed)
		return
	}
	s.metrics.ObserveCycle(collectorJob, metrics.OutcomeDone)
}

func (s *CollectService) shouldAct(ctx context.Context) bool {
	if s.coordinator == nil {
		return true
	}
	act, err := s.coordinator.ShouldAct(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoHeartbeat) {
			s.logger.Warn("no fresh heartbeat, skipping cycle")
		} else {
			s.logger.Error("coordinator check", "error", err)
		}
		return false
	}
	if !act {
		s.logger.Debug("another instance holds the collector lease")
	}
	return act
}

func (s *CollectService) collectAll(ctx context.Context, cfg domain.CollectorConfig) error {
	configs, err := s.configs.GetNewsSourceConfigs(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	keywords := NewKeywordMatcher(cfg.Keywords)
	total := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcCfg := configs[name]

		src, err := s.sources.Build(name, srcCfg)
		if err != nil {
			s.logger.Error("build source", "source", name, "error", err)
			s.metrics.ObserveSource(name, 0, 0, err)
			continue
		}

		stored, err := s.collector.Collect(ctx, name, src, CollectOptions{
			Keywords:          keywords,
			RequiresFiltering: srcCfg.RequiresFiltering,
			MaxArticles:       cfg.MaxArticlesPerSource,
		})
		if err != nil {
			s.logger.Error("collect source", "source", name, "error", err)
			continue
		}
		total += stored
	}

	s.logger.Info("collect cycle finished", "sources", len(names), "stored", total)
	return nil
}
