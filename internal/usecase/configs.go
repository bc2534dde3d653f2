package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// SourceChecker validates a source config by building its adapter.
type SourceChecker interface {
	Check(name string, cfg domain.SourceConfig) error
}

// ConfigService manages the collector, source and publisher configs.
type ConfigService struct {
	configs   ports.ConfigStore
	publisher ports.PublisherConfigStore
	checker   SourceChecker
	trigger   func()
	logger    *slog.Logger
}

// NewConfigService wires config storage. trigger, when set, starts an immediate
// collection after the first collector config is stored.
func NewConfigService(configs ports.ConfigStore, publisher ports.PublisherConfigStore, checker SourceChecker, trigger func(), log *slog.Logger) *ConfigService {
	if log == nil {
		log = slog.Default()
	}
	return &ConfigService{
		configs:   configs,
		publisher: publisher,
		checker:   checker,
		trigger:   trigger,
		logger:    log,
	}
}

// GetCollectorConfig returns the stored document; false when none exists.
func (s *ConfigService) GetCollectorConfig(ctx context.Context) (json.RawMessage, bool, error) {
	return s.configs.GetCollectorConfig(ctx)
}

// SetCollectorConfig validates and stores the collector config.
func (s *ConfigService) SetCollectorConfig(ctx context.Context, raw json.RawMessage) error {
	if _, err := domain.ParseCollectorConfig(raw); err != nil {
		return err
	}

	_, existed, err := s.configs.GetCollectorConfig(ctx)
	if err != nil {
		return fmt.Errorf("load collector config: %w", err)
	}
	if err := s.configs.SetCollectorConfig(ctx, raw); err != nil {
		return fmt.Errorf("store collector config: %w", err)
	}

	if !existed && s.trigger != nil {
		s.logger.Info("first collector config stored, triggering collection")
		s.trigger()
	}
	return nil
}

// GetSourceConfigs returns every stored source config by name.
func (s *ConfigService) GetSourceConfigs(ctx context.Context) (map[string]domain.SourceConfig, error) {
	return s.configs.GetNewsSourceConfigs(ctx)
}

// SetSourceConfigs checks every config before storing any. With replaceAll the
// stored set becomes exactly cfgs.
func (s *ConfigService) SetSourceConfigs(ctx context.Context, cfgs map[string]domain.SourceConfig, replaceAll bool) error {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checker.Check(name, cfgs[name]); err != nil {
			return err
		}
	}

	if replaceAll {
		if err := s.configs.ReplaceNewsSourceConfigs(ctx, cfgs); err != nil {
			return fmt.Errorf("replace source configs: %w", err)
		}
		return nil
	}

	for _, name := range names {
		if err := s.configs.SetNewsSourceConfig(ctx, name, cfgs[name]); err != nil {
			return fmt.Errorf("store source %s: %w", name, err)
		}
	}
	return nil
}

// RemoveSourceConfigs deletes the named sources; unknown names are ignored.
func (s *ConfigService) RemoveSourceConfigs(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := s.configs.RemoveNewsSourceConfig(ctx, name); err != nil {
			return fmt.Errorf("remove source %s: %w", name, err)
		}
	}
	return nil
}

// GetPublisherConfig returns the stored publisher document; false when none exists.
func (s *ConfigService) GetPublisherConfig(ctx context.Context) (json.RawMessage, bool, error) {
	if s.publisher == nil {
		return nil, false, nil
	}
	return s.publisher.GetPublisherConfig(ctx)
}

// SetPublisherConfig validates and stores the publisher config.
func (s *ConfigService) SetPublisherConfig(ctx context.Context, raw json.RawMessage) error {
	if _, err := domain.ParsePublisherConfig(raw); err != nil {
		return err
	}
	if s.publisher == nil {
		return fmt.Errorf("publisher config storage is not configured")
	}
	return s.publisher.SetPublisherConfig(ctx, raw)
}
