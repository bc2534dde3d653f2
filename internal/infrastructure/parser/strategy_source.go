package parser

import (
	"fmt"
	"log/slog"
	"net/http"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

// Source type tags accepted in stored source configs.
const (
	TypeRSS      = "RSS"
	TypeHTML     = "HTML"
	TypeTelegram = "Telegram"
	TypeArxiv    = "Arxiv"
)

// NewRegistry registers every built-in adapter against one shared fetcher.
func NewRegistry(client *http.Client, userAgent string, log *slog.Logger) *source.Registry {
	fetcher := NewFetcher(client, userAgent)
	reg := source.NewRegistry()
	reg.Register(TypeRSS, RSSFactory(fetcher, log))
	reg.Register(TypeHTML, HTMLFactory(fetcher, log))
	reg.Register(TypeTelegram, TelegramFactory(fetcher, log))
	reg.Register(TypeArxiv, ArxivFactory(fetcher, log))
	return reg
}

// StrategySource resolves stored source configs into runnable adapters.
type StrategySource struct {
	registry *source.Registry
	logger   *slog.Logger
}

// NewStrategySource wires the adapter registry.
func NewStrategySource(reg *source.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// Build turns one stored config into a source.
func (s *StrategySource) Build(name string, cfg domain.SourceConfig) (source.Source, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("source registry is not configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}

	src, err := s.registry.Build(cfg.Type, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	s.debug("source built", "source", name, "type", cfg.Type)
	return src, nil
}

// Check builds the config and discards the result.
func (s *StrategySource) Check(name string, cfg domain.SourceConfig) error {
	_, err := s.Build(name, cfg)
	return err
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
