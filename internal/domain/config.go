package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// SourceConfig describes one configured news source, keyed by source name in storage.
type SourceConfig struct {
	Type              string          `json:"type" validate:"required"`
	Config            json.RawMessage `json:"config" validate:"required"`
	RequiresFiltering bool            `json:"requiresFiltering"`
}

// CollectorConfig is the single global collection setting.
type CollectorConfig struct {
	Rate                 int64    `json:"rate" validate:"required,gt=0"`
	MaxArticlesPerSource int      `json:"maxArticlesPerSource,omitempty" validate:"gte=0"`
	Keywords             []string `json:"keywords" validate:"required,dive,required"`
}

// RateDuration converts the rate in seconds to a duration.
func (c CollectorConfig) RateDuration() time.Duration {
	return time.Duration(c.Rate) * time.Second
}

// PublisherConfig drives the publish cycle.
type PublisherConfig struct {
	Rate  int64 `json:"rate" validate:"required,gt=0"`
	Limit int   `json:"limit" validate:"required,gt=0"`
}

// RateDuration converts the rate in seconds to a duration.
func (c PublisherConfig) RateDuration() time.Duration {
	return time.Duration(c.Rate) * time.Second
}

// HeartbeatRecord is one liveness entry written by a coordinating instance.
type HeartbeatRecord struct {
	Group      string `db:"group_name"`
	Order      int64  `db:"ord"`
	InstanceID string `db:"instance_id"`
	Timestamp  int64  `db:"ts"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DecodeConfig strictly decodes a JSON document into dst and validates it.
// Every failure wraps ErrConfigFormat.
func DecodeConfig(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFormat, err)
	}
	return ValidateStruct(dst)
}

// ValidateStruct runs the `validate` tags of v. Failures wrap ErrConfigFormat.
func ValidateStruct(v any) error {
	if err := structValidator().Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFormat, err)
	}
	return nil
}

// ParseCollectorConfig decodes and validates a collector config document.
func ParseCollectorConfig(raw []byte) (CollectorConfig, error) {
	var cfg CollectorConfig
	if err := DecodeConfig(raw, &cfg); err != nil {
		return CollectorConfig{}, err
	}
	return cfg, nil
}

// ParsePublisherConfig decodes and validates a publisher config document.
func ParsePublisherConfig(raw []byte) (PublisherConfig, error) {
	var cfg PublisherConfig
	if err := DecodeConfig(raw, &cfg); err != nil {
		return PublisherConfig{}, err
	}
	return cfg, nil
}

// Validate checks the structural shape of a source config without building its adapter.
func (s SourceConfig) Validate() error {
	if err := ValidateStruct(s); err != nil {
		return err
	}
	if !json.Valid(s.Config) {
		return fmt.Errorf("%w: source config payload is not valid json", ErrConfigFormat)
	}
	return nil
}

// ParseSourceConfigs decodes a name -> source config document and validates every entry.
func ParseSourceConfigs(raw []byte) (map[string]SourceConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var cfgs map[string]SourceConfig
	if err := dec.Decode(&cfgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigFormat, err)
	}
	for name, cfg := range cfgs {
		if name == "" {
			return nil, fmt.Errorf("%w: source name is empty", ErrConfigFormat)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
	}
	if cfgs == nil {
		cfgs = map[string]SourceConfig{}
	}
	return cfgs, nil
}
