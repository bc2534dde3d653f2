package ports

import (
	"context"
	"encoding/json"
	"time"

	"NewsCollector/internal/domain"
)

// ArticleStore persists collected articles and the per-source incremental cursor.
type ArticleStore interface {
	GetLastTimestampOfSource(ctx context.Context, source string) (int64, error)
	SetLastTimestampOfSource(ctx context.Context, source string, timestamp int64) error
	// Has reports whether the link is already stored. An empty source checks globally.
	Has(ctx context.Context, source, link string) (bool, error)
	AddJustCollected(ctx context.Context, source string, item domain.CollectedItem) error
	// GetMaxID returns false when storage holds no articles.
	GetMaxID(ctx context.Context) (int64, bool, error)
	GetAfter(ctx context.Context, boundID int64, limit int) ([]domain.Article, error)
	GetPage(ctx context.Context, boundID int64, page, count int) ([]domain.Article, error)
}

// Transactor runs fn against an ArticleStore whose writes commit together or not at all.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, store ArticleStore) error) error
}

// ConfigStore keeps the raw collector config and the per-source configs.
type ConfigStore interface {
	// GetCollectorConfig returns false when no config was ever stored.
	GetCollectorConfig(ctx context.Context) (json.RawMessage, bool, error)
	SetCollectorConfig(ctx context.Context, raw json.RawMessage) error
	GetNewsSourceConfigs(ctx context.Context) (map[string]domain.SourceConfig, error)
	SetNewsSourceConfig(ctx context.Context, source string, cfg domain.SourceConfig) error
	// ReplaceNewsSourceConfigs drops every stored source config and stores the given set.
	ReplaceNewsSourceConfigs(ctx context.Context, cfgs map[string]domain.SourceConfig) error
	RemoveNewsSourceConfig(ctx context.Context, source string) error
}

// PublisherConfigStore keeps the publisher config document.
type PublisherConfigStore interface {
	GetPublisherConfig(ctx context.Context) (json.RawMessage, bool, error)
	SetPublisherConfig(ctx context.Context, raw json.RawMessage) error
}

// OffsetStore keeps the id of the last article handed to the downstream consumer.
type OffsetStore interface {
	GetOffset(ctx context.Context) (int64, error)
	SetOffset(ctx context.Context, offset int64) error
}

// HeartbeatStore is the durable backend of the collection coordinator.
type HeartbeatStore interface {
	AddRecord(ctx context.Context, record domain.HeartbeatRecord) error
	// LeastAfter returns the instance id of the smallest (order, id) record in the group
	// whose timestamp is strictly greater than cutoff. It returns false when none exists.
	LeastAfter(ctx context.Context, group string, cutoff int64) (string, bool, error)
}

// HeartbeatPruner is implemented by heartbeat stores that can drop stale records.
type HeartbeatPruner interface {
	PruneBefore(ctx context.Context, group string, cutoff int64) error
}

// Coordinator decides whether this instance should run the gated action now.
type Coordinator interface {
	ShouldAct(ctx context.Context) (bool, error)
}

// Notifier delivers a rendered message downstream (Telegram, etc.).
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// ArticleFeed reads collected articles for republishing.
type ArticleFeed interface {
	GetAfter(ctx context.Context, boundID int64, limit int) (domain.ArticlesPage, error)
}

// Scheduler runs a self-rescheduling job.
type Scheduler interface {
	Start(ctx context.Context, job func(ctx context.Context, reschedule func(time.Duration))) error
	Trigger()
	Stop(ctx context.Context) error
}
