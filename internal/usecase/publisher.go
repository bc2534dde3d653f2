package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/metrics"
	"NewsCollector/internal/ports"
)

const (
	publisherJob        = "publisher"
	maxMessageTextRunes = 1000
	messageTimeLayout   = "02.01.2006 15:04:05"
	// DefaultSendInterval spaces consecutive messages to stay under bot rate limits.
	DefaultSendInterval = time.Second
)

// PublishServiceDeps wires the collaborators of the publish cycle.
type PublishServiceDeps struct {
	Configs      ports.PublisherConfigStore
	Offsets      ports.OffsetStore
	Feed         ports.ArticleFeed
	Notifier     ports.Notifier
	Coordinator  ports.Coordinator
	RetryDelay   time.Duration
	SendInterval time.Duration
	Location     *time.Location
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// PublishService forwards newly collected articles downstream.
type PublishService struct {
	configs      ports.PublisherConfigStore
	offsets      ports.OffsetStore
	feed         ports.ArticleFeed
	notifier     ports.Notifier
	coordinator  ports.Coordinator
	retryDelay   time.Duration
	sendInterval time.Duration
	location     *time.Location
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewPublishService constructs the publisher. A negative send interval disables the pause.
func NewPublishService(deps PublishServiceDeps) *PublishService {
	if deps.RetryDelay <= 0 {
		deps.RetryDelay = DefaultRetryDelay
	}
	if deps.SendInterval == 0 {
		deps.SendInterval = DefaultSendInterval
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &PublishService{
		configs:      deps.Configs,
		offsets:      deps.Offsets,
		feed:         deps.Feed,
		notifier:     deps.Notifier,
		coordinator:  deps.Coordinator,
		retryDelay:   deps.RetryDelay,
		sendInterval: deps.SendInterval,
		location:     deps.Location,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
}

// Cycle is the scheduler job of the publisher.
func (p *PublishService) Cycle(ctx context.Context, reschedule func(time.Duration)) {
	raw, ok, err := p.configs.GetPublisherConfig(ctx)
	if err != nil || !ok {
		if err != nil {
			p.logger.Error("load publisher config", "error", err)
		}
		p.metrics.ObserveCycle(publisherJob, metrics.OutcomeNoConfig)
		reschedule(p.retryDelay)
		return
	}
	cfg, err := domain.ParsePublisherConfig(raw)
	if err != nil {
		p.logger.Error("publisher config is malformed", "error", err)
		p.metrics.ObserveCycle(publisherJob, metrics.OutcomeFailed)
		reschedule(p.retryDelay)
		return
	}
	reschedule(cfg.RateDuration())

	if p.coordinator != nil {
		act, err := p.coordinator.ShouldAct(ctx)
		if err != nil || !act {
			if err != nil && !errors.Is(err, domain.ErrNoHeartbeat) {
				p.logger.Error("coordinator check", "error", err)
			}
			p.logger.Info("not publishing, another instance holds the lease")
			p.metrics.ObserveCycle(publisherJob, metrics.OutcomeSkipped)
			return
		}
	}

	sent, err := p.Publish(ctx, cfg.Limit)
	if err != nil {
		p.logger.Error("publish cycle", "sent", sent, "error", err)
		p.metrics.ObserveCycle(publisherJob, metrics.OutcomeFailed)
		return
	}
	p.metrics.ObserveCycle(publisherJob, metrics.OutcomeDone)
}

// Publish sends up to limit articles after the stored offset. The offset moves
// past every article that was delivered, so a failure resends only the rest.
func (p *PublishService) Publish(ctx context.Context, limit int) (int, error) {
	offset, err := p.offsets.GetOffset(ctx)
	if err != nil {
		return 0, fmt.Errorf("load offset: %w", err)
	}

	page, err := p.feed.GetAfter(ctx, offset, limit)
	if err != nil {
		return 0, fmt.Errorf("load articles after %d: %w", offset, err)
	}

	p.logger.Info("publishing articles", "offset", offset, "count", len(page.Articles))

	sent := 0
	for i, article := range page.Articles {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return sent, p.commit(ctx, offset, err)
			}
		}

		err := p.notifier.SendMessage(ctx, FormatMessage(article, p.location))
		p.metrics.ObservePublish(err)
		if err != nil {
			return sent, p.commit(ctx, offset, fmt.Errorf("send article %d: %w", article.ID, err))
		}
		offset = article.ID
		sent++
	}

	if len(page.Articles) == 0 && page.BoundID > offset {
		offset = page.BoundID
	}
	return sent, p.commit(ctx, offset, nil)
}

func (p *PublishService) commit(ctx context.Context, offset int64, cause error) error {
	if err := p.offsets.SetOffset(ctx, offset); err != nil {
		return errors.Join(cause, fmt.Errorf("store offset %d: %w", offset, err))
	}
	return cause
}

func (p *PublishService) pause(ctx context.Context) error {
	if p.sendInterval <= 0 {
		return nil
	}
	timer := time.NewTimer(p.sendInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FormatMessage renders an article as message text: the text cut to 1000 runes
// and ending with "...", the link, then the publication time in loc.
func FormatMessage(article domain.Article, loc *time.Location) string {
	text := []rune(article.Text)
	if len(text) > maxMessageTextRunes {
		text = text[:maxMessageTextRunes]
	}

	body := string(text)
	dots := len(body) - len(strings.TrimRight(body, "."))
	if dots < 3 {
		body += strings.Repeat(".", 3-dots)
	}

	if loc == nil {
		loc = time.UTC
	}
	published := time.Unix(article.Timestamp, 0).In(loc).Format(messageTimeLayout)

	return body + "\n" + article.Link + "\n" + published
}
