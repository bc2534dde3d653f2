package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/metrics"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/source"
)

// DedupScope selects whether a link is known per source or across all sources.
type DedupScope string

const (
	DedupBySource DedupScope = "source"
	DedupGlobal   DedupScope = "global"
)

// CollectOptions carries the per-cycle settings of one source run.
type CollectOptions struct {
	Keywords          *KeywordMatcher
	RequiresFiltering bool
	// MaxArticles caps kept items per run; 0 means unlimited.
	MaxArticles int
}

// Collector drives a source across pages and stores what is new since the last run.
type Collector struct {
	store   ports.ArticleStore
	tx      ports.Transactor
	scope   DedupScope
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCollector wires storage. An empty scope defaults to per-source dedup.
func NewCollector(store ports.ArticleStore, tx ports.Transactor, scope DedupScope, m *metrics.Metrics, log *slog.Logger) *Collector {
	if scope == "" {
		scope = DedupBySource
	}
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		store:   store,
		tx:      tx,
		scope:   scope,
		metrics: m,
		logger:  log,
	}
}

// Collect runs one incremental crawl of src and returns the number of stored articles.
// Nothing is written for the source when an error is returned.
func (c *Collector) Collect(ctx context.Context, name string, src source.Source, opts CollectOptions) (int, error) {
	started := time.Now()
	stored, err := c.collect(ctx, name, src, opts)
	c.metrics.ObserveSource(name, stored, time.Since(started), err)
	return stored, err
}

func (c *Collector) collect(ctx context.Context, name string, src source.Source, opts CollectOptions) (int, error) {
	oldLast, err := c.store.GetLastTimestampOfSource(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("load last timestamp: %w", err)
	}

	var (
		newLast  int64
		seenAny  bool
		kept     []domain.CollectedItem
		keptLink = map[string]struct{}{}
		cur      = source.Start()
	)

crawl:
	for {
		page, err := src.NextPage(ctx, cur)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", cur.Page, err)
		}
		if len(page.Items) == 0 {
			break
		}
		if !seenAny {
			seenAny = true
			newLast = page.Items[0].Timestamp
		}

		for _, item := range page.Items {
			if item.Timestamp < oldLast {
				break
			}
			if opts.RequiresFiltering && !opts.Keywords.Match(item.Title, item.Text) {
				continue
			}
			if _, dup := keptLink[item.Link]; dup {
				continue
			}
			known, err := c.store.Has(ctx, c.dedupSource(name), item.Link)
			if err != nil {
				return 0, fmt.Errorf("check link %s: %w", item.Link, err)
			}
			if known {
				continue
			}

			keptLink[item.Link] = struct{}{}
			kept = append(kept, item)
			if opts.MaxArticles > 0 && len(kept) >= opts.MaxArticles {
				break crawl
			}
		}

		if page.Items[len(page.Items)-1].Timestamp < oldLast || page.Next.Done {
			break
		}
		cur = page.Next
	}

	if !seenAny {
		c.logger.Debug("source returned no items", "source", name)
		return 0, nil
	}

	err = c.tx.WithinTransaction(ctx, func(ctx context.Context, store ports.ArticleStore) error {
		for i := len(kept) - 1; i >= 0; i-- {
			if err := store.AddJustCollected(ctx, name, kept[i]); err != nil {
				return fmt.Errorf("add %s: %w", kept[i].Link, err)
			}
		}
		return store.SetLastTimestampOfSource(ctx, name, newLast)
	})
	if err != nil {
		return 0, fmt.Errorf("persist source %s: %w", name, err)
	}

	c.logger.Info("source collected",
		"source", name,
		"stored", len(kept),
		"last_timestamp", newLast,
	)
	return len(kept), nil
}

func (c *Collector) dedupSource(name string) string {
	if c.scope == DedupGlobal {
		return ""
	}
	return name
}
