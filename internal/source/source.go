// Package source defines the news source contract shared by every adapter.
package source

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"NewsCollector/internal/domain"
)

// Cursor is the explicit pagination state threaded through NextPage calls.
type Cursor struct {
	// Page is 1-based and grows by one per fetched page.
	Page int
	// URL is set by sources that follow next-page links.
	URL string
	// Date is set by sources paged by day.
	Date time.Time
	// Done reports that the source has no more pages.
	Done bool
}

// Start returns the cursor for the first page.
func Start() Cursor {
	return Cursor{Page: 1}
}

// Advance returns the cursor for the page after c.
func (c Cursor) Advance() Cursor {
	next := c
	next.Page = c.Page + 1
	return next
}

// Page is one fetched page. Items are ordered newest-first; an empty slice means exhaustion.
type Page struct {
	Items []domain.CollectedItem
	Next  Cursor
}

// Source produces pages of collected items.
type Source interface {
	NextPage(ctx context.Context, cur Cursor) (Page, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, cur Cursor) (Page, error)

// NextPage calls f.
func (f Func) NextPage(ctx context.Context, cur Cursor) (Page, error) {
	return f(ctx, cur)
}

type limited struct {
	src     Source
	maxPage int
}

// Limited stops src after maxPage pages. maxPage <= 0 disables the limit.
func Limited(src Source, maxPage int) Source {
	if maxPage <= 0 {
		return src
	}
	return &limited{src: src, maxPage: maxPage}
}

func (l *limited) NextPage(ctx context.Context, cur Cursor) (Page, error) {
	if cur.Done || cur.Page > l.maxPage {
		exhausted := cur.Advance()
		exhausted.Done = true
		return Page{Next: exhausted}, nil
	}

	page, err := l.src.NextPage(ctx, cur)
	if err != nil {
		return Page{}, err
	}
	page.Next.Page = cur.Page + 1
	return page, nil
}

// Extractor turns the i-th raw entry of a page into an item.
type Extractor func(i int) (domain.CollectedItem, error)

// CollectItems extracts n entries and tolerates per-item parse failures while
// failures stay under half of the page. Results are sorted newest-first.
func CollectItems(n int, extract Extractor, logger *slog.Logger) ([]domain.CollectedItem, error) {
	items := make([]domain.CollectedItem, 0, n)
	failures := 0
	for i := 0; i < n; i++ {
		item, err := extract(i)
		if err == nil {
			items = append(items, item)
			continue
		}

		var parseErr *domain.ArticleParseError
		if !errors.As(err, &parseErr) {
			return nil, err
		}
		failures++
		if logger != nil {
			logger.Warn("skip malformed article", "error", err)
		}
		if 2*failures >= n {
			return nil, err
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	return items, nil
}
