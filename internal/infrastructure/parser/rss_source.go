package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

const (
	defaultPageParam = "paged"
	httpPrefix       = "http"
)

// RSSConfig describes a feed, optionally paged through a query parameter.
type RSSConfig struct {
	URL       string `json:"url" validate:"required,url"`
	IsPaged   bool   `json:"isPaged"`
	PageParam string `json:"pageParam,omitempty"`
	MaxPage   int    `json:"maxPage,omitempty" validate:"gte=0"`
}

// RSSSource reads RSS/Atom feeds.
type RSSSource struct {
	cfg     RSSConfig
	fetcher *Fetcher
	parser  *gofeed.Parser
	logger  *slog.Logger
}

var _ source.Source = (*RSSSource)(nil)

// NewRSSSource validates the config and builds the source.
func NewRSSSource(cfg RSSConfig, fetcher *Fetcher, log *slog.Logger) (*RSSSource, error) {
	if err := domain.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	if cfg.PageParam == "" {
		cfg.PageParam = defaultPageParam
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil, "")
	}
	if log == nil {
		log = slog.Default()
	}
	return &RSSSource{
		cfg:     cfg,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		logger:  log,
	}, nil
}

// RSSFactory builds RSS sources from raw registry payloads.
func RSSFactory(fetcher *Fetcher, log *slog.Logger) source.Factory {
	return func(raw json.RawMessage) (source.Source, error) {
		var cfg RSSConfig
		if err := domain.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		src, err := NewRSSSource(cfg, fetcher, log)
		if err != nil {
			return nil, err
		}
		return source.Limited(src, cfg.MaxPage), nil
	}
}

// NextPage fetches one page of the feed.
func (r *RSSSource) NextPage(ctx context.Context, cur source.Cursor) (source.Page, error) {
	next := cur.Advance()
	if cur.Done || (!r.cfg.IsPaged && cur.Page > 1) {
		next.Done = true
		return source.Page{Next: next}, nil
	}

	feedURL, err := r.pageURL(cur.Page)
	if err != nil {
		return source.Page{}, err
	}

	body, err := r.fetcher.Body(ctx, feedURL)
	if err != nil {
		return source.Page{}, fmt.Errorf("load feed: %w", err)
	}
	defer body.Close()

	feed, err := r.parser.Parse(body)
	if err != nil {
		return source.Page{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items, err := source.CollectItems(len(feed.Items), func(i int) (domain.CollectedItem, error) {
		return entryToItem(feed.Items[i], feedURL, i)
	}, r.logger.With("feed", feedURL))
	if err != nil {
		return source.Page{}, err
	}

	if !r.cfg.IsPaged {
		next.Done = true
	}
	return source.Page{Items: items, Next: next}, nil
}

func (r *RSSSource) pageURL(pageNo int) (string, error) {
	parsed, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url %s: %w", r.cfg.URL, err)
	}
	if r.cfg.IsPaged {
		query := parsed.Query()
		query.Set(r.cfg.PageParam, strconv.Itoa(pageNo))
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func entryToItem(entry *gofeed.Item, feedURL string, idx int) (domain.CollectedItem, error) {
	fail := func(reason string) (domain.CollectedItem, error) {
		return domain.CollectedItem{}, &domain.ArticleParseError{PageURL: feedURL, Index: idx, Reason: reason}
	}

	link := entry.Link
	if link == "" && strings.HasPrefix(entry.GUID, httpPrefix) {
		link = entry.GUID
	}
	if link == "" {
		return fail("Link is absent")
	}

	published := entry.PublishedParsed
	if published == nil {
		published = entry.UpdatedParsed
	}
	if published == nil {
		return fail("Time is absent")
	}

	text := entry.Description
	if text == "" {
		text = entry.Content
	}

	return domain.CollectedItem{
		Link:      link,
		Title:     strings.TrimSpace(entry.Title),
		Text:      strings.TrimSpace(text),
		Timestamp: published.Unix(),
	}, nil
}
