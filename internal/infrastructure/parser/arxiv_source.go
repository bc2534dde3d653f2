package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

const defaultArxivPageSize = 200

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivConfig points at an arXiv listing such as /list/cs.AI/pastweek.
type ArxivConfig struct {
	ListURL  string `json:"listUrl" validate:"required,url"`
	PageSize int    `json:"pageSize,omitempty" validate:"gte=0"`
	MaxPage  int    `json:"maxPage,omitempty" validate:"gte=0"`
}

// ArxivSource walks arXiv listings with skip/show paging.
type ArxivSource struct {
	cfg     ArxivConfig
	fetcher *Fetcher
	logger  *slog.Logger
}

var _ source.Source = (*ArxivSource)(nil)

// NewArxivSource validates the config; pageSize defaults to 200.
func NewArxivSource(cfg ArxivConfig, fetcher *Fetcher, log *slog.Logger) (*ArxivSource, error) {
	if err := domain.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaultArxivPageSize
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil, "")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ArxivSource{cfg: cfg, fetcher: fetcher, logger: log}, nil
}

// ArxivFactory builds arXiv sources from raw registry payloads.
func ArxivFactory(fetcher *Fetcher, log *slog.Logger) source.Factory {
	return func(raw json.RawMessage) (source.Source, error) {
		var cfg ArxivConfig
		if err := domain.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		src, err := NewArxivSource(cfg, fetcher, log)
		if err != nil {
			return nil, err
		}
		return source.Limited(src, cfg.MaxPage), nil
	}
}

// NextPage fetches one listing slice of pageSize entries.
func (a *ArxivSource) NextPage(ctx context.Context, cur source.Cursor) (source.Page, error) {
	next := cur.Advance()
	if cur.Done {
		next.Done = true
		return source.Page{Next: next}, nil
	}

	pageURL, err := buildPageURL(a.cfg.ListURL, (cur.Page-1)*a.cfg.PageSize, a.cfg.PageSize)
	if err != nil {
		return source.Page{}, err
	}

	doc, err := a.fetcher.Document(ctx, pageURL)
	if err != nil {
		return source.Page{}, fmt.Errorf("load listing: %w", err)
	}

	entries := doc.Find("dl > dt")
	items, err := source.CollectItems(entries.Length(), func(i int) (domain.CollectedItem, error) {
		dt := entries.Eq(i)
		return parseEntry(doc.Url, dt, dt.Next(), pageURL, i)
	}, a.logger.With("page", pageURL))
	if err != nil {
		return source.Page{}, err
	}

	if entries.Length() < a.cfg.PageSize {
		next.Done = true
	}
	return source.Page{Items: items, Next: next}, nil
}

func parseEntry(base *url.URL, dt, dd *goquery.Selection, pageURL string, idx int) (domain.CollectedItem, error) {
	fail := func(reason string, err error) (domain.CollectedItem, error) {
		return domain.CollectedItem{}, &domain.ArticleParseError{PageURL: pageURL, Index: idx, Reason: reason, Err: err}
	}

	href, ok := dt.Find(`a[href*="/abs/"]`).First().Attr("href")
	if !ok || href == "" {
		return fail("Link is absent", nil)
	}
	link, err := resolveURL(base, href)
	if err != nil {
		return fail("Link has no valid href", err)
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	if title == "" {
		return fail("Title is absent", nil)
	}

	summary := dd.Find("p.mathjax").First().Text()
	summary = normalizeSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	match := dateExpr.FindString(dateText)
	if match == "" {
		return fail("Time is absent", nil)
	}
	publishedAt, err := time.Parse("2 Jan 2006", match)
	if err != nil {
		return fail("Time has wrong format", err)
	}

	return domain.CollectedItem{
		Link:      link,
		Title:     title,
		Text:      summary,
		Timestamp: publishedAt.Unix(),
	}, nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
