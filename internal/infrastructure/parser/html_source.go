package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

const (
	pageVar = "{page}"
	dateVar = "{date}"
)

type pagingMode int

const (
	pagingSingle pagingMode = iota
	pagingNumber
	pagingDate
	pagingNextLink
)

// HTMLConfig describes how to scrape a listing page.
type HTMLConfig struct {
	// URLTemplate may contain {page} or {date}.
	URLTemplate          string `json:"urlTemplate" validate:"required"`
	ItemSelector         string `json:"itemSelector" validate:"required"`
	LinkSelector         string `json:"linkSelector" validate:"required"`
	TitleSelector        string `json:"titleSelector,omitempty"`
	TextSelector         string `json:"textSelector" validate:"required"`
	TimeSelector         string `json:"timeSelector" validate:"required"`
	TimeFormat           string `json:"timeFormat" validate:"required"`
	TimeZone             string `json:"timeZone,omitempty"`
	UsesTimeTag          bool   `json:"usesTimeTag,omitempty"`
	MonthNames           string `json:"monthNames,omitempty"`
	MaxPage              int    `json:"maxPage,omitempty" validate:"gte=0"`
	UseLinkForItemInfo   bool   `json:"useLinkForItemInfo,omitempty"`
	NextPageLinkSelector string `json:"nextPageLinkSelector,omitempty"`
	FirstPage            int    `json:"firstPage,omitempty" validate:"gte=0"`
	URLDateFormat        string `json:"urlDateFormat,omitempty"`
}

// HTMLSource scrapes article listings with CSS selectors.
type HTMLSource struct {
	cfg     HTMLConfig
	fetcher *Fetcher
	times   *timeParser
	mode    pagingMode
	now     func() time.Time
	logger  *slog.Logger
}

var _ source.Source = (*HTMLSource)(nil)

// NewHTMLSource validates the config and builds the source.
func NewHTMLSource(cfg HTMLConfig, fetcher *Fetcher, log *slog.Logger) (*HTMLSource, error) {
	if err := domain.ValidateStruct(cfg); err != nil {
		return nil, err
	}

	selectors := []string{cfg.ItemSelector, cfg.LinkSelector, cfg.TitleSelector, cfg.TextSelector, cfg.TimeSelector, cfg.NextPageLinkSelector}
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("selector %q: %w", sel, err)
		}
	}

	times, err := newTimeParser(cfg.TimeFormat, cfg.TimeZone, cfg.MonthNames)
	if err != nil {
		return nil, err
	}

	mode := pagingSingle
	switch {
	case cfg.NextPageLinkSelector != "":
		mode = pagingNextLink
	case strings.Contains(cfg.URLTemplate, dateVar):
		if cfg.URLDateFormat == "" {
			return nil, fmt.Errorf("urlDateFormat is required for date paging")
		}
		mode = pagingDate
	case strings.Contains(cfg.URLTemplate, pageVar):
		mode = pagingNumber
	}

	if cfg.FirstPage == 0 {
		cfg.FirstPage = 1
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil, "")
	}
	if log == nil {
		log = slog.Default()
	}

	return &HTMLSource{
		cfg:     cfg,
		fetcher: fetcher,
		times:   times,
		mode:    mode,
		now:     time.Now,
		logger:  log,
	}, nil
}

// HTMLFactory builds HTML sources from raw registry payloads.
func HTMLFactory(fetcher *Fetcher, log *slog.Logger) source.Factory {
	return func(raw json.RawMessage) (source.Source, error) {
		var cfg HTMLConfig
		if err := domain.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		src, err := NewHTMLSource(cfg, fetcher, log)
		if err != nil {
			return nil, err
		}
		return source.Limited(src, cfg.MaxPage), nil
	}
}

// NextPage fetches the listing addressed by cur.
func (h *HTMLSource) NextPage(ctx context.Context, cur source.Cursor) (source.Page, error) {
	next := cur.Advance()
	if cur.Done {
		next.Done = true
		return source.Page{Next: next}, nil
	}

	pageURL, date, ok := h.pageURL(cur)
	if !ok {
		next.Done = true
		return source.Page{Next: next}, nil
	}

	doc, err := h.fetcher.Document(ctx, pageURL)
	if err != nil {
		return source.Page{}, fmt.Errorf("load page: %w", err)
	}

	entries := doc.Find(h.cfg.ItemSelector)
	items, err := source.CollectItems(entries.Length(), func(i int) (domain.CollectedItem, error) {
		return h.extractItem(ctx, doc, entries.Eq(i), pageURL, i)
	}, h.logger.With("page", pageURL))
	if err != nil {
		return source.Page{}, err
	}

	switch h.mode {
	case pagingSingle:
		next.Done = true
	case pagingDate:
		next.Date = date.AddDate(0, 0, -1)
	case pagingNextLink:
		nextURL, found := h.nextPageURL(doc)
		if !found {
			next.Done = true
		}
		next.URL = nextURL
	}

	return source.Page{Items: items, Next: next}, nil
}

func (h *HTMLSource) pageURL(cur source.Cursor) (string, time.Time, bool) {
	pageNo := h.cfg.FirstPage + cur.Page - 1

	switch h.mode {
	case pagingSingle:
		return h.cfg.URLTemplate, time.Time{}, cur.Page == 1
	case pagingNextLink:
		if cur.URL != "" {
			return cur.URL, time.Time{}, true
		}
		if cur.Page != 1 {
			return "", time.Time{}, false
		}
		return strings.ReplaceAll(h.cfg.URLTemplate, pageVar, strconv.Itoa(pageNo)), time.Time{}, true
	case pagingDate:
		date := cur.Date
		if date.IsZero() {
			now := h.now().In(h.times.location)
			date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.times.location)
		}
		expanded := strings.NewReplacer(
			dateVar, date.Format(h.cfg.URLDateFormat),
			pageVar, strconv.Itoa(pageNo),
		).Replace(h.cfg.URLTemplate)
		return expanded, date, true
	default:
		return strings.ReplaceAll(h.cfg.URLTemplate, pageVar, strconv.Itoa(pageNo)), time.Time{}, true
	}
}

func (h *HTMLSource) nextPageURL(doc *goquery.Document) (string, bool) {
	href, ok := doc.Find(h.cfg.NextPageLinkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	abs, err := resolveURL(doc.Url, href)
	if err != nil {
		h.logger.Warn("bad next page link", "href", href, "error", err)
		return "", false
	}
	return abs, true
}

func (h *HTMLSource) extractItem(ctx context.Context, doc *goquery.Document, entry *goquery.Selection, pageURL string, idx int) (domain.CollectedItem, error) {
	fail := func(reason string, err error) (domain.CollectedItem, error) {
		return domain.CollectedItem{}, &domain.ArticleParseError{PageURL: pageURL, Index: idx, Reason: reason, Err: err}
	}

	linkEl := selectFirst(entry, h.cfg.LinkSelector)
	if linkEl.Length() == 0 {
		return fail("Link is absent", nil)
	}
	if goquery.NodeName(linkEl) != "a" {
		return fail(`Link does not have tag "a"`, nil)
	}
	href, _ := linkEl.Attr("href")
	link, err := resolveURL(doc.Url, href)
	if err != nil || href == "" {
		return fail("Link has no valid href", err)
	}

	info := entry
	if h.cfg.UseLinkForItemInfo {
		articleDoc, err := h.fetcher.Document(ctx, link)
		if err != nil {
			return domain.CollectedItem{}, fmt.Errorf("load article %s: %w", link, err)
		}
		info = articleDoc.Selection
	}

	textEl := selectFirst(info, h.cfg.TextSelector)
	if textEl.Length() == 0 {
		return fail("Text is absent", nil)
	}
	text := normalizeSpace(textEl.Text())

	title := firstSentence(text)
	if h.cfg.TitleSelector != "" {
		titleEl := selectFirst(info, h.cfg.TitleSelector)
		if titleEl.Length() == 0 {
			return fail("Title is absent", nil)
		}
		title = normalizeSpace(titleEl.Text())
	}

	timeEl := selectFirst(info, h.cfg.TimeSelector)
	if timeEl.Length() == 0 {
		return fail("Time is absent", nil)
	}
	rawTime := timeEl.Text()
	if h.cfg.UsesTimeTag {
		rawTime = timeEl.AttrOr("datetime", "")
	}
	ts, err := h.times.parse(rawTime)
	if err != nil {
		return fail("Time has wrong format", err)
	}

	return domain.CollectedItem{
		Link:      link,
		Title:     title,
		Text:      text,
		Timestamp: ts,
	}, nil
}

// selectFirst matches the selection itself or its first matching descendant.
func selectFirst(sel *goquery.Selection, selector string) *goquery.Selection {
	if sel.Is(selector) {
		return sel.First()
	}
	return sel.Find(selector).First()
}

func resolveURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstSentence(text string) string {
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
