package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

func listingHTML(total, broken int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="feed">`)
	for i := 0; i < total; i++ {
		ts := fmt.Sprintf(`<span class="date">2024-03-%02dT10:00:00</span>`, i+1)
		if i < broken {
			ts = ""
		}
		fmt.Fprintf(&b, `<div class="item"><a class="link" href="/news/%d">open</a><h2>Title %d</h2><p class="body">Body %d. More text</p>%s</div>`, i, i, i, ts)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func baseHTMLConfig(serverURL string) HTMLConfig {
	return HTMLConfig{
		URLTemplate:   serverURL + "/list",
		ItemSelector:  ".item",
		LinkSelector:  "a.link",
		TitleSelector: "h2",
		TextSelector:  ".body",
		TimeSelector:  ".date",
		TimeFormat:    isoTimeFormat,
	}
}

func TestHTMLSourceToleratesMinorityOfBrokenItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML(10, 3)))
	}))
	defer server.Close()

	src, err := NewHTMLSource(baseHTMLConfig(server.URL), NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	page, err := src.NextPage(context.Background(), source.Start())
	if err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if len(page.Items) != 7 {
		t.Fatalf("expected 7 items, got %d", len(page.Items))
	}
	if !page.Next.Done {
		t.Fatalf("single page source must be done after first page")
	}

	first := page.Items[0]
	if first.Link != server.URL+"/news/9" {
		t.Fatalf("expected newest item first with absolute link, got %s", first.Link)
	}
	if first.Title != "Title 9" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Text != "Body 9. More text" {
		t.Fatalf("unexpected text: %q", first.Text)
	}
	want := time.Date(2024, time.March, 10, 10, 0, 0, 0, time.UTC).Unix()
	if first.Timestamp != want {
		t.Fatalf("unexpected timestamp: %d", first.Timestamp)
	}
}

func TestHTMLSourceFailsWhenHalfOfItemsAreBroken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML(10, 6)))
	}))
	defer server.Close()

	src, err := NewHTMLSource(baseHTMLConfig(server.URL), NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	_, err = src.NextPage(context.Background(), source.Start())
	var parseErr *domain.ArticleParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ArticleParseError, got %v", err)
	}
	if parseErr.Reason != "Time is absent" {
		t.Fatalf("unexpected reason: %s", parseErr.Reason)
	}
}

func TestHTMLSourceTitleFallsBackToFirstSentence(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="item"><a class="link" href="/a">x</a>
			<p class="body">  Rates rise again!  Markets   react. </p>
			<span class="date">5 марта 2024 10:30</span></div>`))
	}))
	defer server.Close()

	cfg := baseHTMLConfig(server.URL)
	cfg.TitleSelector = ""
	cfg.TimeFormat = "2 01 2006 15:04"
	cfg.MonthNames = "ru"
	cfg.TimeZone = "Europe/Moscow"

	src, err := NewHTMLSource(cfg, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	page, err := src.NextPage(context.Background(), source.Start())
	if err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}

	item := page.Items[0]
	if item.Title != "Rates rise again" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.Text != "Rates rise again! Markets react." {
		t.Fatalf("unexpected text: %q", item.Text)
	}
	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	want := time.Date(2024, time.March, 5, 10, 30, 0, 0, moscow).Unix()
	if item.Timestamp != want {
		t.Fatalf("expected %d, got %d", want, item.Timestamp)
	}
}

func TestHTMLSourceRejectsNonAnchorLink(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="item"><span class="link">x</span><h2>t</h2><p class="body">b</p><span class="date">2024-01-01</span></div>`))
	}))
	defer server.Close()

	cfg := baseHTMLConfig(server.URL)
	cfg.LinkSelector = ".link"
	src, err := NewHTMLSource(cfg, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	_, err = src.NextPage(context.Background(), source.Start())
	var parseErr *domain.ArticleParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ArticleParseError, got %v", err)
	}
}

func TestHTMLSourceNumberedPaging(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.RequestURI())
		mu.Unlock()
		_, _ = w.Write([]byte(listingHTML(2, 0)))
	}))
	defer server.Close()

	cfg := baseHTMLConfig(server.URL)
	cfg.URLTemplate = server.URL + "/list?p={page}"
	cfg.FirstPage = 0

	src, err := NewHTMLSource(cfg, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	cur := source.Start()
	for i := 0; i < 2; i++ {
		page, err := src.NextPage(context.Background(), cur)
		if err != nil {
			t.Fatalf("NextPage %d: %v", i, err)
		}
		cur = page.Next
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/list?p=1" || paths[1] != "/list?p=2" {
		t.Fatalf("unexpected requests: %v", paths)
	}
}

func TestHTMLSourceFollowsNextPageLink(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a class="more" href="/list/older">older</a>` + listingHTML(1, 0)))
	})
	mux.HandleFunc("/list/older", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML(2, 0)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := baseHTMLConfig(server.URL)
	cfg.NextPageLinkSelector = "a.more"

	src, err := NewHTMLSource(cfg, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	first, err := src.NextPage(context.Background(), source.Start())
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.Next.Done || first.Next.URL != server.URL+"/list/older" {
		t.Fatalf("unexpected next cursor: %+v", first.Next)
	}

	second, err := src.NextPage(context.Background(), first.Next)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items on second page, got %d", len(second.Items))
	}
	if !second.Next.Done {
		t.Fatalf("missing next link must end paging")
	}
}

func TestHTMLSourceDatePaging(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(listingHTML(1, 0)))
	}))
	defer server.Close()

	cfg := baseHTMLConfig(server.URL)
	cfg.URLTemplate = server.URL + "/day/{date}"
	cfg.URLDateFormat = "2006/01/02"

	src, err := NewHTMLSource(cfg, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}
	src.now = func() time.Time { return time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC) }

	page, err := src.NextPage(context.Background(), source.Start())
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if _, err := src.NextPage(context.Background(), page.Next); err != nil {
		t.Fatalf("second page: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/day/2024/03/01" || paths[1] != "/day/2024/02/29" {
		t.Fatalf("unexpected requests: %v", paths)
	}
}

func TestHTMLSourceUsesLinkForItemInfo(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<ul><li class="item"><a class="link" href="/story">story</a></li></ul>`))
	})
	mux.HandleFunc("/story", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<article><h2>Full title</h2><p class="body">Full body.</p><span class="date">2024-05-01T08:00:00Z</span></article>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := baseHTMLConfig(server.URL)
	cfg.UseLinkForItemInfo = true

	src, err := NewHTMLSource(cfg, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}

	page, err := src.NextPage(context.Background(), source.Start())
	if err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.Items[0].Title != "Full title" || page.Items[0].Text != "Full body." {
		t.Fatalf("unexpected item: %+v", page.Items[0])
	}
}

func TestHTMLFactoryRejectsBadConfig(t *testing.T) {
	t.Parallel()

	factory := HTMLFactory(NewFetcher(nil, ""), nil)
	cases := map[string]string{
		"missing selectors": `{"urlTemplate":"https://example.com"}`,
		"unknown field":     `{"urlTemplate":"https://example.com","bogus":1}`,
		"not json":          `{`,
	}
	for name, raw := range cases {
		if _, err := factory([]byte(raw)); !errors.Is(err, domain.ErrConfigFormat) {
			t.Fatalf("%s: expected ErrConfigFormat, got %v", name, err)
		}
	}
}

func TestHTMLSourceRejectsBadSelector(t *testing.T) {
	t.Parallel()

	cfg := baseHTMLConfig("https://example.com")
	cfg.ItemSelector = "div[["
	if _, err := NewHTMLSource(cfg, nil, nil); err == nil {
		t.Fatalf("expected selector compile error")
	}
}
