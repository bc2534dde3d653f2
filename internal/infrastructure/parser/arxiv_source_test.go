package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/source"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://export.arxiv.org/list/cs.AI/pastweek"
	u, err := buildPageURL(base, 200, 100)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if parsed.Scheme != "https" || parsed.Host != "export.arxiv.org" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("skip") != "200" {
		t.Fatalf("expected skip=200, got %s", q.Get("skip"))
	}
	if q.Get("show") != "100" {
		t.Fatalf("expected show=100, got %s", q.Get("show"))
	}
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/1234.56789">arXiv:1234.56789</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Nov 2025</div>
	    <div class="list-title mathjax">Title: Sample Title</div>
	    <p class="mathjax">Abstract: Sample abstract text.</p>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	base, _ := url.Parse("https://arxiv.org/list/cs.AI")

	dt := doc.Find("dt").First()
	dd := doc.Find("dd").First()

	item, err := parseEntry(base, dt, dd, base.String(), 0)
	if err != nil {
		t.Fatalf("parseEntry error: %v", err)
	}

	if item.Link != "https://arxiv.org/abs/1234.56789" {
		t.Fatalf("unexpected link: %s", item.Link)
	}
	if item.Title != "Sample Title" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if item.Text != "Sample abstract text." {
		t.Fatalf("unexpected abstract: %s", item.Text)
	}

	want := time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC).Unix()
	if item.Timestamp != want {
		t.Fatalf("unexpected published date: %v", item.Timestamp)
	}
}

func TestArxivSourceNextPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<dl>
		  <dt>
		    <span class="list-identifier"><a href="/abs/2501.00002">arXiv:2501.00002</a></span>
		  </dt>
		  <dd>
		    <div class="list-date">Date: 7 Nov 2025</div>
		    <div class="list-title mathjax">Title: Old Article</div>
		    <p class="mathjax">Abstract: older.</p>
		  </dd>
		  <dt>
		    <span class="list-identifier"><a href="/abs/2501.00001">arXiv:2501.00001</a></span>
		  </dt>
		  <dd>
		    <div class="list-date">Date: 8 Nov 2025</div>
		    <div class="list-title mathjax">Title: Fresh Article</div>
		    <p class="mathjax">Abstract: brand new.</p>
		  </dd>
		</dl>`))
	}))
	defer server.Close()

	src, err := NewArxivSource(ArxivConfig{ListURL: server.URL + "/list/cs.AI", PageSize: 10}, NewFetcher(server.Client(), ""), nil)
	if err != nil {
		t.Fatalf("NewArxivSource: %v", err)
	}

	page, err := src.NextPage(context.Background(), source.Start())
	if err != nil {
		t.Fatalf("NextPage error: %v", err)
	}

	if len(page.Items) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(page.Items))
	}
	if page.Items[0].Title != "Fresh Article" {
		t.Fatalf("expected newest first, got %s", page.Items[0].Title)
	}
	if page.Items[0].Text != "brand new." {
		t.Fatalf("unexpected abstract: %s", page.Items[0].Text)
	}
	if !page.Next.Done {
		t.Fatalf("short listing must end paging")
	}
}
