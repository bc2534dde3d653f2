package collectorclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 1024
)

// Client reads articles from a remote collector over its HTTP API.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.ArticleFeed = (*Client)(nil)

// NewClient creates a reusable HTTP client for the collector at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// GetAfter asks the collector for up to limit articles with id > boundID.
func (c *Client) GetAfter(ctx context.Context, boundID int64, limit int) (domain.ArticlesPage, error) {
	query := url.Values{}
	query.Set("boundId", strconv.FormatInt(boundID, 10))
	query.Set("limit", strconv.Itoa(limit))

	var page domain.ArticlesPage
	if err := c.get(ctx, "/articles/after", query, &page); err != nil {
		return domain.ArticlesPage{}, err
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	if c.endpoint == "" {
		return fmt.Errorf("collector url is not configured")
	}

	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("collector error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
