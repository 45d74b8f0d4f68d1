package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/metrics"
	"github.com/ternarybob/vigil/internal/models"
)

const (
	// DefaultTimeout bounds a single feed request.
	DefaultTimeout = 15 * time.Second

	userAgent   = "vigil-rss/1.0"
	maxFeedBody = 5 << 20
	maxRawBody  = 64 << 10
)

// Client fetches feeds and stores their items and cursors.
type Client struct {
	http    *http.Client
	storage interfaces.RssStorage
	metrics *metrics.Registry
	logger  arbor.ILogger
	now     func() time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithClientMetrics counts fetch outcomes.
func WithClientMetrics(m *metrics.Registry) ClientOption {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// WithClientClock overrides the fetch timestamp clock.
func WithClientClock(now func() time.Time) ClientOption {
	return func(cl *Client) {
		cl.now = now
	}
}

// NewClient creates a feed client persisting into storage.
func NewClient(storage interfaces.RssStorage, timeout time.Duration, logger arbor.ILogger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a conditional GET for url. A 304 only refreshes the fetch
// time; a 2xx stores the parsed items and the new cursor headers.
func (c *Client) Fetch(ctx context.Context, url string) error {
	state, err := c.storage.GetFeedState(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to load feed state: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")
	if state != nil {
		if state.ETag != "" {
			req.Header.Set("If-None-Match", state.ETag)
		}
		if state.LastModified != "" {
			req.Header.Set("If-Modified-Since", state.LastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRssFetch("error")
		return fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	now := c.now()
	if resp.StatusCode == http.StatusNotModified {
		c.metrics.RecordRssFetch("not_modified")
		if state == nil {
			return nil
		}
		state.LastFetchedAt = now
		return c.storage.SaveFeedState(ctx, *state)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordRssFetch("error")
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	items, err := ParseFeed(io.LimitReader(resp.Body, maxFeedBody), url, now)
	if err != nil {
		c.metrics.RecordRssFetch("error")
		return err
	}
	if len(items) > 0 {
		if err := c.storage.UpsertItems(ctx, items); err != nil {
			return fmt.Errorf("failed to store feed items: %w", err)
		}
	}
	c.metrics.RecordRssFetch("updated")

	c.logger.Debug().Str("url", url).Int("items", len(items)).Msg("Feed fetched")

	return c.storage.SaveFeedState(ctx, models.RssFeedState{
		URL:           url,
		ETag:          resp.Header.Get("ETag"),
		LastModified:  resp.Header.Get("Last-Modified"),
		LastFetchedAt: now,
	})
}

// FetchRaw returns the start of the document at url without touching storage.
func (c *Client) FetchRaw(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRawBody))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
