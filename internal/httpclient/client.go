// Package httpclient is the shared rate-limited JSON transport behind every
// market-data vendor adapter. It maps HTTP failures onto the retry package's
// error kinds so callers never inspect status codes.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/vigil/internal/services/retry"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	maxErrorBody = 512
)

// APIError is a non-retryable HTTP failure that is not auth or rate related.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (status: %d, endpoint: %s)", e.Provider, e.Message, e.StatusCode, e.Endpoint)
}

// Client performs JSON requests against one vendor.
type Client struct {
	provider   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
	headers    map[string]string
	now        func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero or negative keeps the default.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithClock overrides the clock used to interpret Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  arbor.NewNoOpLogger(),
		headers: make(map[string]string),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Provider returns the vendor name used in errors.
func (c *Client) Provider() string {
	return c.provider
}

// GetJSON performs a GET request and decodes the JSON body into result.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, reqURL, path, nil, nil, result)
}

// PostJSON encodes body as JSON, POSTs it with the extra headers and decodes
// the JSON reply into result.
func (c *Client) PostJSON(ctx context.Context, path string, headers map[string]string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", c.provider, err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, path, headers, data, result)
}

func (c *Client) do(ctx context.Context, method, reqURL, path string, headers map[string]string, body []byte, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &retry.RateLimitError{Provider: c.provider, RetryAfter: time.Second, Message: "local rate limiter"}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug().
		Str("provider", c.provider).
		Str("method", method).
		Str("url", c.baseURL+path).
		Msg("Vendor API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &retry.TransientError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return &retry.TransientError{Provider: c.provider, Err: err}
		}
		return fmt.Errorf("%s: failed to decode response: %w", c.provider, err)
	}

	return nil
}

func (c *Client) statusError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests && retry.IsQuotaExhaustedMessage(message):
		return &retry.AuthError{Provider: c.provider, StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &retry.RateLimitError{
			Provider:   c.provider,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
			Message:    message,
		}
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusPaymentRequired ||
		resp.StatusCode == http.StatusForbidden:
		return &retry.AuthError{Provider: c.provider, StatusCode: resp.StatusCode, Message: message}
	case resp.StatusCode >= 500:
		return &retry.TransientError{
			Provider: c.provider,
			Err:      &APIError{Provider: c.provider, StatusCode: resp.StatusCode, Message: message, Endpoint: path},
		}
	default:
		return &APIError{Provider: c.provider, StatusCode: resp.StatusCode, Message: message, Endpoint: path}
	}
}
