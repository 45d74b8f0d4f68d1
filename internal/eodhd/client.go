package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/httpclient"
	"github.com/ternarybob/vigil/internal/models"
)

const (
	// Name is the provider name used for health tracking.
	Name = "eodhd"

	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client is an EODHD API client.
type Client struct {
	apiKey string
	http   *httpclient.Client
	now    func() time.Time
}

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL   string
	logger    arbor.ILogger
	rateLimit int
	timeout   time.Duration
	now       func() time.Time
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *clientConfig) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *clientConfig) {
		if requestsPerSecond > 0 {
			c.rateLimit = requestsPerSecond
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithClock overrides the clock used for date ranges.
func WithClock(now func() time.Time) ClientOption {
	return func(c *clientConfig) {
		c.now = now
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		baseURL:   DefaultBaseURL,
		logger:    arbor.NewNoOpLogger(),
		rateLimit: DefaultRateLimit,
		timeout:   httpclient.DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		apiKey: apiKey,
		now:    cfg.now,
		http: httpclient.New(Name, cfg.baseURL,
			httpclient.WithLogger(cfg.logger),
			httpclient.WithRateLimit(cfg.rateLimit),
			httpclient.WithTimeout(cfg.timeout),
		),
	}
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")
	return c.http.GetJSON(ctx, path, params, result)
}

// GetEOD retrieves end-of-day price data for a symbol.
// Symbol format: TICKER.EXCHANGE (e.g., "AAPL.US")
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...QueryOption) (EODResponse, error) {
	params := &queryParams{
		Period: "d",
		Order:  "a",
	}
	for _, opt := range opts {
		opt(params)
	}

	queryParams := url.Values{}
	if !params.From.IsZero() {
		queryParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		queryParams.Set("to", params.To.Format("2006-01-02"))
	}
	if params.Period != "" {
		queryParams.Set("period", params.Period)
	}
	if params.Order != "" {
		queryParams.Set("order", params.Order)
	}

	var result EODResponse
	if err := c.get(ctx, "/eod/"+symbol, queryParams, &result); err != nil {
		return nil, err
	}

	for i := range result {
		if t, err := time.Parse("2006-01-02", result[i].DateStr); err == nil {
			result[i].Date = t
		}
	}

	return result, nil
}

// GetIntraday retrieves intraday candles at the given interval (1m, 5m, 1h).
func (c *Client) GetIntraday(ctx context.Context, symbol, interval string, from, to time.Time) ([]IntradayData, error) {
	queryParams := url.Values{}
	queryParams.Set("interval", interval)
	queryParams.Set("from", strconv.FormatInt(from.Unix(), 10))
	queryParams.Set("to", strconv.FormatInt(to.Unix(), 10))

	var result []IntradayData
	if err := c.get(ctx, "/intraday/"+symbol, queryParams, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetFundamentals retrieves fundamental data for a symbol.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*FundamentalsResponse, error) {
	var result FundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+symbol, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRealTimeQuotes retrieves quotes for one or more symbols in a single call.
// EODHD returns an object for one symbol and an array for several.
func (c *Client) GetRealTimeQuotes(ctx context.Context, symbols []string) ([]RealTimeQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	queryParams := url.Values{}
	if len(symbols) > 1 {
		queryParams.Set("s", strings.Join(symbols[1:], ","))
	}

	var raw json.RawMessage
	if err := c.get(ctx, "/real-time/"+symbols[0], queryParams, &raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []RealTimeQuote
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("failed to decode quotes: %w", err)
		}
		return list, nil
	}

	var single RealTimeQuote
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	return []RealTimeQuote{single}, nil
}

// SearchSymbols searches tickers and company names.
func (c *Client) SearchSymbols(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	queryParams := url.Values{}
	if limit > 0 {
		queryParams.Set("limit", strconv.Itoa(limit))
	}

	var result []SearchResult
	if err := c.get(ctx, "/search/"+url.PathEscape(query), queryParams, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// GetQuotes implements interfaces.QuoteSource.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}

	codes := make([]string, len(symbols))
	for i, s := range symbols {
		codes[i] = exchangeSymbol(s)
	}

	raw, err := c.GetRealTimeQuotes(ctx, codes)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]models.Quote, len(raw))
	for _, q := range raw {
		price, ok := number(q.Close)
		if !ok || price <= 0 {
			continue
		}
		volume, _ := number(q.Volume)
		ts := c.now()
		if secs, ok := number(q.Timestamp); ok && secs > 0 {
			ts = time.Unix(int64(secs), 0).UTC()
		}

		symbol := plainSymbol(q.Code)
		quote := models.Quote{Symbol: symbol, Price: price, Volume: int64(volume), Timestamp: ts}
		if pct, ok := number(q.ChangePercent); ok {
			quote.ChangePercent = models.Float64Ptr(pct)
		}
		quotes[symbol] = quote
	}
	return quotes, nil
}

// GetIntradayBars implements interfaces.IntradaySource using 5-minute candles.
func (c *Client) GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error) {
	if days <= 0 {
		return nil, nil
	}
	to := c.now()
	from := to.Add(-time.Duration(days) * 24 * time.Hour)

	raw, err := c.GetIntraday(ctx, exchangeSymbol(symbol), "5m", from, to)
	if err != nil {
		return nil, err
	}

	bars := make([]models.IntradayBar, 0, len(raw))
	for _, d := range raw {
		bars = append(bars, models.IntradayBar{
			Time:   time.Unix(d.Timestamp, 0).UTC(),
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: d.Volume,
		})
	}
	return bars, nil
}

// GetDailyBars implements interfaces.DailySource. Calendar days are padded
// so that days trading sessions are covered, then trimmed to the last days bars.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error) {
	if days <= 0 {
		return nil, nil
	}
	to := c.now()
	from := to.AddDate(0, 0, -(days*7/5 + 7))

	raw, err := c.GetEOD(ctx, exchangeSymbol(symbol), WithDateRange(from, to))
	if err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(raw))
	for _, d := range raw {
		bars = append(bars, models.DailyBar{
			Date:   d.Date,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: d.Volume,
		})
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// GetProfile implements interfaces.ProfileSource.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	f, err := c.GetFundamentals(ctx, exchangeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	if f.General == nil || f.General.Name == "" {
		return nil, nil
	}
	return &models.CompanyProfile{
		Name:        f.General.Name,
		Sector:      f.General.Sector,
		Industry:    f.General.Industry,
		Description: f.General.Description,
	}, nil
}

// GetMetrics implements interfaces.MetricsSource. Zero values are treated as unknown.
func (c *Client) GetMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	f, err := c.GetFundamentals(ctx, exchangeSymbol(symbol))
	if err != nil {
		return nil, err
	}

	m := &models.FinancialMetrics{}
	if h := f.Highlights; h != nil {
		m.MarketCap = nonZero(h.MarketCapitalization)
		m.PERatio = nonZero(h.PERatio)
		m.EPS = nonZero(h.EarningsShare)
		m.DividendYield = nonZero(h.DividendYield)
	}
	if v := f.Valuation; v != nil {
		if m.PERatio == nil {
			m.PERatio = nonZero(v.TrailingPE)
		}
		m.PBRatio = nonZero(v.PriceBookMRQ)
	}
	if m.IsEmpty() {
		return nil, nil
	}
	return m, nil
}

// Search implements interfaces.SearchSource.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	raw, err := c.SearchSymbols(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	matches := make([]models.SymbolMatch, 0, len(raw))
	for _, r := range raw {
		matches = append(matches, models.SymbolMatch{Symbol: r.Code, Name: r.Name, Exchange: r.Exchange})
	}
	return matches, nil
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return models.Float64Ptr(v)
}
