// Package polygon adapts the Polygon.io REST API to the market-data
// capability interfaces.
package polygon

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/httpclient"
	"github.com/ternarybob/vigil/internal/models"
)

const (
	// Name is the provider name used for health tracking.
	Name = "polygon"

	// DefaultBaseURL is the base URL for the Polygon API.
	DefaultBaseURL = "https://api.polygon.io"

	// DefaultRateLimit keeps within the free tier's five calls per minute burst.
	DefaultRateLimit = 1

	snapshotPath = "/v2/snapshot/locale/us/markets/stocks"
)

// Client is a Polygon API client.
type Client struct {
	apiKey string
	http   *httpclient.Client
	now    func() time.Time
}

// NewClient creates a Polygon client.
func NewClient(apiKey, baseURL string, rateLimit int, timeout time.Duration, logger arbor.ILogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Client{
		apiKey: apiKey,
		now:    time.Now,
		http: httpclient.New(Name, baseURL,
			httpclient.WithRateLimit(rateLimit),
			httpclient.WithTimeout(timeout),
			httpclient.WithLogger(logger),
		),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	return c.http.GetJSON(ctx, path, params, result)
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// GetQuotes implements interfaces.QuoteSource with one snapshot request.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}

	params := url.Values{}
	params.Set("tickers", strings.Join(symbols, ","))

	var resp SnapshotsResponse
	if err := c.get(ctx, snapshotPath+"/tickers", params, &resp); err != nil {
		return nil, err
	}

	quotes := make(map[string]models.Quote, len(resp.Tickers))
	for i := range resp.Tickers {
		s := &resp.Tickers[i]
		price := s.price()
		if s.Ticker == "" || price <= 0 {
			continue
		}
		ts := c.now()
		if s.LastTrade != nil && s.LastTrade.Timestamp > 0 {
			ts = time.Unix(0, s.LastTrade.Timestamp).UTC()
		}
		quotes[s.Ticker] = models.Quote{
			Symbol:        s.Ticker,
			Price:         price,
			Volume:        s.volume(),
			Timestamp:     ts,
			ChangePercent: models.Float64Ptr(s.TodaysChangePerc),
		}
	}
	return quotes, nil
}

func (c *Client) aggregates(ctx context.Context, symbol string, multiplier int, timespan string, from, to time.Time) ([]Aggregate, error) {
	path := "/v2/aggs/ticker/" + url.PathEscape(symbol) + "/range/" + strconv.Itoa(multiplier) + "/" + timespan +
		"/" + from.Format("2006-01-02") + "/" + to.Format("2006-01-02")

	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", "50000")

	var resp AggregatesResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetIntradayBars implements interfaces.IntradaySource.
func (c *Client) GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	to := c.now()
	raw, err := c.aggregates(ctx, symbol, 5, "minute", to.AddDate(0, 0, -days), to)
	if err != nil {
		return nil, err
	}
	out := make([]models.IntradayBar, 0, len(raw))
	for _, a := range raw {
		out = append(out, models.IntradayBar{
			Time: time.UnixMilli(a.Timestamp).UTC(),
			Open: a.Open, High: a.High, Low: a.Low, Close: a.Close, Volume: int64(a.Volume),
		})
	}
	return out, nil
}

// GetDailyBars implements interfaces.DailySource.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	to := c.now()
	raw, err := c.aggregates(ctx, symbol, 1, "day", to.AddDate(0, 0, -(days*7/5+7)), to)
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyBar, 0, len(raw))
	for _, a := range raw {
		t := time.UnixMilli(a.Timestamp).UTC()
		out = append(out, models.DailyBar{
			Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open: a.Open, High: a.High, Low: a.Low, Close: a.Close, Volume: int64(a.Volume),
		})
	}
	if len(out) > days {
		out = out[len(out)-days:]
	}
	return out, nil
}

func (c *Client) details(ctx context.Context, symbol string) (*TickerDetails, error) {
	var resp TickerDetailsResponse
	if err := c.get(ctx, "/v3/reference/tickers/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetProfile implements interfaces.ProfileSource. The SIC description stands
// in for the industry.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	d, err := c.details(ctx, symbol)
	if err != nil || d == nil || d.Name == "" {
		return nil, err
	}
	return &models.CompanyProfile{Name: d.Name, Industry: d.SICDescription, Description: d.Description}, nil
}

// GetMetrics implements interfaces.MetricsSource with market cap only.
func (c *Client) GetMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	d, err := c.details(ctx, symbol)
	if err != nil || d == nil || d.MarketCap == nil {
		return nil, err
	}
	return &models.FinancialMetrics{MarketCap: d.MarketCap}, nil
}

// Screen implements interfaces.ScreenerSource by filtering the full-market
// snapshot and ordering by volume.
func (c *Client) Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]string, error) {
	var resp SnapshotsResponse
	if err := c.get(ctx, snapshotPath+"/tickers", nil, &resp); err != nil {
		return nil, err
	}

	type hit struct {
		symbol string
		volume int64
	}
	var hits []hit
	for i := range resp.Tickers {
		s := &resp.Tickers[i]
		price, volume := s.price(), s.volume()
		if price <= 0 || price < criteria.MinPrice {
			continue
		}
		if criteria.MaxPrice > 0 && price > criteria.MaxPrice {
			continue
		}
		if volume < criteria.MinVolume {
			continue
		}
		hits = append(hits, hit{s.Ticker, volume})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].volume > hits[j].volume })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if criteria.Limit > 0 && len(out) >= criteria.Limit {
			break
		}
		out = append(out, h.symbol)
	}
	return out, nil
}

// TopGainers implements interfaces.MoversSource.
func (c *Client) TopGainers(ctx context.Context, limit int) ([]string, error) {
	return c.movers(ctx, "gainers", limit)
}

// TopLosers implements interfaces.MoversSource.
func (c *Client) TopLosers(ctx context.Context, limit int) ([]string, error) {
	return c.movers(ctx, "losers", limit)
}

// MostActive implements interfaces.MoversSource. Polygon has no actives
// list so the unfiltered screener stands in.
func (c *Client) MostActive(ctx context.Context, limit int) ([]string, error) {
	return c.Screen(ctx, models.ScreenerCriteria{Limit: limit})
}

func (c *Client) movers(ctx context.Context, direction string, limit int) ([]string, error) {
	var resp SnapshotsResponse
	if err := c.get(ctx, snapshotPath+"/"+direction, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Tickers))
	for _, s := range resp.Tickers {
		if limit > 0 && len(out) >= limit {
			break
		}
		if s.Ticker != "" {
			out = append(out, s.Ticker)
		}
	}
	return out, nil
}

// Search implements interfaces.SearchSource.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("active", "true")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp TickerSearchResponse
	if err := c.get(ctx, "/v3/reference/tickers", params, &resp); err != nil {
		return nil, err
	}
	out := make([]models.SymbolMatch, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, models.SymbolMatch{Symbol: r.Ticker, Name: r.Name, Exchange: r.PrimaryExchange})
	}
	return out, nil
}
