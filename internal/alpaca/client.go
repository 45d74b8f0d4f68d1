// Package alpaca adapts the Alpaca market data API to the market-data
// capability interfaces.
package alpaca

import (
	"context"
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
	Name = "alpaca"

	// DefaultBaseURL is the market data host.
	DefaultBaseURL = "https://data.alpaca.markets"

	// DefaultTradingURL is the trading host that serves asset metadata.
	DefaultTradingURL = "https://paper-api.alpaca.markets"

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 3

	feed = "iex"
)

// Client is an Alpaca API client.
type Client struct {
	data    *httpclient.Client
	trading *httpclient.Client
	now     func() time.Time
}

// NewClient creates an Alpaca client. baseURL overrides both hosts, which
// is how tests point the client at a single server.
func NewClient(apiKey, apiSecret, baseURL string, rateLimit int, timeout time.Duration, logger arbor.ILogger) *Client {
	dataURL, tradingURL := DefaultBaseURL, DefaultTradingURL
	if baseURL != "" {
		dataURL, tradingURL = baseURL, baseURL
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	opts := []httpclient.Option{
		httpclient.WithHeader("APCA-API-KEY-ID", apiKey),
		httpclient.WithHeader("APCA-API-SECRET-KEY", apiSecret),
		httpclient.WithRateLimit(rateLimit),
		httpclient.WithTimeout(timeout),
		httpclient.WithLogger(logger),
	}
	return &Client{
		data:    httpclient.New(Name, dataURL, opts...),
		trading: httpclient.New(Name, tradingURL, opts...),
		now:     time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// GetQuotes implements interfaces.QuoteSource using snapshots. Change percent
// is computed against the previous daily close.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("feed", feed)

	var resp map[string]Snapshot
	if err := c.data.GetJSON(ctx, "/v2/stocks/snapshots", params, &resp); err != nil {
		return nil, err
	}

	quotes := make(map[string]models.Quote, len(resp))
	for symbol, snap := range resp {
		if snap.LatestTrade == nil || snap.LatestTrade.Price <= 0 {
			continue
		}
		q := models.Quote{
			Symbol:    symbol,
			Price:     snap.LatestTrade.Price,
			Timestamp: snap.LatestTrade.Timestamp,
		}
		if snap.DailyBar != nil {
			q.Volume = snap.DailyBar.Volume
		}
		if snap.PrevDailyBar != nil && snap.PrevDailyBar.Close > 0 {
			q.ChangePercent = models.Float64Ptr((q.Price - snap.PrevDailyBar.Close) / snap.PrevDailyBar.Close * 100)
		}
		quotes[symbol] = q
	}
	return quotes, nil
}

// bars follows next_page_token until exhausted.
func (c *Client) bars(ctx context.Context, symbol, timeframe string, start time.Time) ([]Bar, error) {
	var out []Bar
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("timeframe", timeframe)
		params.Set("start", start.UTC().Format(time.RFC3339))
		params.Set("limit", "10000")
		params.Set("adjustment", "raw")
		params.Set("feed", feed)
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		var resp BarsResponse
		if err := c.data.GetJSON(ctx, "/v2/stocks/"+url.PathEscape(symbol)+"/bars", params, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Bars...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetIntradayBars implements interfaces.IntradaySource.
func (c *Client) GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	raw, err := c.bars(ctx, symbol, "5Min", c.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	out := make([]models.IntradayBar, 0, len(raw))
	for _, b := range raw {
		out = append(out, models.IntradayBar{Time: b.Timestamp, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume})
	}
	return out, nil
}

// GetDailyBars implements interfaces.DailySource.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	raw, err := c.bars(ctx, symbol, "1Day", c.now().AddDate(0, 0, -(days*7/5+7)))
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyBar, 0, len(raw))
	for _, b := range raw {
		t := b.Timestamp.UTC()
		out = append(out, models.DailyBar{
			Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}
	if len(out) > days {
		out = out[len(out)-days:]
	}
	return out, nil
}

// GetProfile implements interfaces.ProfileSource with the asset name only.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	var asset Asset
	if err := c.trading.GetJSON(ctx, "/v2/assets/"+url.PathEscape(symbol), nil, &asset); err != nil {
		return nil, err
	}
	if asset.Name == "" {
		return nil, nil
	}
	return &models.CompanyProfile{Name: asset.Name}, nil
}

// TopGainers implements interfaces.MoversSource.
func (c *Client) TopGainers(ctx context.Context, limit int) ([]string, error) {
	resp, err := c.movers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return entrySymbols(resp.Gainers), nil
}

// TopLosers implements interfaces.MoversSource.
func (c *Client) TopLosers(ctx context.Context, limit int) ([]string, error) {
	resp, err := c.movers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return entrySymbols(resp.Losers), nil
}

// MostActive implements interfaces.MoversSource.
func (c *Client) MostActive(ctx context.Context, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("top", strconv.Itoa(clampTop(limit)))

	var resp MostActivesResponse
	if err := c.data.GetJSON(ctx, "/v1beta1/screener/stocks/most-actives", params, &resp); err != nil {
		return nil, err
	}
	return entrySymbols(resp.MostActives), nil
}

func (c *Client) movers(ctx context.Context, limit int) (*MoversResponse, error) {
	params := url.Values{}
	params.Set("top", strconv.Itoa(clampTop(limit)))

	var resp MoversResponse
	if err := c.data.GetJSON(ctx, "/v1beta1/screener/stocks/movers", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func clampTop(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}

func entrySymbols(entries []screenerEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Symbol != "" {
			out = append(out, e.Symbol)
		}
	}
	return out
}
