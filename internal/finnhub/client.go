// Package finnhub adapts the Finnhub REST API to the market-data capability
// interfaces.
package finnhub

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/httpclient"
	"github.com/ternarybob/vigil/internal/models"
)

const (
	// Name is the provider name used for health tracking.
	Name = "finnhub"

	// DefaultBaseURL is the base URL for the Finnhub API.
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// DefaultRateLimit keeps below the free tier's 60 calls per minute burst.
	DefaultRateLimit = 1
)

// Client is a Finnhub API client.
type Client struct {
	http *httpclient.Client
	now  func() time.Time
}

// NewClient creates a Finnhub client. The token is sent as a header.
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
		now: time.Now,
		http: httpclient.New(Name, baseURL,
			httpclient.WithHeader("X-Finnhub-Token", apiKey),
			httpclient.WithRateLimit(rateLimit),
			httpclient.WithTimeout(timeout),
			httpclient.WithLogger(logger),
		),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// GetQuotes implements interfaces.QuoteSource. Finnhub has no batch quote
// endpoint so symbols are fetched one by one; a failure aborts the batch.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	quotes := make(map[string]models.Quote, len(symbols))
	for _, symbol := range symbols {
		var resp QuoteResponse
		if err := c.http.GetJSON(ctx, "/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
			return nil, err
		}
		if resp.Current <= 0 || resp.Timestamp == 0 {
			continue
		}
		quotes[symbol] = models.Quote{
			Symbol:        symbol,
			Price:         resp.Current,
			Volume:        resp.Volume,
			Timestamp:     time.Unix(resp.Timestamp, 0).UTC(),
			ChangePercent: models.Float64Ptr(resp.ChangePercent),
		}
	}
	return quotes, nil
}

func (c *Client) candles(ctx context.Context, symbol, resolution string, days int) (*CandleResponse, error) {
	to := c.now()
	if days < 1 {
		days = 1
	}
	from := to.Add(-time.Duration(days) * 24 * time.Hour)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", resolution)
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	var resp CandleResponse
	if err := c.http.GetJSON(ctx, "/stock/candle", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetIntradayBars implements interfaces.IntradaySource.
func (c *Client) GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	resp, err := c.candles(ctx, symbol, "5", days)
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, nil
	}

	n := resp.Len()
	bars := make([]models.IntradayBar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, models.IntradayBar{
			Time:   time.Unix(resp.Time[i], 0).UTC(),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: volumeAt(resp.Volume, i),
		})
	}
	return bars, nil
}

// GetDailyBars implements interfaces.DailySource.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	resp, err := c.candles(ctx, symbol, "D", days)
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, nil
	}

	n := resp.Len()
	bars := make([]models.DailyBar, 0, n)
	for i := 0; i < n; i++ {
		t := time.Unix(resp.Time[i], 0).UTC()
		bars = append(bars, models.DailyBar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: volumeAt(resp.Volume, i),
		})
	}
	return bars, nil
}

// GetProfile implements interfaces.ProfileSource. Finnhub exposes an
// industry but no sector.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	var resp ProfileResponse
	if err := c.http.GetJSON(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, nil
	}
	return &models.CompanyProfile{Name: resp.Name, Industry: resp.FinnhubIndustry}, nil
}

// GetMetrics implements interfaces.MetricsSource.
func (c *Client) GetMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("metric", "all")

	var resp MetricResponse
	if err := c.http.GetJSON(ctx, "/stock/metric", params, &resp); err != nil {
		return nil, err
	}
	m := resp.Metric
	if m == nil {
		return nil, nil
	}

	out := &models.FinancialMetrics{
		PERatio: m.PETTM,
		EPS:     m.EPSTTM,
		PBRatio: m.PBAnnual,
	}
	if m.MarketCapitalization != nil {
		out.MarketCap = models.Float64Ptr(*m.MarketCapitalization * 1_000_000)
	}
	if m.DividendYield != nil {
		out.DividendYield = models.Float64Ptr(*m.DividendYield / 100)
	}
	if m.DebtEquity != nil {
		out.DebtToEquity = models.Float64Ptr(*m.DebtEquity / 100)
	}
	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}

// GetSentiment implements interfaces.SentimentSource.
func (c *Client) GetSentiment(ctx context.Context, symbol string) (*models.SentimentData, error) {
	var resp SentimentResponse
	if err := c.http.GetJSON(ctx, "/news-sentiment", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}
	if resp.Sentiment == nil || resp.Sentiment.BullishPercent == nil || resp.Sentiment.BearishPercent == nil {
		return nil, nil
	}

	score := (*resp.Sentiment.BullishPercent - *resp.Sentiment.BearishPercent) / 100
	score = math.Max(-1, math.Min(1, score))
	return &models.SentimentData{Score: score, Label: models.SentimentLabel(score)}, nil
}

// Search implements interfaces.SearchSource.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	var resp SearchResponse
	if err := c.http.GetJSON(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}
	matches := make([]models.SymbolMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		if limit > 0 && len(matches) >= limit {
			break
		}
		matches = append(matches, models.SymbolMatch{Symbol: r.Symbol, Name: r.Description})
	}
	return matches, nil
}

func volumeAt(v []int64, i int) int64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
