// Package fmp adapts the Financial Modeling Prep API to the market-data
// capability interfaces. FMP is the broadest vendor: it also serves the
// screener, movers and symbol search.
package fmp

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
	Name = "fmp"

	// DefaultBaseURL is the base URL for the FMP API.
	DefaultBaseURL = "https://financialmodelingprep.com/api"

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	chartTimeLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// Client is an FMP API client.
type Client struct {
	apiKey string
	http   *httpclient.Client
	now    func() time.Time
}

// NewClient creates an FMP client.
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
	params.Set("apikey", c.apiKey)
	return c.http.GetJSON(ctx, path, params, result)
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// GetQuotes implements interfaces.QuoteSource with one batched request.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}

	var resp []Quote
	if err := c.get(ctx, "/v3/quote/"+strings.Join(symbols, ","), nil, &resp); err != nil {
		return nil, err
	}

	quotes := make(map[string]models.Quote, len(resp))
	for _, q := range resp {
		if q.Symbol == "" || q.Price == nil {
			continue
		}
		ts := c.now()
		if q.Timestamp > 0 {
			ts = time.Unix(q.Timestamp, 0).UTC()
		}
		var volume int64
		if q.Volume != nil {
			volume = *q.Volume
		}
		quotes[q.Symbol] = models.Quote{
			Symbol:        q.Symbol,
			Price:         *q.Price,
			Volume:        volume,
			Timestamp:     ts,
			ChangePercent: q.ChangesPercentage,
		}
	}
	return quotes, nil
}

func (c *Client) chart(ctx context.Context, timeframe, symbol string, days int) ([]ChartBar, error) {
	to := c.now()
	from := to.AddDate(0, 0, -days)

	params := url.Values{}
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))

	var resp []ChartBar
	if err := c.get(ctx, "/v3/historical-chart/"+timeframe+"/"+symbol, params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetIntradayBars implements interfaces.IntradaySource. Bars are returned oldest first.
func (c *Client) GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	raw, err := c.chart(ctx, "5min", symbol, days)
	if err != nil {
		return nil, err
	}

	bars := make([]models.IntradayBar, 0, len(raw))
	for _, b := range raw {
		if b.Open == nil || b.High == nil || b.Low == nil || b.Close == nil {
			continue
		}
		t, err := time.Parse(chartTimeLayout, b.Date)
		if err != nil {
			continue
		}
		bars = append(bars, models.IntradayBar{Time: t, Open: *b.Open, High: *b.High, Low: *b.Low, Close: *b.Close, Volume: b.Volume})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// GetDailyBars implements interfaces.DailySource. Bars are returned oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error) {
	if symbol == "" || days <= 0 {
		return nil, nil
	}
	raw, err := c.chart(ctx, "1day", symbol, days*7/5+7)
	if err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(raw))
	for _, b := range raw {
		if b.Open == nil || b.High == nil || b.Low == nil || b.Close == nil {
			continue
		}
		date, ok := parseDay(b.Date)
		if !ok {
			continue
		}
		bars = append(bars, models.DailyBar{Date: date, Open: *b.Open, High: *b.High, Low: *b.Low, Close: *b.Close, Volume: b.Volume})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// GetProfile implements interfaces.ProfileSource.
func (c *Client) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	var resp []Profile
	if err := c.get(ctx, "/v3/profile/"+symbol, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, nil
	}
	p := resp[0]
	name := p.CompanyName
	if name == "" {
		name = symbol
	}
	return &models.CompanyProfile{Name: name, Sector: p.Sector, Industry: p.Industry, Description: p.Description}, nil
}

// GetMetrics implements interfaces.MetricsSource. The earnings date comes
// from the quote endpoint.
func (c *Client) GetMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	params := url.Values{}
	params.Set("limit", "1")

	var resp []KeyMetrics
	if err := c.get(ctx, "/v3/key-metrics/"+symbol, params, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, nil
	}
	k := resp[0]
	out := &models.FinancialMetrics{
		MarketCap:     k.MarketCap,
		PERatio:       k.PERatio,
		EPS:           k.NetIncomePerShare,
		DividendYield: k.DividendYield,
		PBRatio:       k.PBRatio,
		DebtToEquity:  k.DebtToEquity,
	}

	var quotes []Quote
	if err := c.get(ctx, "/v3/quote/"+symbol, nil, &quotes); err == nil && len(quotes) > 0 {
		if t, ok := parseEarnings(quotes[0].EarningsAnnouncement); ok {
			out.EarningsDate = &t
		}
	}
	return out, nil
}

// GetSentiment implements interfaces.SentimentSource. The average article
// score in [0, 1] is rescaled to [-1, 1].
func (c *Client) GetSentiment(ctx context.Context, symbol string) (*models.SentimentData, error) {
	params := url.Values{}
	params.Set("tickers", symbol)
	params.Set("page", "0")

	var resp []NewsSentiment
	if err := c.get(ctx, "/v3/stock-news-sentiments-rss-feed", params, &resp); err != nil {
		return nil, err
	}

	var sum float64
	var n int
	for _, item := range resp {
		if item.SentimentScore != nil {
			sum += *item.SentimentScore
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}

	score := (sum/float64(n) - 0.5) * 2
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return &models.SentimentData{Score: score, Label: models.SentimentLabel(score)}, nil
}

// Screen implements interfaces.ScreenerSource.
func (c *Client) Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]string, error) {
	params := url.Values{}
	if criteria.MinPrice > 0 {
		params.Set("priceMoreThan", strconv.FormatFloat(criteria.MinPrice, 'f', -1, 64))
	}
	if criteria.MaxPrice > 0 {
		params.Set("priceLowerThan", strconv.FormatFloat(criteria.MaxPrice, 'f', -1, 64))
	}
	if criteria.MinVolume > 0 {
		params.Set("volumeMoreThan", strconv.FormatInt(criteria.MinVolume, 10))
	}
	if criteria.Limit > 0 {
		params.Set("limit", strconv.Itoa(criteria.Limit))
	}
	params.Set("isActivelyTrading", "true")

	return c.symbols(ctx, "/v3/stock-screener", params, criteria.Limit)
}

// TopGainers implements interfaces.MoversSource.
func (c *Client) TopGainers(ctx context.Context, limit int) ([]string, error) {
	return c.symbols(ctx, "/v3/stock_market/gainers", nil, limit)
}

// TopLosers implements interfaces.MoversSource.
func (c *Client) TopLosers(ctx context.Context, limit int) ([]string, error) {
	return c.symbols(ctx, "/v3/stock_market/losers", nil, limit)
}

// MostActive implements interfaces.MoversSource.
func (c *Client) MostActive(ctx context.Context, limit int) ([]string, error) {
	return c.symbols(ctx, "/v3/stock_market/actives", nil, limit)
}

// Search implements interfaces.SearchSource.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("query", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp []SymbolEntry
	if err := c.get(ctx, "/v3/search", params, &resp); err != nil {
		return nil, err
	}
	matches := make([]models.SymbolMatch, 0, len(resp))
	for _, e := range resp {
		exchange := e.ExchangeShortName
		if exchange == "" {
			exchange = e.StockExchange
		}
		matches = append(matches, models.SymbolMatch{Symbol: e.Symbol, Name: e.Name, Exchange: exchange})
	}
	return matches, nil
}

func (c *Client) symbols(ctx context.Context, path string, params url.Values, limit int) ([]string, error) {
	var resp []SymbolEntry
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp))
	for _, e := range resp {
		if e.Symbol == "" {
			continue
		}
		out = append(out, e.Symbol)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func parseDay(s string) (time.Time, bool) {
	if strings.Contains(s, " ") {
		t, err := time.Parse(chartTimeLayout, s)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

func parseEarnings(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
