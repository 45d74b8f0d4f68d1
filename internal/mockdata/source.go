// Package mockdata is a deterministic synthetic data source used when no
// vendor credentials are configured. Values are derived from a hash of the
// symbol so repeated runs see the same market.
package mockdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// Name is the provider name used for health tracking.
const Name = "mock"

var universe = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "JPM", "BAC", "SPY",
	"QQQ", "AMD", "NFLX", "DIS", "XOM", "CVX", "KO", "PEP", "WMT", "COST",
}

// Source implements every capability interface.
type Source struct {
	now func() time.Time
}

// New creates a mock source. now may be nil to use time.Now.
func New(now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{now: now}
}

// Name returns the provider name.
func (s *Source) Name() string {
	return Name
}

func seed(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(symbol)))
	return h.Sum32()
}

func basePrice(symbol string) float64 {
	return 20 + float64(seed(symbol)%40000)/100
}

// GetQuotes implements interfaces.QuoteSource.
func (s *Source) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	now := s.now()
	out := make(map[string]models.Quote, len(symbols))
	for _, symbol := range symbols {
		sd := seed(symbol)
		change := float64(int(sd%800)-400) / 100
		out[symbol] = models.Quote{
			Symbol:        symbol,
			Price:         basePrice(symbol),
			Volume:        1_500_000 + int64(sd%20)*100_000,
			Timestamp:     now,
			ChangePercent: models.Float64Ptr(change),
		}
	}
	return out, nil
}

// GetIntradayBars implements interfaces.IntradaySource with 30 bars per day.
func (s *Source) GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error) {
	if days <= 0 {
		return nil, nil
	}
	n := days * 30
	now := s.now()
	base := basePrice(symbol)
	bars := make([]models.IntradayBar, n)
	for i := 0; i < n; i++ {
		closePrice := base + float64(i%5-2)*0.2
		bars[i] = models.IntradayBar{
			Time:   now.Add(-time.Duration(n-1-i) * 5 * time.Minute),
			Open:   closePrice - 0.05,
			High:   closePrice + 0.1,
			Low:    closePrice - 0.1,
			Close:  closePrice,
			Volume: 5_000 + int64(i)*50,
		}
	}
	return bars, nil
}

// GetDailyBars implements interfaces.DailySource with a gentle uptrend
// ending near the quote price.
func (s *Source) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error) {
	if days <= 0 {
		return nil, nil
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := basePrice(symbol)
	start := end * 0.8
	step := (end - start) / float64(days)

	bars := make([]models.DailyBar, days)
	for i := 0; i < days; i++ {
		base := start + float64(i)*step
		bars[i] = models.DailyBar{
			Date:   today.AddDate(0, 0, -(days - 1 - i)),
			Open:   base - 0.3,
			High:   base + 0.6,
			Low:    base - 0.8,
			Close:  base + 0.1,
			Volume: 2_000_000 + int64(i)*10_000,
		}
	}
	return bars, nil
}

// GetProfile implements interfaces.ProfileSource.
func (s *Source) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	return &models.CompanyProfile{
		Name:        symbol + " Corp",
		Sector:      "Technology",
		Industry:    "Software",
		Description: fmt.Sprintf("Mock profile for %s.", symbol),
	}, nil
}

// GetMetrics implements interfaces.MetricsSource. Earnings are always a
// month away so the ranker's earnings penalty stays quiet.
func (s *Source) GetMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error) {
	return &models.FinancialMetrics{
		MarketCap:    models.Float64Ptr(125_000_000_000),
		PERatio:      models.Float64Ptr(22.5),
		EPS:          models.Float64Ptr(3.2),
		EarningsDate: models.TimePtr(s.now().AddDate(0, 1, 0)),
	}, nil
}

// GetSentiment implements interfaces.SentimentSource.
func (s *Source) GetSentiment(ctx context.Context, symbol string) (*models.SentimentData, error) {
	score := float64(int(seed(symbol)%100)-50) / 100
	return &models.SentimentData{Score: score, Label: models.SentimentLabel(score)}, nil
}

// Screen implements interfaces.ScreenerSource over a fixed universe.
func (s *Source) Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]string, error) {
	quotes, _ := s.GetQuotes(ctx, universe)
	var out []string
	for _, symbol := range universe {
		q := quotes[symbol]
		if q.Price < criteria.MinPrice || q.Volume < criteria.MinVolume {
			continue
		}
		if criteria.MaxPrice > 0 && q.Price > criteria.MaxPrice {
			continue
		}
		out = append(out, symbol)
		if criteria.Limit > 0 && len(out) >= criteria.Limit {
			break
		}
	}
	return out, nil
}

// TopGainers implements interfaces.MoversSource.
func (s *Source) TopGainers(ctx context.Context, limit int) ([]string, error) {
	return s.movers(ctx, limit, func(c float64) bool { return c > 0 })
}

// TopLosers implements interfaces.MoversSource.
func (s *Source) TopLosers(ctx context.Context, limit int) ([]string, error) {
	return s.movers(ctx, limit, func(c float64) bool { return c < 0 })
}

// MostActive implements interfaces.MoversSource.
func (s *Source) MostActive(ctx context.Context, limit int) ([]string, error) {
	return s.movers(ctx, limit, func(float64) bool { return true })
}

func (s *Source) movers(ctx context.Context, limit int, keep func(float64) bool) ([]string, error) {
	quotes, _ := s.GetQuotes(ctx, universe)
	var out []string
	for _, symbol := range universe {
		if !keep(*quotes[symbol].ChangePercent) {
			continue
		}
		out = append(out, symbol)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Search implements interfaces.SearchSource with a prefix match.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	q := strings.ToUpper(strings.TrimSpace(query))
	var out []models.SymbolMatch
	for _, symbol := range universe {
		if q != "" && !strings.HasPrefix(symbol, q) {
			continue
		}
		out = append(out, models.SymbolMatch{Symbol: symbol, Name: symbol + " Corp", Exchange: "MOCK"})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
