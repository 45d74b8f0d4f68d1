package interfaces

import (
	"context"

	"github.com/ternarybob/vigil/internal/models"
)

// DataSource is implemented by every market-data vendor adapter.
// A vendor opts into a data kind by also implementing that kind's interface.
type DataSource interface {
	Name() string
}

// QuoteSource returns quotes for a batch of symbols. Symbols the vendor
// cannot price are omitted from the map.
type QuoteSource interface {
	DataSource
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}

// IntradaySource returns 5-minute bars covering the last days trading days.
type IntradaySource interface {
	DataSource
	GetIntradayBars(ctx context.Context, symbol string, days int) ([]models.IntradayBar, error)
}

// DailySource returns up to days end-of-day bars, oldest first.
type DailySource interface {
	DataSource
	GetDailyBars(ctx context.Context, symbol string, days int) ([]models.DailyBar, error)
}

// ProfileSource returns issuer descriptions.
type ProfileSource interface {
	DataSource
	GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error)
}

// MetricsSource returns fundamental ratios.
type MetricsSource interface {
	DataSource
	GetMetrics(ctx context.Context, symbol string) (*models.FinancialMetrics, error)
}

// SentimentSource returns a news sentiment score.
type SentimentSource interface {
	DataSource
	GetSentiment(ctx context.Context, symbol string) (*models.SentimentData, error)
}

// ScreenerSource filters the listed universe.
type ScreenerSource interface {
	DataSource
	Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]string, error)
}

// MoversSource lists the day's top movers.
type MoversSource interface {
	DataSource
	TopGainers(ctx context.Context, limit int) ([]string, error)
	TopLosers(ctx context.Context, limit int) ([]string, error)
	MostActive(ctx context.Context, limit int) ([]string, error)
}

// SearchSource resolves free text to symbols.
type SearchSource interface {
	DataSource
	Search(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error)
}

// MarketDataService is the resilient, cached view over all data sources.
// Methods never return errors; absence means unknown.
type MarketDataService interface {
	GetQuote(ctx context.Context, symbol string) *models.Quote
	GetQuotes(ctx context.Context, symbols []string) map[string]models.Quote
	GetIntradayBars(ctx context.Context, symbol string, days int) []models.IntradayBar
	GetDailyBars(ctx context.Context, symbol string, days int) []models.DailyBar
	GetProfile(ctx context.Context, symbol string) *models.CompanyProfile
	GetMetrics(ctx context.Context, symbol string) *models.FinancialMetrics
	GetSentiment(ctx context.Context, symbol string) *models.SentimentData
	Screen(ctx context.Context, criteria models.ScreenerCriteria) []string
	TopGainers(ctx context.Context, limit int) []string
	TopLosers(ctx context.Context, limit int) []string
	MostActive(ctx context.Context, limit int) []string
	Search(ctx context.Context, query string, limit int) []models.SymbolMatch
	ClearCaches()
}

// NotificationSink delivers alerts raised by background checks.
type NotificationSink interface {
	Notify(ctx context.Context, alert models.Alert) error
}
