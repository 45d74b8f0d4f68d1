package marketdata

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/alpaca"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/eodhd"
	"github.com/ternarybob/vigil/internal/finnhub"
	"github.com/ternarybob/vigil/internal/fmp"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/mockdata"
	"github.com/ternarybob/vigil/internal/polygon"
)

// Provider order per data kind. Vendors missing from the configured set are skipped.
var (
	PriceOrder     = []string{alpaca.Name, polygon.Name, finnhub.Name, fmp.Name, eodhd.Name, mockdata.Name}
	ProfileOrder   = []string{fmp.Name, finnhub.Name, polygon.Name, eodhd.Name, alpaca.Name, mockdata.Name}
	MetricsOrder   = []string{fmp.Name, finnhub.Name, polygon.Name, eodhd.Name, mockdata.Name}
	SentimentOrder = []string{fmp.Name, finnhub.Name, mockdata.Name}
	ScreenerOrder  = []string{fmp.Name, polygon.Name, mockdata.Name}
	MoversOrder    = []string{fmp.Name, alpaca.Name, polygon.Name, mockdata.Name}
	SearchOrder    = []string{fmp.Name, polygon.Name, finnhub.Name, eodhd.Name, mockdata.Name}
)

// BuildSources constructs an adapter for every enabled vendor whose key
// resolves and orders them per data kind. The synthetic adapter is used only
// when nothing resolves and cfg.UseMockWhenEmpty is set.
func BuildSources(ctx context.Context, cfg common.ProvidersConfig, kv interfaces.KeyValueStorage, logger arbor.ILogger) Sources {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	adapters := make(map[string]interfaces.DataSource)

	resolve := func(vendor string, vc common.VendorConfig, keyName string) (string, bool) {
		if !vc.Enabled {
			return "", false
		}
		key, err := common.ResolveAPIKey(ctx, kv, keyName, vc.APIKey)
		if err != nil {
			logger.Debug().Str("provider", vendor).Msg("Provider disabled: no API key")
			return "", false
		}
		return key, true
	}
	timeout := func(vc common.VendorConfig) time.Duration {
		return common.ParseDuration(vc.Timeout, 30*time.Second)
	}

	if key, ok := resolve(alpaca.Name, cfg.Alpaca, "alpaca_api_key"); ok {
		secret, err := common.ResolveAPIKey(ctx, kv, "alpaca_api_secret", cfg.Alpaca.APISecret)
		if err != nil {
			logger.Debug().Str("provider", alpaca.Name).Msg("Provider disabled: no API secret")
		} else {
			adapters[alpaca.Name] = alpaca.NewClient(key, secret, cfg.Alpaca.BaseURL, cfg.Alpaca.RateLimit, timeout(cfg.Alpaca), logger)
		}
	}
	if key, ok := resolve(polygon.Name, cfg.Polygon, "polygon_api_key"); ok {
		adapters[polygon.Name] = polygon.NewClient(key, cfg.Polygon.BaseURL, cfg.Polygon.RateLimit, timeout(cfg.Polygon), logger)
	}
	if key, ok := resolve(finnhub.Name, cfg.Finnhub, "finnhub_api_key"); ok {
		adapters[finnhub.Name] = finnhub.NewClient(key, cfg.Finnhub.BaseURL, cfg.Finnhub.RateLimit, timeout(cfg.Finnhub), logger)
	}
	if key, ok := resolve(fmp.Name, cfg.FMP, "fmp_api_key"); ok {
		adapters[fmp.Name] = fmp.NewClient(key, cfg.FMP.BaseURL, cfg.FMP.RateLimit, timeout(cfg.FMP), logger)
	}
	if key, ok := resolve(eodhd.Name, cfg.EODHD, "eodhd_api_key"); ok {
		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(cfg.EODHD.RateLimit),
			eodhd.WithTimeout(timeout(cfg.EODHD)),
		}
		if cfg.EODHD.BaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(cfg.EODHD.BaseURL))
		}
		adapters[eodhd.Name] = eodhd.NewClient(key, opts...)
	}

	if len(adapters) == 0 && cfg.UseMockWhenEmpty {
		logger.Warn().Msg("No market data provider configured, using synthetic data")
		adapters[mockdata.Name] = mockdata.New(time.Now)
	}

	sources := Arrange(adapters)
	logger.Info().Strs("providers", sources.Names()).Msg("Market data providers ready")
	return sources
}

// Arrange orders adapters, keyed by name, into the per-kind lists.
func Arrange(adapters map[string]interfaces.DataSource) Sources {
	return Sources{
		Quotes:    ordered[interfaces.QuoteSource](adapters, PriceOrder),
		Intraday:  ordered[interfaces.IntradaySource](adapters, PriceOrder),
		Daily:     ordered[interfaces.DailySource](adapters, PriceOrder),
		Profiles:  ordered[interfaces.ProfileSource](adapters, ProfileOrder),
		Metrics:   ordered[interfaces.MetricsSource](adapters, MetricsOrder),
		Sentiment: ordered[interfaces.SentimentSource](adapters, SentimentOrder),
		Screeners: ordered[interfaces.ScreenerSource](adapters, ScreenerOrder),
		Movers:    ordered[interfaces.MoversSource](adapters, MoversOrder),
		Search:    ordered[interfaces.SearchSource](adapters, SearchOrder),
	}
}

func ordered[S any](adapters map[string]interfaces.DataSource, order []string) []S {
	var out []S
	for _, name := range order {
		src, ok := adapters[name]
		if !ok {
			continue
		}
		if typed, ok := src.(S); ok {
			out = append(out, typed)
		}
	}
	return out
}
