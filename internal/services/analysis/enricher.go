package analysis

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/indicators"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// Enrichment windows
const (
	IntradayDays = 2
	EODDays      = 200

	indicatorPeriod      = 14
	defaultEnrichWorkers = 4
)

// Enricher gathers indicator and fundamentals context for shortlisted symbols.
type Enricher struct {
	gateway     interfaces.MarketDataService
	concurrency int
	logger      arbor.ILogger
}

// NewEnricher creates an enricher fanning out at most concurrency symbols at a time.
func NewEnricher(gateway interfaces.MarketDataService, concurrency int, logger arbor.ILogger) *Enricher {
	if concurrency <= 0 {
		concurrency = defaultEnrichWorkers
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Enricher{gateway: gateway, concurrency: concurrency, logger: logger}
}

// Intraday computes VWAP, RSI-14 and ATR-14 over days of 5-minute bars.
// Symbols without bars are omitted.
func (e *Enricher) Intraday(ctx context.Context, symbols []string, days int) map[string]models.IntradayStats {
	return fanOut(ctx, e, "intraday", symbols, func(ctx context.Context, symbol string) (models.IntradayStats, bool) {
		bars := e.gateway.GetIntradayBars(ctx, symbol, days)
		if len(bars) == 0 {
			return models.IntradayStats{}, false
		}
		var stats models.IntradayStats
		if v, ok := indicators.VWAP(bars); ok {
			stats.VWAP = models.Float64Ptr(v)
		}
		if v, ok := indicators.RSI(indicators.IntradayCloses(bars), indicatorPeriod); ok {
			stats.RSI14 = models.Float64Ptr(v)
		}
		if v, ok := indicators.ATR(bars, indicatorPeriod); ok {
			stats.ATR14 = models.Float64Ptr(v)
		}
		return stats, true
	})
}

// EOD computes SMA-50 and SMA-200 over days daily bars.
func (e *Enricher) EOD(ctx context.Context, symbols []string, days int) map[string]models.EodStats {
	return fanOut(ctx, e, "eod", symbols, func(ctx context.Context, symbol string) (models.EodStats, bool) {
		bars := e.gateway.GetDailyBars(ctx, symbol, days)
		if len(bars) == 0 {
			return models.EodStats{}, false
		}
		closes := indicators.DailyCloses(bars)
		var stats models.EodStats
		if v, ok := indicators.SMA(closes, 50); ok {
			stats.SMA50 = models.Float64Ptr(v)
		}
		if v, ok := indicators.SMA(closes, 200); ok {
			stats.SMA200 = models.Float64Ptr(v)
		}
		return stats, true
	})
}

// Context fetches profile, metrics and sentiment. Each is independent; a
// symbol with none of them is omitted.
func (e *Enricher) Context(ctx context.Context, symbols []string) map[string]models.SymbolContext {
	return fanOut(ctx, e, "context", symbols, func(ctx context.Context, symbol string) (models.SymbolContext, bool) {
		sc := models.SymbolContext{
			Profile:   e.gateway.GetProfile(ctx, symbol),
			Metrics:   e.gateway.GetMetrics(ctx, symbol),
			Sentiment: e.gateway.GetSentiment(ctx, symbol),
		}
		ok := sc.Profile != nil || sc.Metrics != nil || sc.Sentiment != nil
		return sc, ok
	})
}

// fanOut runs fn per symbol with at most e.concurrency in flight. A panic
// in one symbol skips only that symbol.
func fanOut[T any](ctx context.Context, e *Enricher, kind string, symbols []string, fn func(context.Context, string) (T, bool)) map[string]T {
	results := make(map[string]T, len(symbols))
	if len(symbols) == 0 {
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.concurrency)
	)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer common.Recover(e.logger, "enrich:"+kind+":"+symbol)

			v, ok := fn(ctx, symbol)
			if !ok {
				e.logger.Debug().Str("kind", kind).Str("symbol", symbol).Msg("No enrichment data")
				return
			}
			mu.Lock()
			results[symbol] = v
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	e.logger.Debug().
		Str("kind", kind).
		Int("requested", len(symbols)).
		Int("enriched", len(results)).
		Msg("Enrichment complete")
	return results
}
