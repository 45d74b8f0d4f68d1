// Package marketdata implements the resilient market-data gateway: ordered
// provider fallback with retry, blacklist and circuit breaking behind a
// per-kind TTL cache.
package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/metrics"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/cache"
	"github.com/ternarybob/vigil/internal/services/health"
	"github.com/ternarybob/vigil/internal/services/retry"
)

// DefaultScreenLimit applies when a screen or movers request carries no limit.
const DefaultScreenLimit = 50

// CacheTTLs holds the freshness window for each cached kind.
type CacheTTLs struct {
	Quote     time.Duration
	Intraday  time.Duration
	Daily     time.Duration
	Profile   time.Duration
	Metrics   time.Duration
	Sentiment time.Duration
}

// DefaultCacheTTLs returns the standard freshness windows.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Quote:     5 * time.Second,
		Intraday:  2 * time.Minute,
		Daily:     24 * time.Hour,
		Profile:   24 * time.Hour,
		Metrics:   24 * time.Hour,
		Sentiment: 15 * time.Minute,
	}
}

// ProviderStatus is a point-in-time view of one provider's availability.
type ProviderStatus struct {
	Name             string     `json:"name"`
	Blacklisted      bool       `json:"blacklisted"`
	BlacklistedUntil *time.Time `json:"blacklisted_until,omitempty"`
	Breaker          string     `json:"breaker"`
}

// Gateway is the cached, fault-tolerant MarketDataService.
type Gateway struct {
	sources Sources
	health  *health.Registry
	policy  *retry.Policy
	logger  arbor.ILogger
	metrics *metrics.Registry

	breakers         *breakerSet
	breakerSettings  BreakerSettings
	enforcedCooldown time.Duration
	ttls             CacheTTLs
	shared           cache.SharedTier
	now              func() time.Time

	quotes    *cache.Tiered[models.Quote]
	intraday  *cache.Tiered[[]models.IntradayBar]
	daily     *cache.Tiered[[]models.DailyBar]
	profiles  *cache.Tiered[*models.CompanyProfile]
	fundament *cache.Tiered[*models.FinancialMetrics]
	sentiment *cache.Tiered[*models.SentimentData]
}

var _ interfaces.MarketDataService = (*Gateway)(nil)

// Option configures the Gateway.
type Option func(*Gateway)

// WithTTLs overrides the cache freshness windows.
func WithTTLs(ttls CacheTTLs) Option {
	return func(g *Gateway) {
		g.ttls = ttls
	}
}

// WithSharedTier layers a shared cache (Redis) under the in-process caches.
func WithSharedTier(shared cache.SharedTier) Option {
	return func(g *Gateway) {
		g.shared = shared
	}
}

// WithClock replaces time.Now for cache expiry and timing.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithMetrics records cache and provider activity.
func WithMetrics(m *metrics.Registry) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithBreaker enables per-provider circuit breaking.
func WithBreaker(settings BreakerSettings) Option {
	return func(g *Gateway) {
		g.breakerSettings = settings
	}
}

// WithEnforcedCooldown sets the blacklist duration applied on auth failures.
func WithEnforcedCooldown(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.enforcedCooldown = d
		}
	}
}

// NewGateway creates a gateway over sources. healthRegistry and policy must not be nil.
func NewGateway(sources Sources, healthRegistry *health.Registry, policy *retry.Policy, logger arbor.ILogger, opts ...Option) *Gateway {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	g := &Gateway{
		sources:          sources,
		health:           healthRegistry,
		policy:           policy,
		logger:           logger,
		enforcedCooldown: health.DefaultEnforcedCooldown,
		ttls:             DefaultCacheTTLs(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.breakers = newBreakerSet(g.breakerSettings, logger)
	g.quotes = cache.NewTiered(KindQuote, cache.NewTTLCache[models.Quote](g.ttls.Quote, g.now), g.shared, logger)
	g.intraday = cache.NewTiered(KindIntraday, cache.NewTTLCache[[]models.IntradayBar](g.ttls.Intraday, g.now), g.shared, logger)
	g.daily = cache.NewTiered(KindDaily, cache.NewTTLCache[[]models.DailyBar](g.ttls.Daily, g.now), g.shared, logger)
	g.profiles = cache.NewTiered(KindProfile, cache.NewTTLCache[*models.CompanyProfile](g.ttls.Profile, g.now), g.shared, logger)
	g.fundament = cache.NewTiered(KindMetrics, cache.NewTTLCache[*models.FinancialMetrics](g.ttls.Metrics, g.now), g.shared, logger)
	g.sentiment = cache.NewTiered(KindSentiment, cache.NewTTLCache[*models.SentimentData](g.ttls.Sentiment, g.now), g.shared, logger)

	return g
}

// Providers lists every registered provider name.
func (g *Gateway) Providers() []string {
	return g.sources.Names()
}

// Status reports blacklist and breaker state for every registered provider.
func (g *Gateway) Status() []ProviderStatus {
	until := make(map[string]time.Time)
	for _, entry := range g.health.Blacklisted() {
		until[entry.Provider] = entry.BlacklistedUntil
	}

	var statuses []ProviderStatus
	for _, name := range g.sources.Names() {
		status := ProviderStatus{Name: name, Breaker: g.breakers.state(name)}
		if t, ok := until[name]; ok {
			status.Blacklisted = true
			status.BlacklistedUntil = models.TimePtr(t)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// GetQuote returns a fresh quote for symbol, or nil.
func (g *Gateway) GetQuote(ctx context.Context, symbol string) *models.Quote {
	symbol = normalize(symbol)
	quotes := g.GetQuotes(ctx, []string{symbol})
	if q, ok := quotes[symbol]; ok {
		return &q
	}
	return nil
}

// GetQuotes serves cached quotes and asks providers, in order, only for the
// symbols still missing. Symbols nobody can price are omitted.
func (g *Gateway) GetQuotes(ctx context.Context, symbols []string) map[string]models.Quote {
	result := make(map[string]models.Quote, len(symbols))
	var missing []string
	seen := make(map[string]bool)

	for _, raw := range symbols {
		symbol := normalize(raw)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if q, label, ok := g.quotes.Get(ctx, symbol); ok {
			g.metrics.RecordCacheLookup(KindQuote, label)
			result[symbol] = q
			continue
		}
		g.metrics.RecordCacheLookup(KindQuote, cache.ResultMiss)
		missing = append(missing, symbol)
	}

	for _, src := range g.sources.Quotes {
		if len(missing) == 0 {
			break
		}
		if !g.available(src.Name()) {
			continue
		}

		batch := missing
		quotes, err := invoke(ctx, g, src.Name(), KindQuote, func(ctx context.Context) (map[string]models.Quote, error) {
			return src.GetQuotes(ctx, batch)
		})
		if err != nil {
			g.logFailure(src.Name(), KindQuote, strings.Join(batch, ","), err)
			continue
		}

		var still []string
		for _, symbol := range batch {
			q, ok := quotes[symbol]
			if !ok || q.Price <= 0 {
				still = append(still, symbol)
				continue
			}
			q.Symbol = symbol
			g.quotes.Put(ctx, symbol, q)
			result[symbol] = q
		}
		missing = still
	}

	if len(missing) > 0 {
		g.logger.Debug().Strs("symbols", missing).Msg("No provider could quote symbols")
	}
	return result
}

// GetIntradayBars returns 5-minute bars for the last days trading days.
func (g *Gateway) GetIntradayBars(ctx context.Context, symbol string, days int) []models.IntradayBar {
	symbol = normalize(symbol)
	key := fmt.Sprintf("%s:%d", symbol, days)
	if bars, label, ok := g.intraday.Get(ctx, key); ok {
		g.metrics.RecordCacheLookup(KindIntraday, label)
		return bars
	}
	g.metrics.RecordCacheLookup(KindIntraday, cache.ResultMiss)

	bars, ok := tryProviders(ctx, g, KindIntraday, symbol, g.sources.Intraday,
		func(ctx context.Context, src interfaces.IntradaySource) ([]models.IntradayBar, error) {
			return src.GetIntradayBars(ctx, symbol, days)
		},
		func(bars []models.IntradayBar) bool { return len(bars) > 0 })
	if !ok {
		return nil
	}
	g.intraday.Put(ctx, key, bars)
	return bars
}

// GetDailyBars returns up to days end-of-day bars, oldest first.
func (g *Gateway) GetDailyBars(ctx context.Context, symbol string, days int) []models.DailyBar {
	symbol = normalize(symbol)
	key := fmt.Sprintf("%s:%d", symbol, days)
	if bars, label, ok := g.daily.Get(ctx, key); ok {
		g.metrics.RecordCacheLookup(KindDaily, label)
		return bars
	}
	g.metrics.RecordCacheLookup(KindDaily, cache.ResultMiss)

	bars, ok := tryProviders(ctx, g, KindDaily, symbol, g.sources.Daily,
		func(ctx context.Context, src interfaces.DailySource) ([]models.DailyBar, error) {
			return src.GetDailyBars(ctx, symbol, days)
		},
		func(bars []models.DailyBar) bool { return len(bars) > 0 })
	if !ok {
		return nil
	}
	g.daily.Put(ctx, key, bars)
	return bars
}

// GetProfile merges profile fields across providers until the profile is complete.
func (g *Gateway) GetProfile(ctx context.Context, symbol string) *models.CompanyProfile {
	symbol = normalize(symbol)
	if p, label, ok := g.profiles.Get(ctx, symbol); ok {
		g.metrics.RecordCacheLookup(KindProfile, label)
		return p
	}
	g.metrics.RecordCacheLookup(KindProfile, cache.ResultMiss)

	var merged *models.CompanyProfile
	for _, src := range g.sources.Profiles {
		if !g.available(src.Name()) {
			continue
		}
		p, err := invoke(ctx, g, src.Name(), KindProfile, func(ctx context.Context) (*models.CompanyProfile, error) {
			return src.GetProfile(ctx, symbol)
		})
		if err != nil {
			g.logFailure(src.Name(), KindProfile, symbol, err)
			continue
		}
		if p == nil {
			continue
		}
		if merged == nil {
			copied := *p
			merged = &copied
		} else {
			merged.Merge(p)
		}
		if merged.IsComplete() && merged.Description != "" {
			break
		}
	}

	if merged == nil {
		return nil
	}
	g.profiles.Put(ctx, symbol, merged)
	return merged
}

// GetMetrics merges fundamentals across providers until the critical fields are known.
func (g *Gateway) GetMetrics(ctx context.Context, symbol string) *models.FinancialMetrics {
	symbol = normalize(symbol)
	if m, label, ok := g.fundament.Get(ctx, symbol); ok {
		g.metrics.RecordCacheLookup(KindMetrics, label)
		return m
	}
	g.metrics.RecordCacheLookup(KindMetrics, cache.ResultMiss)

	merged := &models.FinancialMetrics{}
	for _, src := range g.sources.Metrics {
		if !g.available(src.Name()) {
			continue
		}
		m, err := invoke(ctx, g, src.Name(), KindMetrics, func(ctx context.Context) (*models.FinancialMetrics, error) {
			return src.GetMetrics(ctx, symbol)
		})
		if err != nil {
			g.logFailure(src.Name(), KindMetrics, symbol, err)
			continue
		}
		merged.Merge(m)
		if merged.IsComplete() {
			break
		}
	}

	if merged.IsEmpty() {
		return nil
	}
	g.fundament.Put(ctx, symbol, merged)
	return merged
}

// GetSentiment returns the first available sentiment score.
func (g *Gateway) GetSentiment(ctx context.Context, symbol string) *models.SentimentData {
	symbol = normalize(symbol)
	if s, label, ok := g.sentiment.Get(ctx, symbol); ok {
		g.metrics.RecordCacheLookup(KindSentiment, label)
		return s
	}
	g.metrics.RecordCacheLookup(KindSentiment, cache.ResultMiss)

	s, ok := tryProviders(ctx, g, KindSentiment, symbol, g.sources.Sentiment,
		func(ctx context.Context, src interfaces.SentimentSource) (*models.SentimentData, error) {
			return src.GetSentiment(ctx, symbol)
		},
		func(s *models.SentimentData) bool { return s != nil })
	if !ok {
		return nil
	}
	g.sentiment.Put(ctx, symbol, s)
	return s
}

// Screen unions screener results across providers up to the criteria limit.
func (g *Gateway) Screen(ctx context.Context, criteria models.ScreenerCriteria) []string {
	limit := criteria.Limit
	if limit <= 0 {
		limit = DefaultScreenLimit
	}
	return collect(ctx, g, KindScreener, g.sources.Screeners, limit,
		func(ctx context.Context, src interfaces.ScreenerSource, remaining int) ([]string, error) {
			c := criteria
			c.Limit = remaining
			return src.Screen(ctx, c)
		})
}

// TopGainers unions the day's gainers across providers.
func (g *Gateway) TopGainers(ctx context.Context, limit int) []string {
	return g.movers(ctx, limit, func(ctx context.Context, src interfaces.MoversSource, n int) ([]string, error) {
		return src.TopGainers(ctx, n)
	})
}

// TopLosers unions the day's losers across providers.
func (g *Gateway) TopLosers(ctx context.Context, limit int) []string {
	return g.movers(ctx, limit, func(ctx context.Context, src interfaces.MoversSource, n int) ([]string, error) {
		return src.TopLosers(ctx, n)
	})
}

// MostActive unions the most active symbols across providers.
func (g *Gateway) MostActive(ctx context.Context, limit int) []string {
	return g.movers(ctx, limit, func(ctx context.Context, src interfaces.MoversSource, n int) ([]string, error) {
		return src.MostActive(ctx, n)
	})
}

func (g *Gateway) movers(ctx context.Context, limit int, call func(context.Context, interfaces.MoversSource, int) ([]string, error)) []string {
	if limit <= 0 {
		limit = DefaultScreenLimit
	}
	return collect(ctx, g, KindMovers, g.sources.Movers, limit, call)
}

// Search unions symbol matches across providers up to limit.
func (g *Gateway) Search(ctx context.Context, query string, limit int) []models.SymbolMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	var results []models.SymbolMatch
	seen := make(map[string]bool)
	for _, src := range g.sources.Search {
		if len(results) >= limit {
			break
		}
		if !g.available(src.Name()) {
			continue
		}
		remaining := limit - len(results)
		matches, err := invoke(ctx, g, src.Name(), KindSearch, func(ctx context.Context) ([]models.SymbolMatch, error) {
			return src.Search(ctx, query, remaining)
		})
		if err != nil {
			g.logFailure(src.Name(), KindSearch, query, err)
			continue
		}
		for _, m := range matches {
			symbol := normalize(m.Symbol)
			if symbol == "" || seen[symbol] || len(results) >= limit {
				continue
			}
			seen[symbol] = true
			m.Symbol = symbol
			results = append(results, m)
		}
	}
	return results
}

// ClearCaches drops every in-process cache. The shared tier expires on its own.
func (g *Gateway) ClearCaches() {
	g.quotes.ClearLocal()
	g.intraday.ClearLocal()
	g.daily.ClearLocal()
	g.profiles.ClearLocal()
	g.fundament.ClearLocal()
	g.sentiment.ClearLocal()
	g.logger.Debug().Msg("Market data caches cleared")
}

// available reports whether provider may be called right now.
func (g *Gateway) available(provider string) bool {
	if g.health.IsBlacklisted(provider) {
		g.logger.Debug().Str("provider", provider).Msg("Skipping blacklisted provider")
		return false
	}
	if g.breakers.isOpen(provider) {
		g.logger.Debug().Str("provider", provider).Msg("Skipping provider with open breaker")
		return false
	}
	return true
}

func (g *Gateway) logFailure(provider, kind, subject string, err error) {
	g.logger.Warn().
		Str("provider", provider).
		Str("kind", kind).
		Str("subject", subject).
		Err(err).
		Msg("Provider call failed")
}

// invoke runs op under the retry policy inside the provider's breaker and
// blacklists the provider on auth failures.
func invoke[T any](ctx context.Context, g *Gateway, provider, kind string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := g.now()

	run := func() (interface{}, error) {
		v, err := retry.Run(ctx, g.policy, provider+":"+kind, op)
		return v, err
	}

	var out interface{}
	var err error
	if cb := g.breakers.get(provider); cb != nil {
		out, err = cb.Execute(run)
	} else {
		out, err = run()
	}
	elapsed := g.now().Sub(start)

	if err != nil {
		g.metrics.RecordProviderCall(provider, kind, "error", elapsed)
		if retry.IsAuthError(err) {
			g.health.Blacklist(provider, g.enforcedCooldown)
			g.metrics.RecordBlacklist(provider)
		}
		return zero, err
	}

	g.metrics.RecordProviderCall(provider, kind, "success", elapsed)
	v, ok := out.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}

// tryProviders returns the first valid result from sources in order.
func tryProviders[S interfaces.DataSource, T any](
	ctx context.Context,
	g *Gateway,
	kind, subject string,
	sources []S,
	call func(context.Context, S) (T, error),
	valid func(T) bool,
) (T, bool) {
	var zero T
	for _, src := range sources {
		if ctx.Err() != nil {
			return zero, false
		}
		if !g.available(src.Name()) {
			continue
		}
		v, err := invoke(ctx, g, src.Name(), kind, func(ctx context.Context) (T, error) {
			return call(ctx, src)
		})
		if err != nil {
			g.logFailure(src.Name(), kind, subject, err)
			continue
		}
		if valid(v) {
			return v, true
		}
	}
	return zero, false
}

// collect unions distinct symbols across sources, asking each for the remainder.
func collect[S interfaces.DataSource](
	ctx context.Context,
	g *Gateway,
	kind string,
	sources []S,
	limit int,
	call func(context.Context, S, int) ([]string, error),
) []string {
	var results []string
	seen := make(map[string]bool)

	for _, src := range sources {
		if len(results) >= limit || ctx.Err() != nil {
			break
		}
		if !g.available(src.Name()) {
			continue
		}
		remaining := limit - len(results)
		symbols, err := invoke(ctx, g, src.Name(), kind, func(ctx context.Context) ([]string, error) {
			return call(ctx, src, remaining)
		})
		if err != nil {
			g.logFailure(src.Name(), kind, "", err)
			continue
		}
		for _, s := range symbols {
			symbol := normalize(s)
			if symbol == "" || seen[symbol] || len(results) >= limit {
				continue
			}
			seen[symbol] = true
			results = append(results, symbol)
		}
	}
	return results
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
