package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/metrics"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/analysis"
	"github.com/ternarybob/vigil/internal/services/cache"
	"github.com/ternarybob/vigil/internal/services/health"
	"github.com/ternarybob/vigil/internal/services/llm"
	"github.com/ternarybob/vigil/internal/services/marketdata"
	"github.com/ternarybob/vigil/internal/services/notify"
	"github.com/ternarybob/vigil/internal/services/retry"
	"github.com/ternarybob/vigil/internal/services/rss"
	"github.com/ternarybob/vigil/internal/services/scheduler"
	"github.com/ternarybob/vigil/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	Metrics        *metrics.Registry

	// Market data
	Health  *health.Registry
	Gateway *marketdata.Gateway
	shared  *cache.RedisTier

	// LLM routing
	Router *llm.Router

	// News
	RssClient *rss.Client
	Digest    *rss.DigestBuilder
	Resolver  *rss.Resolver
	Verifier  *rss.Verifier

	// Pipeline
	Orchestrator *analysis.Orchestrator
	DeepDive     *analysis.DeepDive
	Scheduler    *scheduler.Service
	AlertHub     *notify.AlertHub // nil unless notify.websocket is set
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewRegistry(),
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return app, nil
}

func (a *App) initDatabase() error {
	manager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	a.Logger.Debug().Str("path", a.Config.Storage.Badger.Path).Msg("Storage manager initialized")

	if dir := a.Config.Storage.VariablesDir; dir != "" {
		if _, err := manager.LoadVariables(context.Background(), dir); err != nil {
			a.Logger.Warn().Err(err).Str("dir", dir).Msg("Failed to load variables")
		}
	}
	return nil
}

func (a *App) initServices() error {
	ctx := context.Background()
	cfg := a.Config
	kv := a.StorageManager.KeyValueStorage()

	policy := retry.NewPolicy(
		retry.WithLogger(a.Logger),
		retry.WithLimits(
			cfg.Retry.MaxRetries,
			common.ParseDuration(cfg.Retry.InitialDelay, retry.DefaultInitialDelay),
			common.ParseDuration(cfg.Retry.MaxDelay, retry.DefaultMaxDelay),
			cfg.Retry.Multiplier,
			common.ParseDuration(cfg.Retry.RateLimitCooldown, retry.DefaultRateLimitCooldown),
		),
	)

	// 1. Provider health, restored so cool-downs survive restarts
	a.Health = health.NewRegistry(a.Logger,
		health.WithStorage(a.StorageManager.HealthStorage()),
		health.WithOnBlacklisted(func(provider string, _ time.Time) {
			a.Metrics.RecordBlacklist(provider)
		}),
	)
	if err := a.Health.Load(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to restore provider health, starting clean")
	}

	// 2. Market data gateway
	gatewayOpts := []marketdata.Option{
		marketdata.WithMetrics(a.Metrics),
		marketdata.WithTTLs(cacheTTLs(cfg.Cache)),
		marketdata.WithEnforcedCooldown(common.ParseDuration(cfg.Health.EnforcedCooldown, health.DefaultEnforcedCooldown)),
	}
	if cfg.Breaker.Enabled {
		defaults := marketdata.DefaultBreakerSettings()
		settings := marketdata.BreakerSettings{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         common.ParseDuration(cfg.Breaker.OpenTimeout, defaults.OpenTimeout),
			HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
		}
		gatewayOpts = append(gatewayOpts, marketdata.WithBreaker(settings))
	}
	if cfg.Cache.RedisAddr != "" {
		tier, err := cache.NewRedisTier(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.RedisPrefix)
		if err != nil {
			a.Logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Shared cache unavailable, using in-process caches only")
		} else {
			a.shared = tier
			gatewayOpts = append(gatewayOpts, marketdata.WithSharedTier(tier))
		}
	}
	sources := marketdata.BuildSources(ctx, cfg.Providers, kv, a.Logger)
	if sources.IsEmpty() {
		a.Logger.Warn().Msg("No market data providers available; quotes will be empty")
	}
	a.Gateway = marketdata.NewGateway(sources, a.Health, policy, a.Logger, gatewayOpts...)

	// 3. LLM router
	table := llm.NewRoutingTable(cfg.LLM, kv)
	if err := table.Load(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load stored stage routes")
	}
	a.Router = llm.NewRouter(table, a.Logger,
		llm.WithRunner(llm.ProviderAnthropic, llm.NewAnthropicRunner("", a.Logger)),
		llm.WithRunner(llm.ProviderGemini, llm.NewGeminiRunner(a.Logger)),
		llm.WithRunner(llm.ProviderOpenAI, llm.NewOpenAIRunner(cfg.LLM.OpenAIBaseURL, 0, a.Logger)),
		llm.WithKeyStore(kv),
		llm.WithFallbackKey(llm.ProviderAnthropic, cfg.LLM.AnthropicAPIKey),
		llm.WithFallbackKey(llm.ProviderGemini, cfg.LLM.GeminiAPIKey),
		llm.WithFallbackKey(llm.ProviderOpenAI, cfg.LLM.OpenAIAPIKey),
		llm.WithRetryPolicy(policy),
		llm.WithStageMetrics(a.Metrics),
		llm.WithAudit(llm.NewAuditLog(llm.DefaultAuditCapacity)),
	)

	// 4. News feeds
	catalog, err := rss.LoadCatalog(cfg.RSS.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load feed catalog: %w", err)
	}
	rssStore := a.StorageManager.RssStorage()
	a.RssClient = rss.NewClient(rssStore, common.ParseDuration(cfg.RSS.Timeout, 15*time.Second), a.Logger,
		rss.WithClientMetrics(a.Metrics))
	a.Digest = rss.NewDigestBuilder(a.RssClient, rssStore, a.Logger,
		rss.WithWindows(
			time.Duration(cfg.RSS.RetentionDays)*24*time.Hour,
			time.Duration(cfg.RSS.LookbackHours)*time.Hour,
			cfg.RSS.PerTickerLimit,
		))
	a.Resolver = rss.NewResolver(catalog, cfg.RSS.Selection)
	a.Verifier = rss.NewVerifier(a.RssClient, a.Router, a.Logger)

	// 5. Analysis pipeline
	orchestratorOpts := []analysis.Option{
		analysis.WithFeedResolver(a.Resolver),
		analysis.WithDigestBuilder(a.Digest),
		analysis.WithExtraFeeds(cfg.RSS.Feeds),
		analysis.WithMetrics(a.Metrics),
		analysis.WithEnrichConcurrency(cfg.Analysis.EnrichConcurrency),
	}
	if cfg.Analysis.SaveHistory {
		orchestratorOpts = append(orchestratorOpts, analysis.WithHistory(a.StorageManager.HistoryStorage()))
	}
	a.Orchestrator = analysis.NewOrchestrator(a.Gateway, a.Router, a.Logger, orchestratorOpts...)
	a.DeepDive = analysis.NewDeepDive(a.Router, a.Logger)

	// 6. Scheduler, started by the serve command
	sinks := []interfaces.NotificationSink{notify.NewLogSink(a.Logger)}
	if cfg.Notify.ReportDir != "" {
		fileSink, err := notify.NewFileSink(cfg.Notify.ReportDir, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Str("dir", cfg.Notify.ReportDir).Msg("Report sink disabled")
		} else {
			sinks = append(sinks, fileSink)
		}
		if cfg.Notify.PDF {
			if pdfSink, err := notify.NewPDFSink(cfg.Notify.ReportDir, a.Logger); err == nil {
				sinks = append(sinks, pdfSink)
			}
		}
	}
	if len(cfg.Notify.EmailTo) > 0 {
		// SMTP credentials come from the key/value store (smtp_* keys)
		sinks = append(sinks, notify.NewEmailSink(kv, cfg.Notify.EmailTo, a.Logger))
	}
	if cfg.Notify.WebSocket {
		a.AlertHub = notify.NewAlertHub(a.Logger)
		sinks = append(sinks, a.AlertHub)
	}
	a.Scheduler = scheduler.NewService(a.Orchestrator, a.DefaultRequest(ctx), cfg.Scheduler.AlertConfidence, a.Logger,
		scheduler.WithWatchlist(a.StorageManager.WatchlistStorage()),
		scheduler.WithSinks(sinks...),
	)

	a.Logger.Info().
		Strs("providers", a.Gateway.Providers()).
		Bool("shared_cache", a.shared != nil).
		Int("catalog_topics", len(catalog.Topics)).
		Msg("Services initialized")
	return nil
}

// DefaultRequest builds an AnalysisRequest from the [analysis] config section.
// LLMKey is the default provider's resolved credential and may be empty.
func (a *App) DefaultRequest(ctx context.Context) models.AnalysisRequest {
	cfg := a.Config.Analysis
	return models.AnalysisRequest{
		Intent:          models.TradingIntent(strings.ToUpper(cfg.Intent)),
		Risk:            models.RiskTolerance(strings.ToUpper(cfg.Risk)),
		AssetClass:      models.AssetClass(strings.ToUpper(cfg.AssetClass)),
		DiscoveryMode:   models.DiscoveryMode(strings.ToUpper(cfg.DiscoveryMode)),
		LLMKey:          a.ResolveLLMKey(ctx),
		CustomTickers:   append([]string{}, cfg.CustomTickers...),
		Blocklist:       append([]string{}, cfg.Blocklist...),
		Screener:        cfg.Screener,
		MaxShortlist:    cfg.MaxShortlist,
		MaxDecisionKeep: cfg.MaxDecisionKeep,
	}
}

// ResolveLLMKey returns the credential for the default LLM provider, or "".
func (a *App) ResolveLLMKey(ctx context.Context) string {
	provider := llm.Provider(strings.ToLower(a.Config.LLM.DefaultProvider))
	var fallback string
	switch provider {
	case llm.ProviderAnthropic:
		fallback = a.Config.LLM.AnthropicAPIKey
	case llm.ProviderGemini:
		fallback = a.Config.LLM.GeminiAPIKey
	case llm.ProviderOpenAI:
		fallback = a.Config.LLM.OpenAIAPIKey
	}
	var kv interfaces.KeyValueStorage
	if a.StorageManager != nil {
		kv = a.StorageManager.KeyValueStorage()
	}
	key, err := common.ResolveAPIKey(ctx, kv, provider.KeyName(), fallback)
	if err != nil {
		return ""
	}
	return key
}

// ResearchSymbol runs the deep-dive stage for one symbol with its matched
// headlines. A failed stage yields the fallback brief and a non-success status.
func (a *App) ResearchSymbol(ctx context.Context, symbol string) (models.DeepDiveBrief, llm.ResultStatus) {
	symbol = models.NormalizeSymbol(symbol)
	setup := models.TradeSetup{Symbol: symbol, Source: models.SourceCustom}
	if q := a.Gateway.GetQuote(ctx, symbol); q != nil {
		setup.TriggerPrice = q.Price
	}

	var headlines []models.RssHeadline
	res := a.Resolver.Resolve(rss.StageDeepDive, []rss.TickerInput{{Symbol: symbol, Source: models.SourceCustom}})
	digest, err := a.Digest.Build(ctx, res.FeedURLs, []string{symbol})
	if err != nil {
		a.Logger.Warn().Err(err).Str("symbol", symbol).Msg("News digest unavailable for deep dive")
	} else if digest != nil {
		headlines = digest.Tickers[symbol]
	}

	result := a.DeepDive.Run(ctx, setup, headlines)
	if result.Status != llm.StatusSuccess {
		return analysis.FallbackBrief(symbol), result.Status
	}
	return result.Value, result.Status
}

// Close releases resources in reverse order of construction
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.shared != nil {
		if err := a.shared.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close shared cache")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}

func cacheTTLs(cfg common.CacheConfig) marketdata.CacheTTLs {
	def := marketdata.DefaultCacheTTLs()
	return marketdata.CacheTTLs{
		Quote:     common.ParseDuration(cfg.QuoteTTL, def.Quote),
		Intraday:  common.ParseDuration(cfg.IntradayTTL, def.Intraday),
		Daily:     common.ParseDuration(cfg.DailyTTL, def.Daily),
		Profile:   common.ParseDuration(cfg.ProfileTTL, def.Profile),
		Metrics:   common.ParseDuration(cfg.MetricsTTL, def.Metrics),
		Sentiment: common.ParseDuration(cfg.SentimentTTL, def.Sentiment),
	}
}
