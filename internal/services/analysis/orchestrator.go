package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/metrics"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
	"github.com/ternarybob/vigil/internal/services/rss"
)

// Request defaults applied when the caller leaves a limit at zero
const (
	DefaultMaxShortlist    = 10
	DefaultMaxDecisionKeep = 5
)

// FeedResolver picks the feeds to read for a set of setups.
type FeedResolver interface {
	Resolve(stage rss.Stage, tickers []rss.TickerInput) rss.Resolution
}

// DigestBuilder matches recent feed items to symbols.
type DigestBuilder interface {
	Build(ctx context.Context, feedURLs []string, symbols []string) (*models.RssDigest, error)
}

// ProgressFunc observes stage transitions. It must not block.
type ProgressFunc func(models.Progress)

// Orchestrator sequences every stage of one analysis run.
type Orchestrator struct {
	gateway     interfaces.MarketDataService
	discoverer  *Discoverer
	filter      *TradeabilityFilter
	enricher    *Enricher
	shortlist   *ShortlistGate
	decision    *DecisionUpdater
	synthesizer *Synthesizer
	resolver    FeedResolver
	digest      DigestBuilder
	extraFeeds  []string
	history     interfaces.HistoryStorage
	metrics     *metrics.Registry
	validate    *validator.Validate
	concurrency int
	logger      arbor.ILogger
	now         func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithFeedResolver resolves catalog feeds for the digest.
func WithFeedResolver(r FeedResolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithDigestBuilder enables the news digest.
func WithDigestBuilder(b DigestBuilder) Option {
	return func(o *Orchestrator) {
		o.digest = b
	}
}

// WithExtraFeeds adds feeds read on every run.
func WithExtraFeeds(urls []string) Option {
	return func(o *Orchestrator) {
		o.extraFeeds = urls
	}
}

// WithHistory persists every result.
func WithHistory(h interfaces.HistoryStorage) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithMetrics records step durations and run outcomes.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithEnrichConcurrency bounds per-symbol enrichment fan-out.
func WithEnrichConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithClock overrides the clock used for validity windows and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator wires the pipeline stages over gateway and router.
func NewOrchestrator(gateway interfaces.MarketDataService, router StageRouter, logger arbor.ILogger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	o := &Orchestrator{
		gateway:  gateway,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.discoverer = NewDiscoverer(gateway, logger)
	o.filter = NewTradeabilityFilter(gateway, logger)
	o.enricher = NewEnricher(gateway, o.concurrency, logger)
	o.shortlist = NewShortlistGate(router, logger)
	o.decision = NewDecisionUpdater(router, logger)
	o.synthesizer = NewSynthesizer(router, logger)
	return o
}

// Execute runs the pipeline for req. Stage failures degrade the result
// rather than failing the run; only invalid input and an empty universe
// are returned as errors.
func (o *Orchestrator) Execute(ctx context.Context, req models.AnalysisRequest, onProgress ProgressFunc) (*models.AnalysisResult, error) {
	if req.MaxShortlist == 0 {
		req.MaxShortlist = DefaultMaxShortlist
	}
	if req.MaxDecisionKeep == 0 {
		req.MaxDecisionKeep = DefaultMaxDecisionKeep
	}
	if err := o.validateRequest(req); err != nil {
		o.metrics.RecordPipelineRun("invalid")
		return nil, err
	}

	runID := uuid.NewString()
	logger := o.logger.WithCorrelationId(runID)
	ctx = llm.WithRequestKey(ctx, req.LLMKey)
	progress := func(stage models.PipelineStage, msg string, count int) {
		logger.Info().Str("stage", string(stage)).Int("count", count).Msg(msg)
		if onProgress != nil {
			onProgress(models.Progress{Stage: stage, Message: msg, Count: count})
		}
	}

	result := &models.AnalysisResult{RunID: runID, Intent: req.Intent, Setups: []models.TradeSetup{}}
	finish := func(status string) (*models.AnalysisResult, error) {
		result.SetupCount = len(result.Setups)
		result.GeneratedAt = o.now()
		o.metrics.RecordPipelineRun(status)
		o.saveHistory(ctx, logger, req, result)
		logger.Info().Str("status", status).Int("setups", result.SetupCount).Msg("Analysis run complete")
		return result, nil
	}

	// Discover
	start := o.now()
	candidates := o.discoverer.Discover(ctx, req)
	o.observe(models.StageDiscover, start)
	if len(candidates) == 0 {
		o.metrics.RecordPipelineRun("no_candidates")
		return nil, ErrNoCandidates
	}

	blocked := make(map[string]bool, len(req.Blocklist))
	for _, s := range req.Blocklist {
		blocked[models.NormalizeSymbol(s)] = true
	}
	sources := make(map[string]models.TickerSource, len(candidates))
	symbols := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if blocked[c.Symbol] {
			continue
		}
		sources[c.Symbol] = c.Source
		symbols = append(symbols, c.Symbol)
	}
	result.TotalCandidates = len(symbols)
	progress(models.StageDiscover, "Candidates discovered", len(symbols))
	if len(symbols) == 0 {
		return finish("empty")
	}

	// Filter
	start = o.now()
	tradeable, err := o.filter.Execute(ctx, symbols, req.Risk.MinPrice())
	o.observe(models.StageFilter, start)
	if err != nil {
		o.metrics.RecordPipelineRun("cancelled")
		return nil, fmt.Errorf("tradeability filter failed: %w", err)
	}
	result.TradeableCount = len(tradeable)
	progress(models.StageFilter, "Tradeable symbols selected", len(tradeable))
	if len(tradeable) == 0 {
		return finish("empty")
	}

	start = o.now()
	quotes := o.gateway.GetQuotes(ctx, tradeable)
	o.observe(models.StageQuote, start)

	// Shortlist
	start = o.now()
	planResult := o.shortlist.Run(ctx, tradeable, quotes, req.Intent, req.Risk, req.MaxShortlist)
	o.observe(models.StageShortlist, start)
	plan := planResult.Value
	result.GlobalNotes = plan.GlobalNotes
	progress(models.StageShortlist, "Shortlist ready", len(plan.Shortlist))
	if planResult.Status != llm.StatusSuccess || len(plan.Shortlist) == 0 {
		return finish("no_shortlist")
	}

	// Enrich
	start = o.now()
	targets := enrichmentTargets(plan.Shortlist, req.Intent)
	intraday := o.enricher.Intraday(ctx, targets.intraday, IntradayDays)
	symbolContext := o.enricher.Context(ctx, targets.context)
	eod := o.enricher.EOD(ctx, targets.eod, EODDays)
	o.observe(models.StageEnrich, start)
	progress(models.StageEnrich, "Enrichment complete", len(intraday)+len(symbolContext)+len(eod))

	// Rank
	start = o.now()
	ranked := RankSetups(RankInput{
		Symbols:  targets.all,
		Quotes:   quotes,
		Intraday: intraday,
		EOD:      eod,
		Context:  symbolContext,
		Intent:   req.Intent,
		Now:      o.now(),
	})
	for i := range ranked {
		if src, ok := sources[ranked[i].Symbol]; ok {
			ranked[i].Source = src
		}
	}
	o.observe(models.StageRank, start)
	progress(models.StageRank, "Setups ranked", len(ranked))

	// Decide
	start = o.now()
	decision := o.decision.Run(ctx, ranked, req.Intent, req.Risk, req.MaxDecisionKeep)
	if decision.Status == llm.StatusSuccess {
		update := decision.Value
		result.DecisionUpdate = &update
	}
	setups := ApplyDecision(ranked, result.DecisionUpdate)
	o.observe(models.StageDecide, start)
	progress(models.StageDecide, "Decisions applied", len(setups))
	if len(setups) == 0 {
		return finish("empty")
	}
	result.Setups = setups

	// Digest
	start = o.now()
	result.RssDigest = o.buildDigest(ctx, logger, req, setups)
	o.observe(models.StageDigest, start)
	if result.RssDigest != nil {
		progress(models.StageDigest, "News digest built", len(result.RssDigest.Tickers))
	}

	// Synthesize
	start = o.now()
	synthesis := o.synthesizer.Run(ctx, setups, result.RssDigest, req.Intent, req.Risk)
	if synthesis.Status == llm.StatusSuccess {
		s := synthesis.Value
		result.FundamentalsNewsSynthesis = &s
	}
	o.observe(models.StageSynthesize, start)
	progress(models.StageSynthesize, "Synthesis complete", len(setups))

	return finish("success")
}

func (o *Orchestrator) validateRequest(req models.AnalysisRequest) error {
	err := o.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Field() == "LLMKey" {
			return &UserInputError{Field: "llm_key", Message: "missing LLM key"}
		}
		return &UserInputError{Field: fe.Field(), Message: fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value())}
	}
	return &UserInputError{Message: err.Error()}
}

func (o *Orchestrator) buildDigest(ctx context.Context, logger arbor.ILogger, req models.AnalysisRequest, setups []models.TradeSetup) *models.RssDigest {
	if o.digest == nil {
		return nil
	}

	feeds := append([]string{}, req.RssFeeds...)
	feeds = append(feeds, o.extraFeeds...)
	if o.resolver != nil {
		inputs := make([]rss.TickerInput, 0, len(setups))
		for _, s := range setups {
			inputs = append(inputs, rss.TickerInput{
				Symbol:            s.Symbol,
				Source:            s.Source,
				RssNeeded:         s.RssNeeded,
				ExpandedRssNeeded: s.ExpandedRssNeeded,
			})
		}
		feeds = append(feeds, o.resolver.Resolve(rss.StageAnalysis, inputs).FeedURLs...)
	}
	feeds = distinct(feeds)
	if len(feeds) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(setups))
	for _, s := range setups {
		symbols = append(symbols, s.Symbol)
	}

	digest, err := o.digest.Build(ctx, feeds, symbols)
	if err != nil {
		logger.Error().Err(err).Int("feeds", len(feeds)).Msg("RSS digest failed")
		return nil
	}
	return digest
}

func (o *Orchestrator) saveHistory(ctx context.Context, logger arbor.ILogger, req models.AnalysisRequest, result *models.AnalysisResult) {
	if o.history == nil {
		return
	}
	record := models.HistoryRecord{
		ID:        result.RunID,
		CreatedAt: result.GeneratedAt,
		Request: models.HistoryRequest{
			Intent:        req.Intent,
			Risk:          req.Risk,
			AssetClass:    req.AssetClass,
			DiscoveryMode: req.DiscoveryMode,
			CustomTickers: req.CustomTickers,
		},
		Result: *result,
	}
	if err := o.history.Save(ctx, record); err != nil {
		logger.Warn().Err(err).Msg("Failed to save analysis history")
	}
}

func (o *Orchestrator) observe(stage models.PipelineStage, start time.Time) {
	o.metrics.ObserveStep(string(stage), o.now().Sub(start))
}

type targetSet struct {
	all      []string
	intraday []string
	context  []string
	eod      []string
}

// enrichmentTargets scopes each enrichment family to the symbols that asked
// for it plus those that asked for nothing. DAY_TRADE reads EOD data only
// on explicit request.
func enrichmentTargets(items []models.ShortlistItem, intent models.TradingIntent) targetSet {
	var t targetSet
	for _, item := range items {
		t.all = append(t.all, item.Symbol)
		open := len(item.RequestedEnrichment) == 0
		if open || item.Requests(models.EnrichIntraday) {
			t.intraday = append(t.intraday, item.Symbol)
		}
		if open || item.Requests(models.EnrichFundamentals) || item.Requests(models.EnrichSentiment) {
			t.context = append(t.context, item.Symbol)
		}
		if item.Requests(models.EnrichEOD) || (open && intent != models.IntentDayTrade) {
			t.eod = append(t.eod, item.Symbol)
		}
	}
	return t
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
