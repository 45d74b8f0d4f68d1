// Package analysis runs the staged trade-setup pipeline: discovery,
// tradeability, the LLM shortlist gate, targeted enrichment, ranking, the
// decision update, the news digest and the closing synthesis.
package analysis

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// moversLimit caps each live movers list in SCREENER mode.
const moversLimit = 10

var (
	dayTradeList = []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA",
		"JPM", "BAC", "GS", "MS",
		"SPY", "QQQ", "IWM",
		"AMD", "NFLX", "DIS", "BA", "INTC",
	}
	swingList = []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA",
		"JPM", "BAC", "GS", "V", "MA",
		"JNJ", "UNH", "PFE", "ABBV",
		"WMT", "HD", "MCD", "NKE", "COST",
		"CAT", "BA", "GE",
		"XOM", "CVX",
	}
	longTermList = []string{
		"AAPL", "MSFT", "GOOGL", "AMZN",
		"JPM", "BAC", "V", "MA", "BRK.B",
		"JNJ", "UNH", "ABBV", "LLY",
		"PG", "KO", "PEP", "WMT", "COST",
		"CAT", "HON", "UPS",
		"XOM", "CVX",
		"SPY", "VOO", "VTI",
	}

	forexList  = []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "USDCHF", "NZDUSD"}
	metalsList = []string{"XAUUSD", "XAGUSD", "GLD", "SLV"}

	conservativeExcluded = map[string]bool{"TSLA": true, "AMD": true, "NVDA": true, "NFLX": true}
	aggressiveAdditions  = []string{"RIOT", "MARA", "PLTR", "SOFI", "AMC", "GME"}
)

// StaticEquities returns the curated equity list for intent adjusted by risk.
func StaticEquities(intent models.TradingIntent, risk models.RiskTolerance) []string {
	var base []string
	switch intent {
	case models.IntentDayTrade:
		base = dayTradeList
	case models.IntentLongTerm:
		base = longTermList
	default:
		base = swingList
	}

	out := make([]string, 0, len(base)+len(aggressiveAdditions))
	for _, s := range base {
		if risk == models.RiskConservative && conservativeExcluded[s] {
			continue
		}
		out = append(out, s)
	}
	if risk == models.RiskAggressive {
		out = append(out, aggressiveAdditions...)
	}
	return out
}

// Discoverer builds the candidate universe for a run.
type Discoverer struct {
	gateway interfaces.MarketDataService
	logger  arbor.ILogger
}

// NewDiscoverer creates a discoverer backed by gateway for screener and movers.
func NewDiscoverer(gateway interfaces.MarketDataService, logger arbor.ILogger) *Discoverer {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Discoverer{gateway: gateway, logger: logger}
}

// Discover returns candidates in discovery order. The first source to name
// a symbol is the one recorded.
func (d *Discoverer) Discover(ctx context.Context, req models.AnalysisRequest) []models.Candidate {
	set := newCandidateSet()

	for _, s := range req.CustomTickers {
		set.add(s, models.SourceCustom)
	}
	if req.AssetClass.Includes(models.AssetForex) {
		set.addAll(forexList, models.SourcePredefined)
	}
	if req.AssetClass.Includes(models.AssetMetals) {
		set.addAll(metalsList, models.SourcePredefined)
	}

	if req.AssetClass.Includes(models.AssetEquity) {
		if req.DiscoveryMode == models.DiscoveryScreener {
			d.discoverLive(ctx, req, set)
		} else {
			set.addAll(StaticEquities(req.Intent, req.Risk), models.SourcePredefined)
		}
	}

	d.logger.Info().
		Int("candidates", len(set.items)).
		Str("mode", string(req.DiscoveryMode)).
		Str("asset_class", string(req.AssetClass)).
		Msg("Candidates discovered")

	return set.items
}

func (d *Discoverer) discoverLive(ctx context.Context, req models.AnalysisRequest, set *candidateSet) {
	thresholds := req.Screener
	if thresholds == (models.ScreenerThresholds{}) {
		thresholds = models.DefaultScreenerThresholds()
	}
	criteria := thresholds.CriteriaFor(req.Risk)

	screened := d.gateway.Screen(ctx, criteria)
	if len(screened) == 0 {
		d.logger.Warn().Str("risk", string(req.Risk)).Msg("Screener returned nothing, using static list")
		set.addAll(StaticEquities(req.Intent, req.Risk), models.SourcePredefined)
	} else {
		set.addAll(screened, models.SourceScreener)
	}

	set.addAll(d.gateway.TopGainers(ctx, moversLimit), models.SourceLiveGainer)
	set.addAll(d.gateway.TopLosers(ctx, moversLimit), models.SourceLiveLoser)
	set.addAll(d.gateway.MostActive(ctx, moversLimit), models.SourceLiveActive)
}

type candidateSet struct {
	items []models.Candidate
	seen  map[string]bool
}

func newCandidateSet() *candidateSet {
	return &candidateSet{seen: make(map[string]bool)}
}

func (c *candidateSet) add(symbol string, source models.TickerSource) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" || c.seen[symbol] {
		return
	}
	c.seen[symbol] = true
	c.items = append(c.items, models.Candidate{Symbol: symbol, Source: source})
}

func (c *candidateSet) addAll(symbols []string, source models.TickerSource) {
	for _, s := range symbols {
		c.add(s, source)
	}
}
