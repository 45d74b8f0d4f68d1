package models

import "time"

// ScreenerThresholds are the live-screener floors keyed by risk tier.
type ScreenerThresholds struct {
	ConservativeMinVolume int64   `json:"conservative_min_volume" toml:"conservative_min_volume" validate:"gte=0"`
	ModerateMinVolume     int64   `json:"moderate_min_volume" toml:"moderate_min_volume" validate:"gte=0"`
	AggressiveMinVolume   int64   `json:"aggressive_min_volume" toml:"aggressive_min_volume" validate:"gte=0"`
	ConservativeMinPrice  float64 `json:"conservative_min_price" toml:"conservative_min_price" validate:"gte=0"`
	ModerateMinPrice      float64 `json:"moderate_min_price" toml:"moderate_min_price" validate:"gte=0"`
	AggressiveMinPrice    float64 `json:"aggressive_min_price" toml:"aggressive_min_price" validate:"gte=0"`
	Limit                 int     `json:"limit" toml:"limit" validate:"gte=0"`
}

// DefaultScreenerThresholds returns the stock floors per risk tier.
func DefaultScreenerThresholds() ScreenerThresholds {
	return ScreenerThresholds{
		ConservativeMinVolume: 2_000_000,
		ModerateMinVolume:     1_000_000,
		AggressiveMinVolume:   500_000,
		ConservativeMinPrice:  10,
		ModerateMinPrice:      5,
		AggressiveMinPrice:    1,
		Limit:                 50,
	}
}

// CriteriaFor returns the screener criteria for a risk tier.
func (t ScreenerThresholds) CriteriaFor(risk RiskTolerance) ScreenerCriteria {
	c := ScreenerCriteria{Limit: t.Limit}
	switch risk {
	case RiskConservative:
		c.MinVolume, c.MinPrice = t.ConservativeMinVolume, t.ConservativeMinPrice
	case RiskAggressive:
		c.MinVolume, c.MinPrice = t.AggressiveMinVolume, t.AggressiveMinPrice
	default:
		c.MinVolume, c.MinPrice = t.ModerateMinVolume, t.ModerateMinPrice
	}
	return c
}

// AnalysisRequest is the input to one pipeline run.
type AnalysisRequest struct {
	Intent          TradingIntent      `json:"intent" validate:"required,oneof=DAY_TRADE SWING LONG_TERM"`
	Risk            RiskTolerance      `json:"risk" validate:"required,oneof=CONSERVATIVE MODERATE AGGRESSIVE"`
	AssetClass      AssetClass         `json:"asset_class" validate:"required,oneof=EQUITY FOREX METALS ALL"`
	DiscoveryMode   DiscoveryMode      `json:"discovery_mode" validate:"required,oneof=STATIC SCREENER"`
	LLMKey          string             `json:"-" validate:"required"`
	CustomTickers   []string           `json:"custom_tickers,omitempty"`
	Blocklist       []string           `json:"blocklist,omitempty"`
	Screener        ScreenerThresholds `json:"screener"`
	MaxShortlist    int                `json:"max_shortlist" validate:"min=1,max=100"`
	MaxDecisionKeep int                `json:"max_decision_keep" validate:"min=1,max=50"`
	RssFeeds        []string           `json:"rss_feeds,omitempty" validate:"dive,url"`
}

// AnalysisResult is the structured output of one pipeline run.
type AnalysisResult struct {
	RunID                     string                     `json:"run_id"`
	Intent                    TradingIntent              `json:"intent"`
	TotalCandidates           int                        `json:"total_candidates"`
	TradeableCount            int                        `json:"tradeable_count"`
	SetupCount                int                        `json:"setup_count"`
	Setups                    []TradeSetup               `json:"setups"`
	GeneratedAt               time.Time                  `json:"generated_at"`
	GlobalNotes               []string                   `json:"global_notes,omitempty"`
	RssDigest                 *RssDigest                 `json:"rss_digest,omitempty"`
	DecisionUpdate            *DecisionUpdate            `json:"decision_update,omitempty"`
	FundamentalsNewsSynthesis *FundamentalsNewsSynthesis `json:"fundamentals_news_synthesis,omitempty"`
}

// PipelineStage names one step of the orchestrated run for progress reporting.
type PipelineStage string

const (
	StageDiscover   PipelineStage = "discover"
	StageFilter     PipelineStage = "filter"
	StageQuote      PipelineStage = "quote"
	StageShortlist  PipelineStage = "shortlist"
	StageEnrich     PipelineStage = "enrich"
	StageRank       PipelineStage = "rank"
	StageDecide     PipelineStage = "decide"
	StageDigest     PipelineStage = "digest"
	StageSynthesize PipelineStage = "synthesize"
)

// Progress is an observability event emitted between stages.
type Progress struct {
	Stage   PipelineStage `json:"stage"`
	Message string        `json:"message"`
	Count   int           `json:"count"`
}
