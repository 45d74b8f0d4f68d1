package models

import (
	"strings"
	"time"
)

// TradingIntent is the user's time-horizon bucket.
type TradingIntent string

const (
	IntentDayTrade TradingIntent = "DAY_TRADE"
	IntentSwing    TradingIntent = "SWING"
	IntentLongTerm TradingIntent = "LONG_TERM"
)

// ValidityWindow returns how long a setup generated for this intent stays valid.
func (i TradingIntent) ValidityWindow() time.Duration {
	switch i {
	case IntentDayTrade:
		return 30 * time.Minute
	case IntentLongTerm:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// RiskTolerance adjusts candidate lists and price floors.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "CONSERVATIVE"
	RiskModerate     RiskTolerance = "MODERATE"
	RiskAggressive   RiskTolerance = "AGGRESSIVE"
)

// MinPrice returns the tradeability price floor for the risk tier.
func (r RiskTolerance) MinPrice() float64 {
	if r == RiskAggressive {
		return 0.1
	}
	return 1.0
}

// AssetClass selects which universes discovery draws from.
type AssetClass string

const (
	AssetEquity AssetClass = "EQUITY"
	AssetForex  AssetClass = "FOREX"
	AssetMetals AssetClass = "METALS"
	AssetAll    AssetClass = "ALL"
)

// Includes reports whether c covers other.
func (c AssetClass) Includes(other AssetClass) bool {
	return c == AssetAll || c == other
}

// DiscoveryMode selects between curated lists and a live screener.
type DiscoveryMode string

const (
	DiscoveryStatic   DiscoveryMode = "STATIC"
	DiscoveryScreener DiscoveryMode = "SCREENER"
)

// TickerSource records why a symbol entered the candidate set.
type TickerSource string

const (
	SourcePredefined TickerSource = "PREDEFINED"
	SourceScreener   TickerSource = "SCREENER"
	SourceCustom     TickerSource = "CUSTOM"
	SourceLiveGainer TickerSource = "LIVE_GAINER"
	SourceLiveLoser  TickerSource = "LIVE_LOSER"
	SourceLiveActive TickerSource = "LIVE_ACTIVE"
)

// Candidate is a discovered symbol with its provenance.
type Candidate struct {
	Symbol string       `json:"symbol"`
	Source TickerSource `json:"source"`
}

// Setup type labels
const (
	SetupHighProbability = "High Probability"
	SetupSpeculative     = "Speculative"
)

// TradeSetup is a scored, time-bounded trade idea produced by one pipeline run.
type TradeSetup struct {
	Symbol             string        `json:"symbol"`
	SetupType          string        `json:"setup_type"`
	TriggerPrice       float64       `json:"trigger_price"`
	StopLoss           float64       `json:"stop_loss"`
	TargetPrice        float64       `json:"target_price"`
	Confidence         float64       `json:"confidence"`
	Reasons            []string      `json:"reasons"`
	ValidUntil         time.Time     `json:"valid_until"`
	Intent             TradingIntent `json:"intent"`
	Source             TickerSource  `json:"source"`
	DecisionBias       string        `json:"decision_bias,omitempty"`
	MustReview         bool          `json:"must_review,omitempty"`
	RssNeeded          bool          `json:"rss_needed,omitempty"`
	DecisionConfidence *float64      `json:"decision_confidence,omitempty"`
	ExpandedRssNeeded  bool          `json:"expanded_rss_needed,omitempty"`
	ExpandedRssReason  string        `json:"expanded_rss_reason,omitempty"`

	// Enrichment context carried into the decision and synthesis prompts
	Intraday  *IntradayStats    `json:"intraday,omitempty"`
	EOD       *EodStats         `json:"eod,omitempty"`
	Profile   *CompanyProfile   `json:"profile,omitempty"`
	Metrics   *FinancialMetrics `json:"metrics,omitempty"`
	Sentiment *SentimentData    `json:"sentiment,omitempty"`
}

// IntradayStats are indicators over recent 5-minute bars.
type IntradayStats struct {
	VWAP  *float64 `json:"vwap,omitempty"`
	RSI14 *float64 `json:"rsi14,omitempty"`
	ATR14 *float64 `json:"atr14,omitempty"`
}

// EodStats are moving averages over daily closes.
type EodStats struct {
	SMA50  *float64 `json:"sma50,omitempty"`
	SMA200 *float64 `json:"sma200,omitempty"`
}

// SymbolContext is the fundamentals snapshot gathered for one symbol.
type SymbolContext struct {
	Profile   *CompanyProfile   `json:"profile,omitempty"`
	Metrics   *FinancialMetrics `json:"metrics,omitempty"`
	Sentiment *SentimentData    `json:"sentiment,omitempty"`
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
