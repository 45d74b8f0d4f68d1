// Package models holds the market facts, derived setups and pipeline outputs
// shared across the gateway, the analysis pipeline and storage.
package models

import "time"

// Quote is a point-in-time price snapshot for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
}

// IntradayBar is a single intraday OHLCV candle.
type IntradayBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DailyBar is a single end-of-day OHLCV candle.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// CompanyProfile describes the issuer behind a symbol.
type CompanyProfile struct {
	Name        string `json:"name"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsComplete reports whether the fields the ranker and prompts rely on are present.
func (p *CompanyProfile) IsComplete() bool {
	return p != nil && p.Name != "" && p.Sector != ""
}

// Merge fills empty fields of p from other.
func (p *CompanyProfile) Merge(other *CompanyProfile) {
	if p == nil || other == nil {
		return
	}
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Sector == "" {
		p.Sector = other.Sector
	}
	if p.Industry == "" {
		p.Industry = other.Industry
	}
	if p.Description == "" {
		p.Description = other.Description
	}
}

// FinancialMetrics holds optional fundamental ratios. Nil means unknown.
type FinancialMetrics struct {
	MarketCap     *float64   `json:"market_cap,omitempty"`
	PERatio       *float64   `json:"pe_ratio,omitempty"`
	EPS           *float64   `json:"eps,omitempty"`
	EarningsDate  *time.Time `json:"earnings_date,omitempty"`
	DividendYield *float64   `json:"dividend_yield,omitempty"`
	PBRatio       *float64   `json:"pb_ratio,omitempty"`
	DebtToEquity  *float64   `json:"debt_to_equity,omitempty"`
}

// IsEmpty reports whether no metric is known.
func (m *FinancialMetrics) IsEmpty() bool {
	return m == nil || (m.MarketCap == nil && m.PERatio == nil && m.EPS == nil &&
		m.EarningsDate == nil && m.DividendYield == nil && m.PBRatio == nil && m.DebtToEquity == nil)
}

// IsComplete reports whether the critical metrics are present.
func (m *FinancialMetrics) IsComplete() bool {
	return m != nil && m.MarketCap != nil && m.PERatio != nil && m.EPS != nil && m.EarningsDate != nil
}

// Merge fills nil fields of m from other.
func (m *FinancialMetrics) Merge(other *FinancialMetrics) {
	if m == nil || other == nil {
		return
	}
	if m.MarketCap == nil {
		m.MarketCap = other.MarketCap
	}
	if m.PERatio == nil {
		m.PERatio = other.PERatio
	}
	if m.EPS == nil {
		m.EPS = other.EPS
	}
	if m.EarningsDate == nil {
		m.EarningsDate = other.EarningsDate
	}
	if m.DividendYield == nil {
		m.DividendYield = other.DividendYield
	}
	if m.PBRatio == nil {
		m.PBRatio = other.PBRatio
	}
	if m.DebtToEquity == nil {
		m.DebtToEquity = other.DebtToEquity
	}
}

// SentimentData is a news sentiment score in [-1, 1] with a label.
type SentimentData struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Sentiment labels
const (
	SentimentBullish = "Bullish"
	SentimentBearish = "Bearish"
	SentimentNeutral = "Neutral"
)

// SentimentLabel maps a score to a label using the ±0.2 bands.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.2:
		return SentimentBullish
	case score < -0.2:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// ScreenerCriteria filters the live screener universe.
type ScreenerCriteria struct {
	MinVolume int64   `json:"min_volume" toml:"min_volume"`
	MinPrice  float64 `json:"min_price" toml:"min_price"`
	MaxPrice  float64 `json:"max_price,omitempty" toml:"max_price"`
	Limit     int     `json:"limit" toml:"limit"`
}

// SymbolMatch is a symbol search hit.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
