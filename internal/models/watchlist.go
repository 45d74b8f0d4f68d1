package models

import "time"

// WatchlistEntry is a user-pinned symbol.
type WatchlistEntry struct {
	Symbol  string    `json:"symbol" badgerhold:"key"`
	AddedAt time.Time `json:"added_at"`
	Note    string    `json:"note,omitempty"`
}

// HistoryRecord is a persisted copy of an AnalysisResult.
type HistoryRecord struct {
	ID        string         `json:"id" badgerhold:"key"`
	CreatedAt time.Time      `json:"created_at" badgerhold:"index"`
	Request   HistoryRequest `json:"request"`
	Result    AnalysisResult `json:"result"`
}

// HistoryRequest is the non-secret subset of an AnalysisRequest.
type HistoryRequest struct {
	Intent        TradingIntent `json:"intent"`
	Risk          RiskTolerance `json:"risk"`
	AssetClass    AssetClass    `json:"asset_class"`
	DiscoveryMode DiscoveryMode `json:"discovery_mode"`
	CustomTickers []string      `json:"custom_tickers,omitempty"`
}

// ProviderHealthEntry records a provider cool-down deadline.
type ProviderHealthEntry struct {
	Provider         string    `json:"provider" badgerhold:"key"`
	BlacklistedUntil time.Time `json:"blacklisted_until"`
}

// Alert is a notification emitted by background checks.
type Alert struct {
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Symbol    string      `json:"symbol,omitempty"`
	Setup     *TradeSetup `json:"setup,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
