package alpaca

import "time"

// Snapshot is a per-symbol element of the /v2/stocks/snapshots payload.
type Snapshot struct {
	LatestTrade *struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"latestTrade"`
	DailyBar     *Bar `json:"dailyBar"`
	PrevDailyBar *Bar `json:"prevDailyBar"`
}

// Bar is an OHLCV candle.
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

// BarsResponse is the paginated /v2/stocks/{symbol}/bars payload.
type BarsResponse struct {
	Bars          []Bar  `json:"bars"`
	NextPageToken string `json:"next_page_token"`
}

// Asset is the /v2/assets/{symbol} payload.
type Asset struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Tradable bool   `json:"tradable"`
}

type screenerEntry struct {
	Symbol string `json:"symbol"`
}

// MostActivesResponse is the most-actives screener payload.
type MostActivesResponse struct {
	MostActives []screenerEntry `json:"most_actives"`
}

// MoversResponse is the movers screener payload.
type MoversResponse struct {
	Gainers []screenerEntry `json:"gainers"`
	Losers  []screenerEntry `json:"losers"`
}
