package eodhd

import (
	"strconv"
	"time"
)

// EODData represents end-of-day price data.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is the response from the EOD endpoint.
type EODResponse []EODData

// IntradayData is a single intraday candle.
type IntradayData struct {
	Timestamp int64   `json:"timestamp"`
	Datetime  string  `json:"datetime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// RealTimeQuote is the delayed/live quote payload. Numeric fields arrive as
// "NA" strings when the exchange has no data.
type RealTimeQuote struct {
	Code          string      `json:"code"`
	Timestamp     interface{} `json:"timestamp"`
	Close         interface{} `json:"close"`
	Volume        interface{} `json:"volume"`
	ChangePercent interface{} `json:"change_p"`
}

// number reads a JSON number that may also be encoded as a string.
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FundamentalsResponse is the subset of the fundamentals payload used for
// profiles and metrics.
type FundamentalsResponse struct {
	General    *GeneralInfo `json:"General"`
	Highlights *Highlights  `json:"Highlights"`
	Valuation  *Valuation   `json:"Valuation"`
}

// GeneralInfo represents general company information.
type GeneralInfo struct {
	Code        string `json:"Code"`
	Name        string `json:"Name"`
	Exchange    string `json:"Exchange"`
	Sector      string `json:"Sector"`
	Industry    string `json:"Industry"`
	Description string `json:"Description"`
}

// Highlights represents key financial highlights.
type Highlights struct {
	MarketCapitalization float64 `json:"MarketCapitalization"`
	PERatio              float64 `json:"PERatio"`
	EarningsShare        float64 `json:"EarningsShare"`
	DividendYield        float64 `json:"DividendYield"`
	MostRecentQuarter    string  `json:"MostRecentQuarter"`
}

// Valuation represents valuation metrics.
type Valuation struct {
	TrailingPE   float64 `json:"TrailingPE"`
	PriceBookMRQ float64 `json:"PriceBookMRQ"`
}

// SearchResult is a single symbol search hit.
type SearchResult struct {
	Code     string `json:"Code"`
	Exchange string `json:"Exchange"`
	Name     string `json:"Name"`
	Type     string `json:"Type"`
	Country  string `json:"Country"`
}
