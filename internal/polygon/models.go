package polygon

// TickerSnapshot is an element of the snapshot endpoints.
type TickerSnapshot struct {
	Ticker           string  `json:"ticker"`
	TodaysChangePerc float64 `json:"todaysChangePerc"`
	Day              *struct {
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
	} `json:"day"`
	PrevDay *struct {
		Close float64 `json:"c"`
	} `json:"prevDay"`
	LastTrade *struct {
		Price     float64 `json:"p"`
		Timestamp int64   `json:"t"` // nanoseconds
	} `json:"lastTrade"`
	Min *struct {
		AccumulatedVolume float64 `json:"av"`
	} `json:"min"`
}

// price returns the freshest known price.
func (s *TickerSnapshot) price() float64 {
	if s.LastTrade != nil && s.LastTrade.Price > 0 {
		return s.LastTrade.Price
	}
	if s.Day != nil && s.Day.Close > 0 {
		return s.Day.Close
	}
	if s.PrevDay != nil {
		return s.PrevDay.Close
	}
	return 0
}

// volume returns the day volume, falling back to the minute accumulator.
func (s *TickerSnapshot) volume() int64 {
	if s.Day != nil && s.Day.Volume > 0 {
		return int64(s.Day.Volume)
	}
	if s.Min != nil {
		return int64(s.Min.AccumulatedVolume)
	}
	return 0
}

// SnapshotsResponse wraps a list of ticker snapshots.
type SnapshotsResponse struct {
	Status  string           `json:"status"`
	Tickers []TickerSnapshot `json:"tickers"`
}

// Aggregate is an OHLCV bar; t is epoch milliseconds.
type Aggregate struct {
	Close     float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Open      float64 `json:"o"`
	Timestamp int64   `json:"t"`
	Volume    float64 `json:"v"`
}

// AggregatesResponse is the /v2/aggs payload.
type AggregatesResponse struct {
	Status       string      `json:"status"`
	ResultsCount int         `json:"resultsCount"`
	Results      []Aggregate `json:"results"`
}

// TickerDetails is the reference data for one ticker.
type TickerDetails struct {
	Ticker          string   `json:"ticker"`
	Name            string   `json:"name"`
	PrimaryExchange string   `json:"primary_exchange"`
	MarketCap       *float64 `json:"market_cap"`
	SICDescription  string   `json:"sic_description"`
	Description     string   `json:"description"`
}

// TickerDetailsResponse is the /v3/reference/tickers/{ticker} payload.
type TickerDetailsResponse struct {
	Status  string         `json:"status"`
	Results *TickerDetails `json:"results"`
}

// TickerSearchResponse is the /v3/reference/tickers payload.
type TickerSearchResponse struct {
	Status  string          `json:"status"`
	Results []TickerDetails `json:"results"`
}
