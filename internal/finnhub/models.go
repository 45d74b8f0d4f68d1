package finnhub

// QuoteResponse is the /quote payload.
type QuoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
	Volume        int64   `json:"v"`
}

// CandleResponse is the columnar /stock/candle payload.
type CandleResponse struct {
	Close  []float64 `json:"c"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Open   []float64 `json:"o"`
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Volume []int64   `json:"v"`
}

// Len returns the number of complete candles.
func (c *CandleResponse) Len() int {
	n := len(c.Time)
	for _, l := range []int{len(c.Open), len(c.High), len(c.Low), len(c.Close)} {
		if l < n {
			n = l
		}
	}
	return n
}

// ProfileResponse is the /stock/profile2 payload.
type ProfileResponse struct {
	Name             string  `json:"name"`
	Ticker           string  `json:"ticker"`
	Exchange         string  `json:"exchange"`
	FinnhubIndustry  string  `json:"finnhubIndustry"`
	MarketCap        float64 `json:"marketCapitalization"`
	ShareOutstanding float64 `json:"shareOutstanding"`
}

// MetricResponse is the /stock/metric payload.
type MetricResponse struct {
	Symbol string  `json:"symbol"`
	Metric *Metric `json:"metric"`
}

// Metric holds the ratios used for FinancialMetrics. Market cap is in millions
// and yields are percentages.
type Metric struct {
	MarketCapitalization *float64 `json:"marketCapitalization"`
	PETTM                *float64 `json:"peTTM"`
	EPSTTM               *float64 `json:"epsTTM"`
	PBAnnual             *float64 `json:"pbAnnual"`
	DividendYield        *float64 `json:"dividendYieldIndicatedAnnual"`
	DebtEquity           *float64 `json:"totalDebt/totalEquityAnnual"`
}

// SentimentResponse is the /news-sentiment payload.
type SentimentResponse struct {
	Symbol    string `json:"symbol"`
	Sentiment *struct {
		BullishPercent *float64 `json:"bullishPercent"`
		BearishPercent *float64 `json:"bearishPercent"`
	} `json:"sentiment"`
}

// SearchResponse is the /search payload.
type SearchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Symbol        string `json:"symbol"`
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Type          string `json:"type"`
	} `json:"result"`
}
