package fmp

// Quote is an element of the /v3/quote payload.
type Quote struct {
	Symbol               string   `json:"symbol"`
	Name                 string   `json:"name"`
	Price                *float64 `json:"price"`
	ChangesPercentage    *float64 `json:"changesPercentage"`
	Volume               *int64   `json:"volume"`
	MarketCap            *float64 `json:"marketCap"`
	EPS                  *float64 `json:"eps"`
	PE                   *float64 `json:"pe"`
	EarningsAnnouncement string   `json:"earningsAnnouncement"`
	Timestamp            int64    `json:"timestamp"`
}

// ChartBar is an element of the /v3/historical-chart payload.
type ChartBar struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume int64    `json:"volume"`
}

// Profile is an element of the /v3/profile payload.
type Profile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

// KeyMetrics is an element of the /v3/key-metrics payload.
type KeyMetrics struct {
	Symbol            string   `json:"symbol"`
	MarketCap         *float64 `json:"marketCap"`
	PERatio           *float64 `json:"peRatio"`
	NetIncomePerShare *float64 `json:"netIncomePerShare"`
	DividendYield     *float64 `json:"dividendYield"`
	PBRatio           *float64 `json:"pbRatio"`
	DebtToEquity      *float64 `json:"debtToEquity"`
}

// NewsSentiment is an element of the news sentiment feed. Scores are in [0, 1].
type NewsSentiment struct {
	Symbol         string   `json:"symbol"`
	PublishedDate  string   `json:"publishedDate"`
	Title          string   `json:"title"`
	Sentiment      string   `json:"sentiment"`
	SentimentScore *float64 `json:"sentimentScore"`
}

// SymbolEntry is an element of the screener, movers and search payloads.
type SymbolEntry struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	CompanyName       string `json:"companyName"`
	ExchangeShortName string `json:"exchangeShortName"`
	StockExchange     string `json:"stockExchange"`
}
