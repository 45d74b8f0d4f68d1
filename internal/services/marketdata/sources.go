package marketdata

import (
	"github.com/ternarybob/vigil/internal/interfaces"
)

// Data kinds, used for cache metrics, provider metrics and ordering.
const (
	KindQuote     = "quote"
	KindIntraday  = "intraday"
	KindDaily     = "daily"
	KindProfile   = "profile"
	KindMetrics   = "metrics"
	KindSentiment = "sentiment"
	KindScreener  = "screener"
	KindMovers    = "movers"
	KindSearch    = "search"
)

// Sources holds the ordered adapter list for every data kind. Earlier
// entries are tried first.
type Sources struct {
	Quotes    []interfaces.QuoteSource
	Intraday  []interfaces.IntradaySource
	Daily     []interfaces.DailySource
	Profiles  []interfaces.ProfileSource
	Metrics   []interfaces.MetricsSource
	Sentiment []interfaces.SentimentSource
	Screeners []interfaces.ScreenerSource
	Movers    []interfaces.MoversSource
	Search    []interfaces.SearchSource
}

// Register appends src to every kind list it implements.
func (s *Sources) Register(src interfaces.DataSource) {
	if v, ok := src.(interfaces.QuoteSource); ok {
		s.Quotes = append(s.Quotes, v)
	}
	if v, ok := src.(interfaces.IntradaySource); ok {
		s.Intraday = append(s.Intraday, v)
	}
	if v, ok := src.(interfaces.DailySource); ok {
		s.Daily = append(s.Daily, v)
	}
	if v, ok := src.(interfaces.ProfileSource); ok {
		s.Profiles = append(s.Profiles, v)
	}
	if v, ok := src.(interfaces.MetricsSource); ok {
		s.Metrics = append(s.Metrics, v)
	}
	if v, ok := src.(interfaces.SentimentSource); ok {
		s.Sentiment = append(s.Sentiment, v)
	}
	if v, ok := src.(interfaces.ScreenerSource); ok {
		s.Screeners = append(s.Screeners, v)
	}
	if v, ok := src.(interfaces.MoversSource); ok {
		s.Movers = append(s.Movers, v)
	}
	if v, ok := src.(interfaces.SearchSource); ok {
		s.Search = append(s.Search, v)
	}
}

// Names returns every distinct provider name in registration order.
func (s *Sources) Names() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, v := range s.Quotes {
		add(v.Name())
	}
	for _, v := range s.Intraday {
		add(v.Name())
	}
	for _, v := range s.Daily {
		add(v.Name())
	}
	for _, v := range s.Profiles {
		add(v.Name())
	}
	for _, v := range s.Metrics {
		add(v.Name())
	}
	for _, v := range s.Sentiment {
		add(v.Name())
	}
	for _, v := range s.Screeners {
		add(v.Name())
	}
	for _, v := range s.Movers {
		add(v.Name())
	}
	for _, v := range s.Search {
		add(v.Name())
	}
	return names
}

// IsEmpty reports whether no adapter is registered.
func (s *Sources) IsEmpty() bool {
	return len(s.Names()) == 0
}
