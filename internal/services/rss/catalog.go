package rss

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/vigil/internal/models"
)

// DefaultCatalog is the built-in feed catalog. Core topics are read on every
// run; the rest are read only when a setup asks for wider coverage.
func DefaultCatalog() models.RssCatalog {
	return models.RssCatalog{
		Topics: []models.RssTopic{
			{Key: "cnbc:top_news", Name: "CNBC Top News", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=100003114", Core: true},
			{Key: "cnbc:business", Name: "CNBC Business", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=10001147", Core: true},
			{Key: "cnbc:earnings", Name: "CNBC Earnings", URL: "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=15839135", Core: true},
			{Key: "marketwatch:top_stories", Name: "MarketWatch Top Stories", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories", Core: true},
			{Key: "yahoo_finance:top_stories", Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex", Core: true},

			{Key: "seeking_alpha:all_news", Name: "Seeking Alpha Market Currents", URL: "https://seekingalpha.com/market_currents.xml", Priority: 1},
			{Key: "nasdaq:markets", Name: "Nasdaq Markets", URL: "https://www.nasdaq.com/feed/rssoutbound?category=Markets", Priority: 2},
			{Key: "wsj:markets_news", Name: "WSJ Markets", URL: "https://feeds.a.dj.com/rss/RSSMarketsMain.xml", Priority: 3},
			{Key: "ft:news", Name: "Financial Times", URL: "https://www.ft.com/news-feed?format=rss", Priority: 4},
			{Key: "fortune:breaking_business_news", Name: "Fortune", URL: "https://fortune.com/feed/", Priority: 5},
			{Key: "zacks:all_commentary_articles", Name: "Zacks Commentary", URL: "https://www.zacks.com/commentary/rss", Priority: 6},
			{Key: "cnn_money:top_stories", Name: "CNN Money", URL: "http://rss.cnn.com/rss/money_latest.rss", Priority: 7},
		},
		TickerSources: []models.RssTickerSource{
			{ID: "yahoo_finance", Name: "Yahoo Finance", URLTemplate: "https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=US&lang=en-US"},
			{ID: "seeking_alpha", Name: "Seeking Alpha", URLTemplate: "https://seekingalpha.com/api/sa/combined/{symbol}.xml"},
			{ID: "nasdaq", Name: "Nasdaq", URLTemplate: "https://www.nasdaq.com/feed/rssoutbound?symbol={symbol}"},
		},
	}
}

// LoadCatalog reads a YAML catalog. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (models.RssCatalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.RssCatalog{}, fmt.Errorf("failed to read feed catalog %s: %w", path, err)
	}

	var catalog models.RssCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return models.RssCatalog{}, fmt.Errorf("failed to parse feed catalog %s: %w", path, err)
	}
	return catalog, nil
}
