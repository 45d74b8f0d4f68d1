package models

import "time"

// RssItem is a normalized RSS/Atom entry keyed by content hash.
type RssItem struct {
	Hash        string    `json:"hash" badgerhold:"key"`
	FeedURL     string    `json:"feed_url" badgerhold:"index"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet"`
}

// PublishedAtMillis returns the publication time as epoch milliseconds.
func (i RssItem) PublishedAtMillis() int64 {
	return i.PublishedAt.UnixMilli()
}

// RssFeedState is the conditional-GET cursor for one feed.
type RssFeedState struct {
	URL           string    `json:"url" badgerhold:"key"`
	ETag          string    `json:"etag,omitempty"`
	LastModified  string    `json:"last_modified,omitempty"`
	LastFetchedAt time.Time `json:"last_fetched_at"`
}

// RssHeadline is one digest entry for a ticker.
type RssHeadline struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet"`
}

// RssDigest maps symbols to their newest matching headlines.
type RssDigest struct {
	Tickers     map[string][]RssHeadline `json:"tickers"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// IsEmpty reports whether no ticker matched any headline.
func (d *RssDigest) IsEmpty() bool {
	return d == nil || len(d.Tickers) == 0
}

// RssTopic is a catalog entry for a topic feed.
type RssTopic struct {
	Key      string `json:"key" yaml:"key"`
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Core     bool   `json:"core" yaml:"core"`
	Priority int    `json:"priority" yaml:"priority"`
}

// RssTickerSource is a catalog entry whose URL is templated per symbol.
type RssTickerSource struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	URLTemplate string `json:"url_template" yaml:"url_template"`
}

// RssCatalog lists every known feed.
type RssCatalog struct {
	Topics        []RssTopic        `json:"topics" yaml:"topics"`
	TickerSources []RssTickerSource `json:"ticker_sources" yaml:"ticker_sources"`
}

// RssSelection is the user's feed preference set.
type RssSelection struct {
	EnabledTopicKeys            []string `json:"enabled_topic_keys" toml:"enabled_topic_keys"`
	EnabledTickerSourceIDs      []string `json:"enabled_ticker_source_ids" toml:"enabled_ticker_source_ids"`
	UseTickerFeedsForFinalStage bool     `json:"use_ticker_feeds_for_final_stage" toml:"use_ticker_feeds_for_final_stage"`
	ForceExpandedForAll         bool     `json:"force_expanded_for_all" toml:"force_expanded_for_all"`
}
