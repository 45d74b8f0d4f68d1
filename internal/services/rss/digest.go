package rss

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// Digest defaults
const (
	DefaultRetention      = 7 * 24 * time.Hour
	DefaultLookback       = 48 * time.Hour
	DefaultPerTickerLimit = 3
)

// Fetcher refreshes one feed into storage.
type Fetcher interface {
	Fetch(ctx context.Context, url string) error
}

// DigestBuilder refreshes feeds and matches stored items to symbols.
type DigestBuilder struct {
	fetcher   Fetcher
	storage   interfaces.RssStorage
	retention time.Duration
	lookback  time.Duration
	perTicker int
	logger    arbor.ILogger
	now       func() time.Time
}

// DigestOption configures the DigestBuilder.
type DigestOption func(*DigestBuilder)

// WithWindows overrides retention, lookback and the per-ticker cap. Zero keeps the default.
func WithWindows(retention, lookback time.Duration, perTicker int) DigestOption {
	return func(b *DigestBuilder) {
		if retention > 0 {
			b.retention = retention
		}
		if lookback > 0 {
			b.lookback = lookback
		}
		if perTicker > 0 {
			b.perTicker = perTicker
		}
	}
}

// WithDigestClock overrides the clock.
func WithDigestClock(now func() time.Time) DigestOption {
	return func(b *DigestBuilder) {
		b.now = now
	}
}

// NewDigestBuilder creates a builder reading through fetcher into storage.
func NewDigestBuilder(fetcher Fetcher, storage interfaces.RssStorage, logger arbor.ILogger, opts ...DigestOption) *DigestBuilder {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	b := &DigestBuilder{
		fetcher:   fetcher,
		storage:   storage,
		retention: DefaultRetention,
		lookback:  DefaultLookback,
		perTicker: DefaultPerTickerLimit,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build refreshes feedURLs, prunes items past retention and returns up to
// the per-ticker cap of the newest matching headlines per symbol. Feed
// failures are logged and skipped. Symbols without matches are absent.
func (b *DigestBuilder) Build(ctx context.Context, feedURLs []string, symbols []string) (*models.RssDigest, error) {
	for _, url := range feedURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.fetcher.Fetch(ctx, url); err != nil {
			b.logger.Warn().Str("url", url).Err(err).Msg("Feed fetch failed")
		}
	}

	now := b.now()
	pruned, err := b.storage.DeleteOlderThan(ctx, now.Add(-b.retention))
	if err != nil {
		return nil, fmt.Errorf("failed to prune feed items: %w", err)
	}

	items, err := b.storage.ItemsSince(ctx, now.Add(-b.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load feed items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	digest := &models.RssDigest{Tickers: make(map[string][]models.RssHeadline), GeneratedAt: now}
	for _, symbol := range symbols {
		if headlines := b.match(symbol, items); len(headlines) > 0 {
			digest.Tickers[symbol] = headlines
		}
	}

	b.logger.Info().
		Int("feeds", len(feedURLs)).
		Int("items", len(items)).
		Int("pruned", pruned).
		Int("matched_tickers", len(digest.Tickers)).
		Msg("RSS digest built")

	return digest, nil
}

func (b *DigestBuilder) match(symbol string, items []models.RssItem) []models.RssHeadline {
	re := TickerPattern(symbol)
	if re == nil {
		return nil
	}

	var out []models.RssHeadline
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.Hash] {
			continue
		}
		if !re.MatchString(item.Title) && !re.MatchString(item.Snippet) {
			continue
		}
		seen[item.Hash] = true
		out = append(out, models.RssHeadline{
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: item.PublishedAt,
			Snippet:     item.Snippet,
		})
		if len(out) == b.perTicker {
			break
		}
	}
	return out
}

// TickerPattern matches a cash-tag or the bare symbol on word boundaries,
// ignoring case. It returns nil for a blank symbol.
func TickerPattern(symbol string) *regexp.Regexp {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil
	}
	quoted := regexp.QuoteMeta(symbol)
	return regexp.MustCompile(`(?i)\$` + quoted + `\b|\b` + quoted + `\b`)
}
