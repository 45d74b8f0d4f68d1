package rss

import (
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/vigil/internal/models"
)

// Stage selects the resolution rules.
type Stage string

const (
	StageAnalysis Stage = "ANALYSIS"
	StageDeepDive Stage = "DEEP_DIVE"
)

// Resolution limits
const (
	MaxExpandedTopics         = 6
	MaxTickerSourcesPerSymbol = 2
)

// TickerInput describes one setup's news needs.
type TickerInput struct {
	Symbol            string
	Source            models.TickerSource
	RssNeeded         bool
	ExpandedRssNeeded bool
}

// Resolution is the ordered, de-duplicated feed list for a run.
type Resolution struct {
	FeedURLs        []string
	ExpandedApplied bool
}

// Resolver maps a catalog and the user's selection to feed URLs.
type Resolver struct {
	catalog   models.RssCatalog
	selection models.RssSelection
}

// NewResolver creates a resolver. An empty selection enables every topic
// and the first two ticker sources.
func NewResolver(catalog models.RssCatalog, selection models.RssSelection) *Resolver {
	if len(selection.EnabledTopicKeys) == 0 {
		for _, t := range catalog.Topics {
			selection.EnabledTopicKeys = append(selection.EnabledTopicKeys, t.Key)
		}
	}
	if len(selection.EnabledTickerSourceIDs) == 0 {
		for i, s := range catalog.TickerSources {
			if i == MaxTickerSourcesPerSymbol {
				break
			}
			selection.EnabledTickerSourceIDs = append(selection.EnabledTickerSourceIDs, s.ID)
		}
	}
	return &Resolver{catalog: catalog, selection: selection}
}

// Resolve returns core topic feeds, then expanded topic feeds when any
// ticker needs them (or, for DEEP_DIVE, when forced), then per-symbol ticker
// feeds for custom tickers and, when enabled, tickers that need news.
func (r *Resolver) Resolve(stage Stage, tickers []TickerInput) Resolution {
	enabled := toSet(r.selection.EnabledTopicKeys)

	expandedNeeded := stage == StageDeepDive && r.selection.ForceExpandedForAll
	for _, t := range tickers {
		if t.ExpandedRssNeeded {
			expandedNeeded = true
			break
		}
	}

	var urls []string
	var expanded []models.RssTopic
	for _, topic := range r.catalog.Topics {
		if !enabled[topic.Key] || topic.URL == "" {
			continue
		}
		if topic.Core {
			urls = append(urls, topic.URL)
		} else {
			expanded = append(expanded, topic)
		}
	}

	if expandedNeeded {
		sort.SliceStable(expanded, func(i, j int) bool {
			return rank(expanded[i].Priority) < rank(expanded[j].Priority)
		})
		if len(expanded) > MaxExpandedTopics {
			expanded = expanded[:MaxExpandedTopics]
		}
		for _, topic := range expanded {
			urls = append(urls, topic.URL)
		}
	}

	sourceOn := toSet(r.selection.EnabledTickerSourceIDs)
	var templates []string
	for _, src := range r.catalog.TickerSources {
		if sourceOn[src.ID] && src.URLTemplate != "" {
			templates = append(templates, src.URLTemplate)
		}
	}
	if len(templates) > MaxTickerSourcesPerSymbol {
		templates = templates[:MaxTickerSourcesPerSymbol]
	}

	for _, t := range tickers {
		include := t.Source == models.SourceCustom
		switch stage {
		case StageDeepDive:
			include = include || r.selection.UseTickerFeedsForFinalStage
		default:
			include = include || (r.selection.UseTickerFeedsForFinalStage && t.RssNeeded)
		}
		if !include {
			continue
		}
		for _, tmpl := range templates {
			urls = append(urls, ApplyTemplate(tmpl, t.Symbol))
		}
	}

	return Resolution{FeedURLs: dedupe(urls), ExpandedApplied: expandedNeeded}
}

// ApplyTemplate substitutes the normalized symbol for {symbol} or {}.
func ApplyTemplate(tmpl, symbol string) string {
	s := models.NormalizeSymbol(symbol)
	switch {
	case strings.Contains(tmpl, "{symbol}"):
		return strings.ReplaceAll(tmpl, "{symbol}", s)
	case strings.Contains(tmpl, "{}"):
		return strings.ReplaceAll(tmpl, "{}", s)
	default:
		return tmpl
	}
}

// rank orders unset priorities last.
func rank(p int) int {
	if p <= 0 {
		return math.MaxInt
	}
	return p
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
