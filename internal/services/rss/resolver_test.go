package rss

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
)

func testCatalog() models.RssCatalog {
	c := models.RssCatalog{
		Topics: []models.RssTopic{
			{Key: "core:a", URL: "https://core.example/a", Core: true},
			{Key: "core:b", URL: "https://core.example/b", Core: true},
		},
		TickerSources: []models.RssTickerSource{
			{ID: "yahoo", URLTemplate: "https://yahoo.example/rss?s={symbol}"},
			{ID: "sa", URLTemplate: "https://sa.example/{}.xml"},
			{ID: "nasdaq", URLTemplate: "https://nasdaq.example/rss?symbol={symbol}"},
		},
	}
	// eight expanded topics, declared out of priority order, one unranked
	for _, p := range []int{5, 0, 3, 1, 8, 2, 7, 4} {
		c.Topics = append(c.Topics, models.RssTopic{
			Key:      fmt.Sprintf("exp:%d", p),
			URL:      fmt.Sprintf("https://exp.example/%d", p),
			Priority: p,
		})
	}
	return c
}

func TestResolver_CoreOnly(t *testing.T) {
	r := NewResolver(testCatalog(), models.RssSelection{})
	res := r.Resolve(StageAnalysis, []TickerInput{{Symbol: "AAPL", Source: models.SourcePredefined}})
	assert.Equal(t, []string{"https://core.example/a", "https://core.example/b"}, res.FeedURLs)
	assert.False(t, res.ExpandedApplied)
}

func TestResolver_ExpandedByPriority(t *testing.T) {
	r := NewResolver(testCatalog(), models.RssSelection{})
	res := r.Resolve(StageAnalysis, []TickerInput{
		{Symbol: "AAPL"},
		{Symbol: "MSFT", ExpandedRssNeeded: true},
	})

	assert.True(t, res.ExpandedApplied)
	assert.Equal(t, []string{
		"https://core.example/a", "https://core.example/b",
		"https://exp.example/1", "https://exp.example/2", "https://exp.example/3",
		"https://exp.example/4", "https://exp.example/5", "https://exp.example/7",
	}, res.FeedURLs)
}

func TestResolver_DeepDiveForceExpanded(t *testing.T) {
	r := NewResolver(testCatalog(), models.RssSelection{ForceExpandedForAll: true})
	assert.True(t, r.Resolve(StageDeepDive, []TickerInput{{Symbol: "AAPL"}}).ExpandedApplied)
	assert.False(t, r.Resolve(StageAnalysis, []TickerInput{{Symbol: "AAPL"}}).ExpandedApplied)
}

func TestResolver_TickerFeeds(t *testing.T) {
	tests := []struct {
		name      string
		selection models.RssSelection
		stage     Stage
		input     TickerInput
		want      []string
	}{
		{
			name:  "custom ticker always gets ticker feeds",
			stage: StageAnalysis,
			input: TickerInput{Symbol: "pltr", Source: models.SourceCustom},
			want:  []string{"https://yahoo.example/rss?s=PLTR", "https://sa.example/PLTR.xml"},
		},
		{
			name:  "predefined ticker without final-stage flag",
			stage: StageDeepDive,
			input: TickerInput{Symbol: "AAPL", Source: models.SourcePredefined, RssNeeded: true},
			want:  nil,
		},
		{
			name:      "analysis requires rss needed",
			selection: models.RssSelection{UseTickerFeedsForFinalStage: true},
			stage:     StageAnalysis,
			input:     TickerInput{Symbol: "AAPL", Source: models.SourcePredefined},
			want:      nil,
		},
		{
			name:      "analysis with rss needed",
			selection: models.RssSelection{UseTickerFeedsForFinalStage: true},
			stage:     StageAnalysis,
			input:     TickerInput{Symbol: "AAPL", Source: models.SourcePredefined, RssNeeded: true},
			want:      []string{"https://yahoo.example/rss?s=AAPL", "https://sa.example/AAPL.xml"},
		},
		{
			name:      "deep dive with final-stage flag",
			selection: models.RssSelection{UseTickerFeedsForFinalStage: true, EnabledTickerSourceIDs: []string{"nasdaq"}},
			stage:     StageDeepDive,
			input:     TickerInput{Symbol: "AAPL"},
			want:      []string{"https://nasdaq.example/rss?symbol=AAPL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewResolver(testCatalog(), tt.selection).Resolve(tt.stage, []TickerInput{tt.input})
			got := res.FeedURLs[2:]
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_DisabledTopicsAndDedupe(t *testing.T) {
	cat := testCatalog()
	cat.Topics = append(cat.Topics, models.RssTopic{Key: "core:dup", URL: "https://core.example/a", Core: true})
	r := NewResolver(cat, models.RssSelection{EnabledTopicKeys: []string{"core:b", "core:dup"}})
	res := r.Resolve(StageAnalysis, nil)
	assert.Equal(t, []string{"https://core.example/b", "https://core.example/a"}, res.FeedURLs)
}

func TestApplyTemplate(t *testing.T) {
	assert.Equal(t, "https://x/AAPL", ApplyTemplate("https://x/{symbol}", " aapl"))
	assert.Equal(t, "https://x/AAPL.xml", ApplyTemplate("https://x/{}.xml", "aapl"))
	assert.Equal(t, "https://x/static", ApplyTemplate("https://x/static", "aapl"))
}

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	core := 0
	for _, topic := range cat.Topics {
		if topic.Core {
			core++
		} else {
			assert.Positive(t, topic.Priority, topic.Key)
		}
	}
	assert.Equal(t, 5, core)
	assert.Len(t, cat.TickerSources, 3)
}

func TestLoadCatalog(t *testing.T) {
	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), def)

	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
topics:
  - key: house:core
    name: House
    url: https://house.example/rss
    core: true
ticker_sources:
  - id: house
    name: House Tickers
    url_template: https://house.example/{symbol}.rss
`), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat.Topics, 1)
	assert.True(t, cat.Topics[0].Core)
	assert.Equal(t, "https://house.example/{symbol}.rss", cat.TickerSources[0].URLTemplate)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type rawFetchFunc func(ctx context.Context, url string) (string, error)

func (f rawFetchFunc) FetchRaw(ctx context.Context, url string) (string, error) { return f(ctx, url) }

type verifyRouter func(ctx context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error)

func (f verifyRouter) Run(ctx context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error) {
	return f(ctx, stage, req)
}

func TestVerifier(t *testing.T) {
	ok := rawFetchFunc(func(context.Context, string) (string, error) { return rssSample, nil })

	t.Run("valid feed", func(t *testing.T) {
		v := NewVerifier(ok, verifyRouter(func(_ context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error) {
			assert.Equal(t, llm.StageRssVerify, stage)
			assert.Contains(t, req.UserPrompt, "Buy $AAPL now")
			return &llm.StageResponse{RawText: `{"is_valid":true,"title":"Markets","description":"market news"}`}, nil
		}), nil)
		res := v.Verify(context.Background(), "https://feed.example")
		assert.True(t, res.Valid)
		assert.Equal(t, "Markets", res.Title)
	})

	t.Run("fetch failure", func(t *testing.T) {
		called := false
		v := NewVerifier(rawFetchFunc(func(context.Context, string) (string, error) { return "", errors.New("dns") }),
			verifyRouter(func(context.Context, llm.Stage, llm.StageRequest) (*llm.StageResponse, error) {
				called = true
				return nil, nil
			}), nil)
		res := v.Verify(context.Background(), "https://nope.example")
		assert.False(t, res.Valid)
		assert.False(t, called)
	})

	t.Run("model failure", func(t *testing.T) {
		v := NewVerifier(ok, verifyRouter(func(context.Context, llm.Stage, llm.StageRequest) (*llm.StageResponse, error) {
			return nil, errors.New("quota")
		}), nil)
		res := v.Verify(context.Background(), "https://feed.example")
		assert.False(t, res.Valid)
		assert.Equal(t, "Error", res.Title)
	})
}
