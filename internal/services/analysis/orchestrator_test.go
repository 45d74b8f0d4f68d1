package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/metrics"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
	"github.com/ternarybob/vigil/internal/services/rss"
)

type memoryHistory struct {
	mu      sync.Mutex
	records []models.HistoryRecord
}

func (h *memoryHistory) Save(_ context.Context, r models.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *memoryHistory) List(context.Context, int) ([]models.HistoryRecord, error) {
	return h.records, nil
}

func (h *memoryHistory) Get(_ context.Context, id string) (*models.HistoryRecord, error) {
	for _, r := range h.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, errors.New("not found")
}

func (h *memoryHistory) Clear(context.Context) error {
	h.records = nil
	return nil
}

type resolverFunc func(stage rss.Stage, tickers []rss.TickerInput) rss.Resolution

func (f resolverFunc) Resolve(stage rss.Stage, tickers []rss.TickerInput) rss.Resolution {
	return f(stage, tickers)
}

type digestFunc func(ctx context.Context, feeds, symbols []string) (*models.RssDigest, error)

func (f digestFunc) Build(ctx context.Context, feeds, symbols []string) (*models.RssDigest, error) {
	return f(ctx, feeds, symbols)
}

var fixedNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func screenerRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Intent:        models.IntentSwing,
		Risk:          models.RiskModerate,
		AssetClass:    models.AssetEquity,
		DiscoveryMode: models.DiscoveryScreener,
		LLMKey:        "sk-test",
	}
}

func endToEndGateway() *fakeGateway {
	return &fakeGateway{
		screen: func(models.ScreenerCriteria) []string { return []string{"AAPL", "MSFT"} },
		quotes: quotesFrom(map[string]models.Quote{
			"AAPL": {Symbol: "AAPL", Price: 190, Volume: 5_000_000},
			"MSFT": {Symbol: "MSFT", Price: 410, Volume: 0},
		}),
		intraday: func(string) []models.IntradayBar {
			bars := make([]models.IntradayBar, 0, 20)
			for i := 0; i < 20; i++ {
				p := 180 + float64(i)*0.1
				bars = append(bars, models.IntradayBar{
					Time: fixedNow.Add(time.Duration(i-20) * 5 * time.Minute),
					Open: p, High: p + 0.5, Low: p - 0.5, Close: p, Volume: 1000,
				})
			}
			return bars
		},
		sentiment: func(string) *models.SentimentData { return &models.SentimentData{Score: 0.4} },
	}
}

func endToEndRouter() *stageReplies {
	return &stageReplies{replies: map[llm.Stage]string{
		llm.StageShortlist:                 `{"shortlist":[{"symbol":"AAPL","priority":1,"avoid":false}],"global_notes":["earnings season"]}`,
		llm.StageDecisionUpdate:            `{"keep":[{"symbol":"AAPL","confidence":0.8,"setup_bias":"bullish","rss_needed":true}],"drop":[]}`,
		llm.StageFundamentalsNewsSynthesis: `{"ranked_review_list":[{"symbol":"AAPL","one_paragraph_brief":"Trend intact."}],"portfolio_guidance":{"position_count":1,"risk_posture":"balanced"}}`,
	}}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	gw := endToEndGateway()
	router := endToEndRouter()
	history := &memoryHistory{}
	reg := metrics.NewRegistry()

	var resolvedFor []rss.TickerInput
	var builtFeeds, builtSymbols []string

	o := NewOrchestrator(gw, router, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithHistory(history),
		WithMetrics(reg),
		WithExtraFeeds([]string{"https://extra.example/rss", "https://user.example/rss"}),
		WithFeedResolver(resolverFunc(func(stage rss.Stage, tickers []rss.TickerInput) rss.Resolution {
			assert.Equal(t, rss.StageAnalysis, stage)
			resolvedFor = tickers
			return rss.Resolution{FeedURLs: []string{"https://core.example/rss", "https://extra.example/rss"}}
		})),
		WithDigestBuilder(digestFunc(func(ctx context.Context, feeds, symbols []string) (*models.RssDigest, error) {
			builtFeeds = feeds
			builtSymbols = symbols
			return &models.RssDigest{Tickers: map[string][]models.RssHeadline{
				"AAPL": {{Title: "Apple unveils new chip", PublishedAt: fixedNow}},
			}, GeneratedAt: fixedNow}, nil
		})),
	)

	var stages []models.PipelineStage
	req := screenerRequest()
	req.RssFeeds = []string{"https://user.example/rss"}
	result, err := o.Execute(context.Background(), req, func(p models.Progress) {
		stages = append(stages, p.Stage)
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.TotalCandidates)
	assert.Equal(t, 1, result.TradeableCount)
	assert.Equal(t, 1, result.SetupCount)
	require.Len(t, result.Setups, 1)
	assert.Equal(t, "AAPL", result.Setups[0].Symbol)
	assert.Equal(t, models.SourceScreener, result.Setups[0].Source)
	assert.Equal(t, "bullish", result.Setups[0].DecisionBias)
	assert.True(t, result.Setups[0].RssNeeded)
	assert.Equal(t, fixedNow.Add(models.IntentSwing.ValidityWindow()), result.Setups[0].ValidUntil)
	assert.Equal(t, []string{"earnings season"}, result.GlobalNotes)
	require.NotNil(t, result.DecisionUpdate)
	require.NotNil(t, result.FundamentalsNewsSynthesis)
	require.NotNil(t, result.RssDigest)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, fixedNow, result.GeneratedAt)

	// enrichment only for the shortlisted symbol
	assert.Equal(t, []string{"AAPL"}, gw.called("intraday"))
	assert.Equal(t, []string{"AAPL"}, gw.called("sentiment"))
	assert.Equal(t, []string{"AAPL"}, gw.called("daily"))

	assert.Equal(t, []llm.Stage{llm.StageShortlist, llm.StageDecisionUpdate, llm.StageFundamentalsNewsSynthesis}, router.seen)
	assert.Contains(t, router.prompts[llm.StageFundamentalsNewsSynthesis], "Apple unveils new chip")

	require.Len(t, resolvedFor, 1)
	assert.True(t, resolvedFor[0].RssNeeded)
	assert.Equal(t, models.SourceScreener, resolvedFor[0].Source)
	assert.Equal(t, []string{"https://user.example/rss", "https://extra.example/rss", "https://core.example/rss"}, builtFeeds)
	assert.Equal(t, []string{"AAPL"}, builtSymbols)

	assert.Equal(t, []models.PipelineStage{
		models.StageDiscover, models.StageFilter, models.StageShortlist, models.StageEnrich,
		models.StageRank, models.StageDecide, models.StageDigest, models.StageSynthesize,
	}, stages)

	require.Len(t, history.records, 1)
	assert.Equal(t, result.RunID, history.records[0].ID)
	assert.Equal(t, models.RiskModerate, history.records[0].Request.Risk)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PipelineRuns.WithLabelValues("success")))
}

func TestOrchestrator_MissingKeyAbortsBeforeNetwork(t *testing.T) {
	gw := endToEndGateway()
	router := endToEndRouter()
	o := NewOrchestrator(gw, router, nil)

	req := screenerRequest()
	req.LLMKey = ""
	result, err := o.Execute(context.Background(), req, nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsUserInputError(err))
	assert.Contains(t, err.Error(), "missing LLM key")
	assert.Empty(t, gw.called("screen"))
	assert.Empty(t, gw.called("quotes"))
	assert.Empty(t, router.seen)
}

func TestOrchestrator_InvalidLimits(t *testing.T) {
	o := NewOrchestrator(endToEndGateway(), endToEndRouter(), nil)
	req := screenerRequest()
	req.MaxShortlist = 500

	_, err := o.Execute(context.Background(), req, nil)
	require.Error(t, err)
	var uie *UserInputError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "MaxShortlist", uie.Field)
}

func TestOrchestrator_ShortlistDegradesToNotes(t *testing.T) {
	gw := endToEndGateway()
	router := endToEndRouter()
	router.replies[llm.StageShortlist] = `{"shortlist":[{"symbol":"AAPL","avoid":true}],"global_notes":["nothing worth trading"]}`

	result, err := NewOrchestrator(gw, router, nil).Execute(context.Background(), screenerRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SetupCount)
	assert.Empty(t, result.Setups)
	assert.Equal(t, []string{"nothing worth trading"}, result.GlobalNotes)
	assert.Empty(t, gw.called("intraday"))
	assert.Equal(t, []llm.Stage{llm.StageShortlist}, router.seen)
}

func TestOrchestrator_ShortlistErrorEndsRun(t *testing.T) {
	gw := endToEndGateway()
	router := endToEndRouter()
	router.errs = map[llm.Stage]error{llm.StageShortlist: errors.New("stage failed")}

	result, err := NewOrchestrator(gw, router, nil).Execute(context.Background(), screenerRequest(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Setups)
	assert.Empty(t, gw.called("intraday"))
	assert.Equal(t, []llm.Stage{llm.StageShortlist}, router.seen)
}

func TestOrchestrator_EmptyDecisionKeepsRankedSetups(t *testing.T) {
	router := endToEndRouter()
	router.replies[llm.StageDecisionUpdate] = `{"keep":[],"drop":[]}`

	result, err := NewOrchestrator(endToEndGateway(), router, nil).Execute(context.Background(), screenerRequest(), nil)
	require.NoError(t, err)
	assert.Nil(t, result.DecisionUpdate)
	require.Len(t, result.Setups, 1)
	assert.Equal(t, "AAPL", result.Setups[0].Symbol)
}

func TestOrchestrator_DecisionErrorKeepsRankedSetups(t *testing.T) {
	router := endToEndRouter()
	router.errs = map[llm.Stage]error{llm.StageDecisionUpdate: errors.New("rate limited")}

	result, err := NewOrchestrator(endToEndGateway(), router, nil).Execute(context.Background(), screenerRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SetupCount)
}

func TestOrchestrator_BlocklistEmptiesUniverse(t *testing.T) {
	gw := endToEndGateway()
	req := screenerRequest()
	req.Blocklist = []string{"aapl", "MSFT"}

	result, err := NewOrchestrator(gw, endToEndRouter(), nil).Execute(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCandidates)
	assert.Equal(t, 0, result.SetupCount)
	assert.Empty(t, gw.called("quotes"))
}

func TestOrchestrator_NothingTradeable(t *testing.T) {
	gw := endToEndGateway()
	gw.quotes = quotesFrom(map[string]models.Quote{})

	router := endToEndRouter()
	result, err := NewOrchestrator(gw, router, nil).Execute(context.Background(), screenerRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TradeableCount)
	assert.Empty(t, result.Setups)
	assert.Empty(t, router.seen)
}

func TestOrchestrator_DigestFailureIsAbsorbed(t *testing.T) {
	o := NewOrchestrator(endToEndGateway(), endToEndRouter(), nil,
		WithExtraFeeds([]string{"https://feed.example/rss"}),
		WithDigestBuilder(digestFunc(func(context.Context, []string, []string) (*models.RssDigest, error) {
			return nil, errors.New("storage closed")
		})),
	)

	result, err := o.Execute(context.Background(), screenerRequest(), nil)
	require.NoError(t, err)
	assert.Nil(t, result.RssDigest)
	assert.Equal(t, 1, result.SetupCount)
	require.NotNil(t, result.FundamentalsNewsSynthesis)
}

func TestEnrichmentTargets(t *testing.T) {
	items := []models.ShortlistItem{
		{Symbol: "OPEN"},
		{Symbol: "INTRA", RequestedEnrichment: []models.EnrichmentTag{models.EnrichIntraday}},
		{Symbol: "FUND", RequestedEnrichment: []models.EnrichmentTag{models.EnrichFundamentals}},
		{Symbol: "EOD", RequestedEnrichment: []models.EnrichmentTag{models.EnrichEOD}},
	}

	day := enrichmentTargets(items, models.IntentDayTrade)
	assert.Equal(t, []string{"OPEN", "INTRA", "FUND", "EOD"}, day.all)
	assert.Equal(t, []string{"OPEN", "INTRA"}, day.intraday)
	assert.Equal(t, []string{"OPEN", "FUND"}, day.context)
	assert.Equal(t, []string{"EOD"}, day.eod)

	swing := enrichmentTargets(items, models.IntentSwing)
	assert.Equal(t, []string{"OPEN", "EOD"}, swing.eod)
}
