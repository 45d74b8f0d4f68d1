package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/models"
)

func symbolsOf(cands []models.Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Symbol)
	}
	return out
}

func TestStaticEquities_RiskAdjustments(t *testing.T) {
	conservative := StaticEquities(models.IntentDayTrade, models.RiskConservative)
	moderate := StaticEquities(models.IntentDayTrade, models.RiskModerate)
	aggressive := StaticEquities(models.IntentDayTrade, models.RiskAggressive)

	assert.NotContains(t, conservative, "TSLA")
	assert.NotContains(t, conservative, "NVDA")
	assert.Contains(t, moderate, "TSLA")
	assert.NotContains(t, moderate, "GME")
	assert.Contains(t, aggressive, "GME")
	assert.Equal(t, moderate, aggressive[:len(moderate)])
}

func TestStaticEquities_ByIntent(t *testing.T) {
	assert.Contains(t, StaticEquities(models.IntentLongTerm, models.RiskModerate), "BRK.B")
	assert.Contains(t, StaticEquities(models.IntentSwing, models.RiskModerate), "COST")
	assert.Contains(t, StaticEquities(models.IntentDayTrade, models.RiskModerate), "SPY")
}

func TestDiscover_OrderAndProvenance(t *testing.T) {
	d := NewDiscoverer(&fakeGateway{}, nil)
	got := d.Discover(context.Background(), models.AnalysisRequest{
		Intent:        models.IntentSwing,
		Risk:          models.RiskModerate,
		AssetClass:    models.AssetAll,
		DiscoveryMode: models.DiscoveryStatic,
		CustomTickers: []string{" pltr ", "AAPL", "pltr"},
	})

	require.NotEmpty(t, got)
	assert.Equal(t, models.Candidate{Symbol: "PLTR", Source: models.SourceCustom}, got[0])
	assert.Equal(t, models.Candidate{Symbol: "AAPL", Source: models.SourceCustom}, got[1])
	assert.Equal(t, models.Candidate{Symbol: "EURUSD", Source: models.SourcePredefined}, got[2])

	syms := symbolsOf(got)
	assert.Contains(t, syms, "XAUUSD")
	assert.Contains(t, syms, "MSFT")

	count := 0
	for _, s := range syms {
		if s == "AAPL" {
			count++
		}
	}
	assert.Equal(t, 1, count, "first source to name a symbol wins")
}

func TestDiscover_EquityOnlySkipsForex(t *testing.T) {
	d := NewDiscoverer(&fakeGateway{}, nil)
	got := symbolsOf(d.Discover(context.Background(), models.AnalysisRequest{
		Intent:        models.IntentSwing,
		Risk:          models.RiskModerate,
		AssetClass:    models.AssetEquity,
		DiscoveryMode: models.DiscoveryStatic,
	}))
	assert.NotContains(t, got, "EURUSD")
	assert.NotContains(t, got, "XAUUSD")
	assert.Equal(t, StaticEquities(models.IntentSwing, models.RiskModerate), got)
}

func TestDiscover_ScreenerWithMovers(t *testing.T) {
	var criteria models.ScreenerCriteria
	gw := &fakeGateway{
		screen: func(c models.ScreenerCriteria) []string {
			criteria = c
			return []string{"ABC", "DEF"}
		},
		gainers: func(limit int) []string {
			assert.Equal(t, 10, limit)
			return []string{"GNR", "ABC"}
		},
		losers: func(int) []string { return []string{"LSR"} },
		active: func(int) []string { return []string{"ACT"} },
	}
	d := NewDiscoverer(gw, nil)
	got := d.Discover(context.Background(), models.AnalysisRequest{
		Intent:        models.IntentDayTrade,
		Risk:          models.RiskAggressive,
		AssetClass:    models.AssetEquity,
		DiscoveryMode: models.DiscoveryScreener,
	})

	assert.Equal(t, []models.Candidate{
		{Symbol: "ABC", Source: models.SourceScreener},
		{Symbol: "DEF", Source: models.SourceScreener},
		{Symbol: "GNR", Source: models.SourceLiveGainer},
		{Symbol: "LSR", Source: models.SourceLiveLoser},
		{Symbol: "ACT", Source: models.SourceLiveActive},
	}, got)
	assert.Equal(t, models.DefaultScreenerThresholds().CriteriaFor(models.RiskAggressive), criteria)
}

func TestDiscover_ScreenerFallsBackToStaticList(t *testing.T) {
	d := NewDiscoverer(&fakeGateway{}, nil)
	got := d.Discover(context.Background(), models.AnalysisRequest{
		Intent:        models.IntentLongTerm,
		Risk:          models.RiskModerate,
		AssetClass:    models.AssetEquity,
		DiscoveryMode: models.DiscoveryScreener,
	})

	require.NotEmpty(t, got)
	assert.Equal(t, StaticEquities(models.IntentLongTerm, models.RiskModerate), symbolsOf(got))
	for _, c := range got {
		assert.Equal(t, models.SourcePredefined, c.Source)
	}
}
