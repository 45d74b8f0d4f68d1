package fmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewClient("key", server.URL, 100, time.Second, nil)
	c.now = func() time.Time { return time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestGetQuotes_Batched(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/quote/AAPL,MSFT", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`[
			{"symbol":"AAPL","price":187.5,"volume":1000,"changesPercentage":1.1,"timestamp":1740999600},
			{"symbol":"MSFT","price":null}
		]`))
	})

	quotes, err := c.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, int64(1000), quotes["AAPL"].Volume)
}

func TestGetIntradayBars_SortedOldestFirst(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/historical-chart/5min/AAPL", r.URL.Path)
		w.Write([]byte(`[
			{"date":"2025-03-03 10:05:00","open":2,"high":3,"low":1,"close":2.5,"volume":5},
			{"date":"2025-03-03 10:00:00","open":1,"high":2,"low":1,"close":1.5,"volume":5},
			{"date":"garbage","open":1,"high":2,"low":1,"close":1.5,"volume":5}
		]`))
	})

	bars, err := c.GetIntradayBars(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, 2.5, bars[1].Close)
}

func TestGetSentiment_Rescaled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"sentimentScore":0.9},{"sentimentScore":0.7},{"title":"no score"}]`))
	})

	s, err := c.GetSentiment(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, s.Score, 1e-9)
	assert.Equal(t, models.SentimentBullish, s.Label)
}

func TestGetMetrics_EarningsFromQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/key-metrics/AAPL":
			w.Write([]byte(`[{"marketCap":3e12,"peRatio":30,"netIncomePerShare":6.1}]`))
		case "/v3/quote/AAPL":
			w.Write([]byte(`[{"symbol":"AAPL","price":1,"earningsAnnouncement":"2025-04-30T20:00:00.000+0000"}]`))
		}
	})

	m, err := c.GetMetrics(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, m.EarningsDate)
	assert.Equal(t, time.April, m.EarningsDate.Month())
	assert.True(t, m.IsComplete())
}

func TestScreen_Params(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("priceMoreThan"))
		assert.Equal(t, "1000000", q.Get("volumeMoreThan"))
		w.Write([]byte(`[{"symbol":"AAPL"},{"symbol":""},{"symbol":"MSFT"},{"symbol":"NVDA"}]`))
	})

	syms, err := c.Screen(context.Background(), models.ScreenerCriteria{MinPrice: 5, MinVolume: 1_000_000, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, syms)
}
