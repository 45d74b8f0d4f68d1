package polygon

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

const snapshotBody = `{"status":"OK","tickers":[
	{"ticker":"AAPL","todaysChangePerc":1.5,"day":{"c":187,"v":5000000},"lastTrade":{"p":187.5,"t":1740999600000000000}},
	{"ticker":"PENNY","day":{"c":0.5,"v":9000000}},
	{"ticker":"MSFT","day":{"c":400,"v":2000000}},
	{"ticker":"THIN","day":{"c":50,"v":10}}
]}`

func TestGetQuotes_Snapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("tickers"))
		w.Write([]byte(snapshotBody))
	})

	quotes, err := c.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 187.5, quotes["AAPL"].Price)
	assert.Equal(t, int64(5000000), quotes["AAPL"].Volume)
	assert.Equal(t, 2025, quotes["AAPL"].Timestamp.Year())
	assert.Equal(t, 400.0, quotes["MSFT"].Price)
}

func TestScreen_FiltersAndOrdersByVolume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(snapshotBody))
	})

	syms, err := c.Screen(context.Background(), models.ScreenerCriteria{MinPrice: 1, MinVolume: 1000, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, syms)
}

func TestGetDailyBars_Path(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v2/aggs/ticker/AAPL/range/1/day/")
		w.Write([]byte(`{"status":"OK","results":[{"o":1,"h":2,"l":1,"c":1.5,"v":100.0,"t":1740960000000}]}`))
	})

	bars, err := c.GetDailyBars(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(100), bars[0].Volume)
	assert.Equal(t, time.March, bars[0].Date.Month())
}
