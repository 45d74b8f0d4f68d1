package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/metrics"
)

func TestClient_ConditionalGet(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			assert.Equal(t, "Mon, 10 Mar 2025 14:00:00 GMT", r.Header.Get("If-Modified-Since"))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 10 Mar 2025 14:00:00 GMT")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssSample))
	}))
	defer server.Close()

	store := newMemStore()
	reg := metrics.NewRegistry()
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	client := NewClient(store, time.Second, nil,
		WithClientMetrics(reg),
		WithClientClock(func() time.Time { return now }))

	require.NoError(t, client.Fetch(context.Background(), server.URL))
	assert.Equal(t, 2, store.count())

	state, err := store.GetFeedState(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, `"v1"`, state.ETag)
	assert.Equal(t, now, state.LastFetchedAt)

	now = now.Add(time.Hour)
	require.NoError(t, client.Fetch(context.Background(), server.URL))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 2, store.count())

	state, err = store.GetFeedState(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, now, state.LastFetchedAt)
	assert.Equal(t, `"v1"`, state.ETag)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RssFetches.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RssFetches.WithLabelValues("not_modified")))
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := newMemStore()
	client := NewClient(store, time.Second, nil)
	err := client.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	state, err := store.GetFeedState(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Nil(t, state, "a failed fetch leaves no cursor")
}

func TestClient_FetchRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  " + atomSample + "\n"))
	}))
	defer server.Close()

	store := newMemStore()
	raw, err := NewClient(store, time.Second, nil).FetchRaw(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, raw, "<feed")
	assert.Equal(t, 0, store.count())
}
