package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

func openTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	cfg := &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")}
	m, err := NewManager(arbor.NewNoOpLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestKVStorage(t *testing.T) {
	ctx := context.Background()
	kv := openTestManager(t).KeyValueStorage()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "GEMINI_API_KEY", "g-1", "gemini"))
	require.NoError(t, kv.Set(ctx, "llm.route.SHORTLIST", `{"provider":"openai"}`, ""))
	require.NoError(t, kv.Set(ctx, "llm.route.DEEP_DIVE", `{"provider":"gemini"}`, ""))

	v, err := kv.Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "g-1", v)

	routes, err := kv.ListByPrefix(ctx, "LLM.ROUTE.")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "llm.route.deep_dive", routes[0].Key)
	assert.Equal(t, "llm.route.shortlist", routes[1].Key)

	all, err := kv.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, kv.Delete(ctx, "Gemini_Api_Key"))
	assert.ErrorIs(t, kv.Delete(ctx, "gemini_api_key"), interfaces.ErrKeyNotFound)
}

func TestKVStorage_SetPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	kv := openTestManager(t).KeyValueStorage()

	require.NoError(t, kv.Set(ctx, "k", "v1", ""))
	first, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, kv.Set(ctx, "k", "v2", ""))
	second, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "v2", second[0].Value)
	assert.True(t, first[0].CreatedAt.Equal(second[0].CreatedAt))
	assert.True(t, second[0].UpdatedAt.After(first[0].UpdatedAt))
}

func TestHealthStorage(t *testing.T) {
	ctx := context.Background()
	hs := openTestManager(t).HealthStorage()

	until := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	require.NoError(t, hs.SaveEntry(ctx, models.ProviderHealthEntry{Provider: "fmp", BlacklistedUntil: until}))
	require.NoError(t, hs.SaveEntry(ctx, models.ProviderHealthEntry{Provider: "eodhd", BlacklistedUntil: until}))

	entries, err := hs.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "eodhd", entries[0].Provider)
	assert.True(t, until.Equal(entries[1].BlacklistedUntil))

	require.NoError(t, hs.DeleteEntry(ctx, "fmp"))
	require.NoError(t, hs.DeleteEntry(ctx, "fmp"))
	entries, err = hs.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, hs.SaveEntry(ctx, models.ProviderHealthEntry{}))
}

func TestRssStorage_ItemsAndRetention(t *testing.T) {
	ctx := context.Background()
	rs := openTestManager(t).RssStorage()
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, rs.UpsertItems(ctx, []models.RssItem{
		{Hash: "h1", Title: "one hour", PublishedAt: now.Add(-time.Hour)},
		{Hash: "h2", Title: "three hours", PublishedAt: now.Add(-3 * time.Hour)},
		{Hash: "h3", Title: "two days", PublishedAt: now.Add(-49 * time.Hour)},
		{Hash: "h4", Title: "ten days", PublishedAt: now.Add(-240 * time.Hour)},
	}))
	// replacing by hash keeps a single copy
	require.NoError(t, rs.UpsertItems(ctx, []models.RssItem{
		{Hash: "h1", Title: "one hour (updated)", PublishedAt: now.Add(-time.Hour)},
	}))

	recent, err := rs.ItemsSince(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "one hour (updated)", recent[0].Title)
	assert.Equal(t, "three hours", recent[1].Title)

	removed, err := rs.DeleteOlderThan(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := rs.ItemsSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	removed, err = rs.DeleteOlderThan(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestRssStorage_FeedState(t *testing.T) {
	ctx := context.Background()
	rs := openTestManager(t).RssStorage()

	state, err := rs.GetFeedState(ctx, "https://feed.example/rss")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, rs.SaveFeedState(ctx, models.RssFeedState{URL: "https://feed.example/rss", ETag: `"abc"`}))
	state, err = rs.GetFeedState(ctx, "https://feed.example/rss")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, `"abc"`, state.ETag)
}

func TestWatchlistStorage(t *testing.T) {
	ctx := context.Background()
	ws := openTestManager(t).WatchlistStorage()

	require.NoError(t, ws.Add(ctx, " aapl ", "core holding"))
	require.NoError(t, ws.Add(ctx, "MSFT", ""))
	require.NoError(t, ws.Add(ctx, "AAPL", "trim on strength"))

	entries, err := ws.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.Equal(t, "trim on strength", entries[0].Note)

	require.NoError(t, ws.Remove(ctx, "msft"))
	assert.ErrorIs(t, ws.Remove(ctx, "msft"), interfaces.ErrKeyNotFound)
	assert.Error(t, ws.Add(ctx, " ", ""))
}

func TestHistoryStorage(t *testing.T) {
	ctx := context.Background()
	hs := openTestManager(t).HistoryStorage()
	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, hs.Save(ctx, models.HistoryRecord{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Request:   models.HistoryRequest{Intent: models.IntentSwing},
			Result: models.AnalysisResult{
				RunID:      id,
				SetupCount: i,
				RssDigest:  &models.RssDigest{Tickers: map[string][]models.RssHeadline{"AAPL": {{Title: "t"}}}},
			},
		}))
	}

	latest, err := hs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "run-c", latest[0].ID)
	assert.Equal(t, "run-b", latest[1].ID)

	rec, err := hs.Get(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, models.IntentSwing, rec.Request.Intent)
	assert.Equal(t, "t", rec.Result.RssDigest.Tickers["AAPL"][0].Title)

	_, err = hs.Get(ctx, "nope")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, hs.Clear(ctx))
	all, err := hs.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewBadgerDB_ResetOnStartup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db")

	m, err := NewManager(arbor.NewNoOpLogger(), &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, m.KeyValueStorage().Set(ctx, "k", "v", ""))
	require.NoError(t, m.Close())

	m, err = NewManager(arbor.NewNoOpLogger(), &common.BadgerConfig{Path: path, ResetOnStartup: true})
	require.NoError(t, err)
	defer m.Close()
	_, err = m.KeyValueStorage().Get(ctx, "k")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestLoadVariables(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "variables.toml"), []byte(`
[smtp_host]
value = "smtp.example.com"
description = "relay"

[empty_key]
value = ""
`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "variables"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "variables", "keys.toml"), []byte(`
[gemini_api_key]
value = "g-123"
`), 0644))

	m := openTestManager(t)
	n, err := m.LoadVariables(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	host, err := m.KeyValueStorage().Get(ctx, "smtp_host")
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", host)

	key, err := m.KeyValueStorage().Get(ctx, "GEMINI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "g-123", key)

	_, err = m.KeyValueStorage().Get(ctx, "empty_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestLoadVariables_MissingDir(t *testing.T) {
	m := openTestManager(t)
	n, err := m.LoadVariables(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadVariables_BadTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "variables.toml"), []byte("[broken"), 0644))
	m := openTestManager(t)
	_, err := m.LoadVariables(context.Background(), dir)
	assert.Error(t, err)
}
