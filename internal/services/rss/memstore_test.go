package rss

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// memStore is an in-memory RssStorage.
type memStore struct {
	mu     sync.Mutex
	items  map[string]models.RssItem
	states map[string]models.RssFeedState
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]models.RssItem), states: make(map[string]models.RssFeedState)}
}

func (m *memStore) UpsertItems(_ context.Context, items []models.RssItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.Hash] = it
	}
	return nil
}

func (m *memStore) ItemsSince(_ context.Context, since time.Time) ([]models.RssItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RssItem
	for _, it := range m.items {
		if !it.PublishedAt.Before(since) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (m *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, it := range m.items {
		if it.PublishedAt.Before(cutoff) {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetFeedState(_ context.Context, url string) (*models.RssFeedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[url]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) SaveFeedState(_ context.Context, state models.RssFeedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.URL] = state
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
