package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// HealthStorage persists provider cool-down deadlines.
type HealthStorage interface {
	SaveEntry(ctx context.Context, entry models.ProviderHealthEntry) error
	DeleteEntry(ctx context.Context, provider string) error
	ListEntries(ctx context.Context) ([]models.ProviderHealthEntry, error)
}

// RssStorage persists feed items and conditional-GET cursors.
type RssStorage interface {
	// UpsertItems inserts or replaces items keyed by hash
	UpsertItems(ctx context.Context, items []models.RssItem) error

	// ItemsSince returns items published at or after since, newest first
	ItemsSince(ctx context.Context, since time.Time) ([]models.RssItem, error)

	// DeleteOlderThan removes items published before cutoff and returns the count
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	GetFeedState(ctx context.Context, url string) (*models.RssFeedState, error)
	SaveFeedState(ctx context.Context, state models.RssFeedState) error
}

// WatchlistStorage persists user-pinned symbols.
type WatchlistStorage interface {
	Add(ctx context.Context, symbol string, note string) error
	Remove(ctx context.Context, symbol string) error
	List(ctx context.Context) ([]models.WatchlistEntry, error)
}

// HistoryStorage persists analysis results.
type HistoryStorage interface {
	Save(ctx context.Context, record models.HistoryRecord) error
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	Get(ctx context.Context, id string) (*models.HistoryRecord, error)
	Clear(ctx context.Context) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	HealthStorage() HealthStorage
	RssStorage() RssStorage
	WatchlistStorage() WatchlistStorage
	HistoryStorage() HistoryStorage
	// LoadVariables seeds the key/value store from TOML variable files in dir
	LoadVariables(ctx context.Context, dir string) (int, error)
	Close() error
}
