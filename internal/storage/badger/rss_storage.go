package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// RssStorage keeps feed items and conditional-GET cursors.
type RssStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRssStorage creates a new RssStorage instance
func NewRssStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RssStorage {
	return &RssStorage{db: db, logger: logger}
}

// UpsertItems writes items in one transaction, replacing any with the same hash.
func (s *RssStorage) UpsertItems(ctx context.Context, items []models.RssItem) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		for i := range items {
			if err := s.db.Store().TxUpsert(tx, items[i].Hash, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert feed items: %w", err)
	}
	return nil
}

func (s *RssStorage) ItemsSince(ctx context.Context, since time.Time) ([]models.RssItem, error) {
	var items []models.RssItem
	query := badgerhold.Where("PublishedAt").Ge(since).SortBy("PublishedAt").Reverse()
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to load feed items: %w", err)
	}
	return items, nil
}

func (s *RssStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("PublishedAt").Lt(cutoff)
	count, err := s.db.Store().Count(&models.RssItem{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired feed items: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.db.Store().DeleteMatching(&models.RssItem{}, badgerhold.Where("PublishedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to delete expired feed items: %w", err)
	}
	passes := s.db.collectGarbage()
	s.logger.Debug().Int("count", int(count)).Int("gc_passes", passes).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Pruned feed items")
	return int(count), nil
}

// GetFeedState returns nil without error for a feed never fetched.
func (s *RssStorage) GetFeedState(ctx context.Context, url string) (*models.RssFeedState, error) {
	var state models.RssFeedState
	err := s.db.Store().Get(url, &state)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed state: %w", err)
	}
	return &state, nil
}

func (s *RssStorage) SaveFeedState(ctx context.Context, state models.RssFeedState) error {
	if err := s.db.Store().Upsert(state.URL, &state); err != nil {
		return fmt.Errorf("failed to save feed state: %w", err)
	}
	return nil
}
