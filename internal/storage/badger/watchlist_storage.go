package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// WatchlistStorage persists user-pinned symbols.
type WatchlistStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

// NewWatchlistStorage creates a new WatchlistStorage instance
func NewWatchlistStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WatchlistStorage {
	return &WatchlistStorage{db: db, logger: logger, now: time.Now}
}

// Add pins symbol. Re-adding keeps the original AddedAt and replaces the note.
func (s *WatchlistStorage) Add(ctx context.Context, symbol string, note string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	entry := models.WatchlistEntry{Symbol: symbol, AddedAt: s.now(), Note: note}
	var existing models.WatchlistEntry
	if err := s.db.Store().Get(symbol, &existing); err == nil {
		entry.AddedAt = existing.AddedAt
	}

	if err := s.db.Store().Upsert(symbol, &entry); err != nil {
		return fmt.Errorf("failed to save watchlist entry: %w", err)
	}
	return nil
}

// Remove unpins symbol, returning ErrKeyNotFound if it was not pinned.
func (s *WatchlistStorage) Remove(ctx context.Context, symbol string) error {
	err := s.db.Store().Delete(models.NormalizeSymbol(symbol), &models.WatchlistEntry{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return nil
}

// List returns pinned symbols, oldest first.
func (s *WatchlistStorage) List(ctx context.Context) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("Symbol").Ne("").SortBy("AddedAt", "Symbol")); err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return entries, nil
}
