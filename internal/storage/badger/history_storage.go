package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// HistoryStorage persists analysis results keyed by run ID.
type HistoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewHistoryStorage creates a new HistoryStorage instance
func NewHistoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HistoryStorage {
	return &HistoryStorage{db: db, logger: logger}
}

func (s *HistoryStorage) Save(ctx context.Context, record models.HistoryRecord) error {
	if record.ID == "" {
		return fmt.Errorf("history record ID is required")
	}
	if err := s.db.Store().Upsert(record.ID, &record); err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}
	return nil
}

// List returns the newest records first. A limit of zero or less returns all.
func (s *HistoryStorage) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.HistoryRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// Get returns ErrKeyNotFound for an unknown run ID.
func (s *HistoryStorage) Get(ctx context.Context, id string) (*models.HistoryRecord, error) {
	var record models.HistoryRecord
	err := s.db.Store().Get(id, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}
	return &record, nil
}

func (s *HistoryStorage) Clear(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.HistoryRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info().Msg("Analysis history cleared")
	return nil
}
