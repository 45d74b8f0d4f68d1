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

// HealthStorage persists provider cool-down deadlines.
type HealthStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewHealthStorage creates a new HealthStorage instance
func NewHealthStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HealthStorage {
	return &HealthStorage{db: db, logger: logger}
}

func (s *HealthStorage) SaveEntry(ctx context.Context, entry models.ProviderHealthEntry) error {
	if entry.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if err := s.db.Store().Upsert(entry.Provider, &entry); err != nil {
		return fmt.Errorf("failed to save health entry: %w", err)
	}
	return nil
}

// DeleteEntry removes the entry for provider. A missing entry is not an error.
func (s *HealthStorage) DeleteEntry(ctx context.Context, provider string) error {
	err := s.db.Store().Delete(provider, &models.ProviderHealthEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete health entry: %w", err)
	}
	return nil
}

func (s *HealthStorage) ListEntries(ctx context.Context) ([]models.ProviderHealthEntry, error) {
	var entries []models.ProviderHealthEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("Provider").Ne("").SortBy("Provider")); err != nil {
		return nil, fmt.Errorf("failed to list health entries: %w", err)
	}
	return entries, nil
}
