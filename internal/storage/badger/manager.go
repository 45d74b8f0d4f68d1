package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	kv        interfaces.KeyValueStorage
	health    interfaces.HealthStorage
	rss       interfaces.RssStorage
	watchlist interfaces.WatchlistStorage
	history   interfaces.HistoryStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := newManager(db, logger)
	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")
	return manager, nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:        db,
		kv:        NewKVStorage(db, logger),
		health:    NewHealthStorage(db, logger),
		rss:       NewRssStorage(db, logger),
		watchlist: NewWatchlistStorage(db, logger),
		history:   NewHistoryStorage(db, logger),
		logger:    logger,
	}
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// HealthStorage returns the provider health storage interface
func (m *Manager) HealthStorage() interfaces.HealthStorage {
	return m.health
}

// RssStorage returns the feed storage interface
func (m *Manager) RssStorage() interfaces.RssStorage {
	return m.rss
}

// WatchlistStorage returns the watchlist storage interface
func (m *Manager) WatchlistStorage() interfaces.WatchlistStorage {
	return m.watchlist
}

// HistoryStorage returns the analysis history storage interface
func (m *Manager) HistoryStorage() interfaces.HistoryStorage {
	return m.history
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
