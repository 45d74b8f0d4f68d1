package badger

import (
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/vigil/internal/common"
)

// gcDiscardRatio is the share of stale data a value log file must hold
// before a GC pass rewrites it.
const gcDiscardRatio = 0.5

// BadgerDB owns the badgerhold store shared by every storage type.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// NewBadgerDB opens the store at config.Path, wiping it first when
// ResetOnStartup is set.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to reset database directory")
		} else {
			logger.Debug().Str("path", config.Path).Msg("Database reset on startup")
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = config.Path
	opts.ValueDir = config.Path
	opts.Logger = nil

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database opened")
	return &BadgerDB{store: store, logger: logger, path: config.Path}, nil
}

func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// collectGarbage reclaims value log space after bulk deletes. It rewrites
// files until badger reports nothing left to do.
func (b *BadgerDB) collectGarbage() int {
	passes := 0
	for {
		if err := b.store.Badger().RunValueLogGC(gcDiscardRatio); err != nil {
			if err != badgerdb.ErrNoRewrite {
				b.logger.Debug().Err(err).Str("path", b.path).Msg("Value log GC stopped")
			}
			return passes
		}
		passes++
	}
}

func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}
