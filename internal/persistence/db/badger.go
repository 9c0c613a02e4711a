package db

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/hilthontt/teamrelay/internal/infrastructure/configs"
)

// OpenBadger opens the embedded store. In-memory mode ignores the path and
// loses everything on close.
func OpenBadger(cfg configs.BadgerConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	db, err := badger.Open(opts.WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return db, nil
}
