// Package driver opens the store persister named by configuration.
package driver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/libraryhub/library-server/internal/config"
	"github.com/libraryhub/library-server/internal/store"
	"github.com/libraryhub/library-server/internal/store/kv"
	"github.com/libraryhub/library-server/internal/store/sqlite"
)

// Options configures Open.
type Options struct {
	ReadOnly bool // badger only; sqlite is always opened read-write
}

// Open returns the persister for name. The memory driver keeps nothing.
func Open(name, path string, logger *slog.Logger, opts Options) (store.Persister, error) {
	switch name {
	case config.DriverMemory, "":
		return store.NoopPersister{}, nil

	case config.DriverBadger:
		if path == "" {
			return nil, fmt.Errorf("badger driver requires a data path")
		}
		p, err := kv.Open(path, logger, kv.Options{ReadOnly: opts.ReadOnly})
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.DriverSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		p, err := sqlite.Open(path, logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", name)
	}
}
