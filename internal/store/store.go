// Package store persists the client's named key-value slots (the bearer
// credential and the operator badge) across process restarts.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/andjpython/Estacionamento-Free/internal/config"
)

// Store is a flat string key-value store. Writes are last-writer-wins and
// visible to every subsequent Get.
type Store interface {
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Backend {
	case config.StoreSQLite:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		st, err = NewSQLiteStore(cfg.Path, logger)
	case config.StoreRedis:
		st, err = NewRedisStore(ctx, cfg, logger)
	case config.StoreMemory:
		st = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.Backend, err)
	}
	return st, nil
}
