package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal"
)

// Backend names accepted by journal.backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg *config.JournalConfig) (journal.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil

	case BackendSQLite, "":
		if dir := filepath.Dir(cfg.SQLite.Path); cfg.SQLite.Path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, journal.NewStorageError("sqlite", "mkdir", err)
			}
		}
		s, err := NewSQLiteStorage(&SQLiteConfig{
			Path:        cfg.SQLite.Path,
			Driver:      cfg.SQLite.Driver,
			WALMode:     true,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case BackendRedis:
		s, err := NewRedisStorage(ctx, &RedisConfig{
			Addr:       cfg.Redis.Addr,
			Username:   cfg.Redis.Username,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Key:        cfg.Redis.Key,
			MaxEntries: cfg.Redis.MaxEntries,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}
