package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"expansioncore/internal/config"
	"expansioncore/internal/infra/persistence/memory"
	"expansioncore/internal/infra/persistence/postgres"
	"expansioncore/internal/infra/persistence/sqlite"
	"expansioncore/pkg/domain"
)

// OpenPersistentStore opens the backend selected by cfg.Driver. The memory
// driver restores cfg.SnapshotPath when the file exists.
func OpenPersistentStore(ctx context.Context, cfg config.Storage) (domain.PersistentStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		store := memory.NewStore()
		if cfg.SnapshotPath == "" {
			return store, nil
		}
		f, err := os.Open(cfg.SnapshotPath)
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		if err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := store.ReadSnapshot(f); err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", cfg.SnapshotPath, err)
		}
		return store, nil
	case "", config.StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// SaveSnapshot writes a memory store's state to path. Other stores persist on
// their own and are left untouched.
func SaveSnapshot(store domain.PersistentStore, path string) error {
	mem, ok := store.(*memory.Store)
	if !ok || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := mem.WriteSnapshot(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
