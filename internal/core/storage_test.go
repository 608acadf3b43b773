package core

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"expansioncore/internal/config"
	"expansioncore/internal/infra/persistence/memory"
	"expansioncore/internal/infra/persistence/postgres"
	"expansioncore/internal/infra/persistence/sqlite"
	"expansioncore/pkg/domain"
)

func TestOpenPersistentStoreMemorySnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "snapshot.json")
	cfg := config.Storage{Driver: config.StorageMemory, SnapshotPath: path}

	store, err := OpenPersistentStore(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	region, err := store.CreateRegion(ctx, domain.Region{Code: "EAST", Active: true})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	if _, err := store.NextSequence(ctx, "PLAN-20260314"); err != nil {
		t.Fatalf("sequence: %v", err)
	}
	if err := SaveSnapshot(store, path); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	reopened, err := OpenPersistentStore(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.GetRegion(ctx, region.ID); err != nil {
		t.Fatalf("region must survive the snapshot: %v", err)
	}
	if n, _ := reopened.NextSequence(ctx, "PLAN-20260314"); n != 2 {
		t.Fatalf("sequence must continue after reload, got %d", n)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expansion.db")
	store, err := OpenPersistentStore(ctx, config.Storage{Driver: config.StorageSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = store.Close() }()
	s, ok := store.(*sqlite.Store)
	if !ok || s.Path() != path {
		t.Fatalf("unexpected store %T", store)
	}
	if err := SaveSnapshot(store, filepath.Join(t.TempDir(), "ignored.json")); err != nil {
		t.Fatalf("snapshot of a durable store is a no-op: %v", err)
	}
}

func TestOpenPersistentStorePostgresErrors(t *testing.T) {
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) {
		return nil, errors.New("dial refused")
	})
	defer restore()

	store, err := OpenPersistentStore(context.Background(), config.Storage{Driver: config.StoragePostgres, PostgresDSN: "postgres://db/x"})
	if err == nil {
		t.Fatalf("expected open error")
	}
	if store != nil {
		t.Fatalf("failed open must return a nil interface, got %#v", store)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenPersistentStore(context.Background(), config.Storage{Driver: "mysql"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
