// Package postgres provides the Postgres-backed persistent store. It opens the
// database through pgx's database/sql driver and delegates to sqlstore.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"expansioncore/internal/infra/persistence/sqlstore"
	"expansioncore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/expansion?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists records to Postgres.
type Store struct {
	*sqlstore.Store
	dsn string
}

// NewStore opens a Postgres-backed store using dsn (falls back to DefaultDSN),
// verifies connectivity and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	inner, err := sqlstore.New(ctx, db, sqlstore.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner, dsn: dsn}, nil
}

// DSN returns the connection string the store was opened with.
func (s *Store) DSN() string { return s.dsn }

// OverrideSQLOpen swaps the sql.Open implementation (used in tests) and returns a restore func.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
