// Package sqlite implements the durable event log on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/taliva/escrow/internal/platform/storage/sqlitemigrate"
	"github.com/taliva/escrow/internal/platform/timeouts"
	"github.com/taliva/escrow/internal/services/escrow/storage/integrity"
	"github.com/taliva/escrow/internal/services/escrow/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is the SQLite-backed event log.
type Store struct {
	sqlDB   *sql.DB
	keyring *integrity.Keyring

	// appendMu serializes appends so sequence assignment and chain linking
	// read a stable tail.
	appendMu sync.Mutex
}

// Open opens the event log at path, creating the file and its parent
// directory when missing, and applies embedded migrations. A nil keyring
// stores unsigned events.
func Open(ctx context.Context, path string, keyring *integrity.Keyring) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{sqlDB: sqlDB, keyring: keyring}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.EventsFS, "events"); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// dsn builds a modernc connection string. Pragmas are applied to every
// pooled connection.
func dsn(path string) string {
	q := url.Values{}
	for _, pragma := range []string{
		"journal_mode(WAL)",
		"foreign_keys(ON)",
		"synchronous(NORMAL)",
		fmt.Sprintf("busy_timeout(%d)", timeouts.SQLiteBusy.Milliseconds()),
	} {
		q.Add("_pragma", pragma)
	}
	return path + "?" + q.Encode()
}

// Close closes the underlying database. It is nil-safe so callers can defer
// it on every startup path.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Migrations returns the names of applied schema migrations.
func (s *Store) Migrations(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return sqlitemigrate.Applied(ctx, s.sqlDB)
}
