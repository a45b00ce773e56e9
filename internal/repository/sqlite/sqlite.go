// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. The dashboard keeps
// one small users table, which is exactly the workload SQLite is built for.
// Tests use ":memory:" for a fresh, isolated database per test.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// WHY SQLX?
// database/sql makes you list every column twice: once in the SELECT and once in
// rows.Scan(&a, &b, ...). sqlx maps columns onto struct fields through the
// `db:"..."` tags already present on model.User, so the two cannot drift apart.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	// After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"

	"github.com/sakif/devdash/internal/migrations"
	"github.com/sakif/devdash/internal/secret"
)

// DB wraps a sqlx connection pool and provides repository methods.
// It implements repository.UserRepository (see user.go).
type DB struct {
	conn   *sqlx.DB
	sealer secret.Sealer
}

// Option customises a DB at construction time.
type Option func(*DB)

// WithSealer protects access tokens at rest. The default stores them as-is.
func WithSealer(s secret.Sealer) Option {
	return func(db *DB) {
		if s != nil {
			db.sealer = s
		}
	}
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/devdashboard.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection — it just creates a pool manager.
// We call Ping() to force an immediate connection and verify it works.
func New(dbPath string, opts ...Option) (*DB, error) {
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows a single writer at a time. One connection serialises
	// upserts instead of surfacing SQLITE_BUSY, and it keeps a ":memory:"
	// database shared (each new connection would otherwise get an empty one).
	raw.SetMaxOpenConns(1)

	if err := raw.Ping(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) lets readers proceed while a write is in flight.
	if _, err := raw.Exec("PRAGMA journal_mode=WAL"); err != nil {
		raw.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Wait for a lock instead of failing immediately if another process
	// (e.g. a sqlite3 shell) holds the file.
	if _, err := raw.Exec("PRAGMA busy_timeout=5000"); err != nil {
		raw.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{
		conn:   sqlx.NewDb(raw, "sqlite"),
		sealer: secret.Plaintext{},
	}
	for _, opt := range opts {
		opt(db)
	}

	// Run database migrations to create/update tables
	if err := migrations.Up(context.Background(), raw, migrations.SQLite); err != nil {
		raw.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
//
//	db, err := sqlite.New("data/devdashboard.db")
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}
