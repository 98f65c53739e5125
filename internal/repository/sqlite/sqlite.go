// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary
// needs no C toolchain. Schema changes live as goose migrations under
// migrations/ and are embedded into the binary; New applies any pending
// ones before returning.
//
// Users and links are exposed as two small stores sharing one pool:
//
//	db, err := sqlite.New(ctx, "data/linkify.db")
//	users := db.Users()
//	links := db.Links()
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB owns the connection pool. It is created once at startup and handed to
// the stores; nothing in this package keeps global state.
type DB struct {
	conn *sql.DB
}

// New opens dbPath, applies connection settings and runs migrations.
//
// dbPath examples:
//   - "data/linkify.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// CONNECTION POOL:
// sql.Open only builds the pool manager; no connection exists until the
// first query. PingContext forces that first connection so a bad path or a
// locked file fails here, at startup, and not on the first request.
//
// PRAGMAS:
//   - journal_mode=WAL   → readers do not block the writer and vice versa
//   - foreign_keys=ON    → social_links.user_id must point at a real user;
//     SQLite ships with this OFF and it is per connection
//   - busy_timeout=5000  → a writer waits up to 5s for the lock instead of
//     failing at once with SQLITE_BUSY
//
// The pool is capped at one connection, so the PRAGMAs run once and hold
// for every later query.
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite serialises writers anyway. A single connection also keeps a
	// ":memory:" database alive for the lifetime of the pool and means the
	// PRAGMAs below apply to every query.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newFromConn wraps an already configured pool without migrating it.
// Tests use it with sqlmock.
func newFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

func (db *DB) Links() *LinkDB {
	return &LinkDB{conn: db.conn}
}

// migrate applies every pending migration embedded under migrations/.
//
// GOOSE MIGRATIONS:
// Each file in migrations/ is named 0000N_description.sql and holds a
// "-- +goose Up" and a "-- +goose Down" section. The provider reads them
// from the embedded FS (the binary carries its own schema), compares them
// against the versions recorded in goose_db_version and runs only the ones
// not applied yet. Running New twice on the same file is therefore a no-op
// the second time.
func (db *DB) migrate(ctx context.Context) error {
	dir, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, dir)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
