// Package sqlite implements the repository interfaces on an embedded SQLite
// database through database/sql and the pure-Go modernc.org/sqlite driver.
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
//
// All timestamps are written in UTC so that range comparisons on the
// DATETIME text columns order correctly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/stepwise/internal/repository"
)

// compile-time check that *DB satisfies the whole backend contract
var _ repository.Store = (*DB)(nil)

// busyTimeoutMillis bounds how long a writer waits for another writer's
// transaction before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/stepwise.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests; lost on close)
//
// Per-connection pragmas go through the DSN so every pooled connection gets
// them, not just the first one.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool
	// must never grow past one.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL is a property of the database file and sticks after one call.
	if !isMemory(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", dbPath, sep, busyTimeoutMillis)
}

func isMemory(dbPath string) bool {
	return strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory")
}

// Close closes the database connection pool.
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

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent. Later phases add columns with
// addColumnIfNotExists so existing database files upgrade in place.
func (db *DB) migrate() error {
	// Phase 1: users
	// external_id is UNIQUE: one row per identity-provider user.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id   TEXT NOT NULL UNIQUE,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			profile_image TEXT,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Phase 1: solutions
	// Deleting a user cascades to their archive.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS solutions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			external_id     TEXT NOT NULL,
			problem_number  INTEGER NOT NULL,
			problem_type    TEXT NOT NULL,
			problem_content TEXT NOT NULL,
			mime_type       TEXT,
			solution        TEXT NOT NULL,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, problem_number)
		);
		CREATE INDEX IF NOT EXISTS idx_solutions_external_id ON solutions(external_id);
		CREATE INDEX IF NOT EXISTS idx_solutions_user_created ON solutions(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating solutions table: %w", err)
	}

	// Phase 2: per-user problem counter.
	// On first add, seed it from the highest number already assigned.
	added, err := db.addColumnIfNotExists("users", "last_problem_number",
		"INTEGER NOT NULL DEFAULT 0")
	if err != nil {
		return fmt.Errorf("adding last_problem_number to users: %w", err)
	}
	if added {
		_, err = db.conn.Exec(`
			UPDATE users SET last_problem_number = (
				SELECT COALESCE(MAX(problem_number), 0) FROM solutions WHERE solutions.user_id = users.id
			)
		`)
		if err != nil {
			return fmt.Errorf("seeding last_problem_number: %w", err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already
// exist, and reports whether it did.
func (db *DB) addColumnIfNotExists(table, column, definition string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return false, nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	if err != nil {
		return false, err
	}
	return true, nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedrv.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// nullString converts an optional string to its column value.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr is the inverse of nullString.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
