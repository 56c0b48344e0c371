package store

import (
	"database/sql"
	"fmt"

	"github.com/emberhq/ember/internal/config"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the ember database.
func Open() (*DB, error) {
	paths := config.GetPaths()
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data dirs: %w", err)
	}

	conn, err := sql.Open("sqlite", paths.DBFile+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the raw sql.DB for direct queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// migrate runs all schema migrations.
func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Append-only activity log. Timestamps are RFC3339 UTC; timezone is
		// the IANA zone the event was logged from (informational only).
		// Metadata is tagged-union JSON, see engine.MetaValue.
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			streak_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			timezone TEXT DEFAULT '',
			metadata TEXT DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_streak ON events(streak_id, timestamp)`,
		// Freeze tokens. NULL used_at means unused; NULL expires_at means
		// never expires. used_day records which calendar day it patched.
		`CREATE TABLE IF NOT EXISTS freezes (
			id TEXT PRIMARY KEY,
			streak_id TEXT NOT NULL,
			earned_at TEXT,
			used_at TEXT,
			used_day TEXT,
			expires_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_freezes_streak ON freezes(streak_id, earned_at)`,
		// Last-known snapshot per streak for instant cold-start display.
		`CREATE TABLE IF NOT EXISTS snapshots (
			streak_id TEXT PRIMARY KEY,
			current INTEGER NOT NULL DEFAULT 0,
			longest INTEGER NOT NULL DEFAULT 0,
			last_event_at TEXT,
			last_event_tz TEXT DEFAULT '',
			streak_start TEXT,
			total_events INTEGER NOT NULL DEFAULT 0,
			today_count INTEGER NOT NULL DEFAULT 0,
			events_per_day INTEGER NOT NULL DEFAULT 1,
			freezes_remaining INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Key-value store for misc state
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}
