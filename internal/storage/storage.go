// Package storage persists ads, alerts and notification records in SQLite.
// The scrape cycle treats it as a record store with per-record atomic
// upserts; it never relies on cross-record transactions.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path (":memory:" for tests) and creates
// the schema if missing.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer; a second writer connection would only
	// produce SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS ads (
			ad_id TEXT PRIMARY KEY,
			ad_url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			price_amount INTEGER NOT NULL DEFAULT 0,
			price_currency TEXT NOT NULL DEFAULT 'EUR',
			price_text TEXT NOT NULL DEFAULT '',
			price_known INTEGER NOT NULL DEFAULT 0,
			tier TEXT NOT NULL DEFAULT 'Basic',
			brand TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			mileage INTEGER NOT NULL DEFAULT 0,
			engine_cc INTEGER NOT NULL DEFAULT 0,
			gearbox TEXT NOT NULL DEFAULT '',
			fuel_type TEXT NOT NULL DEFAULT '',
			drive_type TEXT NOT NULL DEFAULT '',
			body_type TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			seller_name TEXT NOT NULL DEFAULT '',
			seller_id TEXT NOT NULL DEFAULT '',
			is_business INTEGER NOT NULL DEFAULT 0,
			posted_at TIMESTAMP,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL,
			page INTEGER NOT NULL DEFAULT 1,
			removed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			filters TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			alert_id INTEGER NOT NULL,
			ad_id TEXT NOT NULL,
			change_key TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL,
			PRIMARY KEY (alert_id, ad_id, change_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ads_last_seen ON ads (last_seen)`,
		`CREATE INDEX IF NOT EXISTS idx_ads_page ON ads (page) WHERE removed = 0`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
