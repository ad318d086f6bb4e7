// Package store persists scan records, tracked-domain subscriptions and
// change events in SQLite. Structured sub-objects (tech fields, AI report,
// phases, evidence, diffs) are stored as JSON columns; the columns queries
// filter on (domain, user, timestamps) are plain and indexed.
package store

import (
	"database/sql"
	"fmt"

	"github.com/hazyhaar/stackprobe/dbopen"
)

// Schema creates all tables. Safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	domain TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	framework TEXT,
	hosting TEXT,
	payments TEXT,
	auth TEXT,
	analytics TEXT,
	support TEXT,
	ai TEXT NOT NULL DEFAULT '{}',
	mode TEXT NOT NULL,
	phases TEXT NOT NULL,
	evidence TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_scans_domain ON scans(domain, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_scans_user ON scans(user_id, created_at DESC) WHERE user_id != '';
CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at DESC);

CREATE TABLE IF NOT EXISTS subscriptions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	notify INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	last_scanned_at INTEGER,
	last_scan_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_subs_user_domain ON subscriptions(user_id, domain);
CREATE INDEX IF NOT EXISTS idx_subs_due ON subscriptions(active, last_scanned_at);

CREATE TABLE IF NOT EXISTS change_events (
	id TEXT PRIMARY KEY,
	subscription_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	old_scan_id TEXT NOT NULL,
	new_scan_id TEXT NOT NULL,
	change_type TEXT NOT NULL,
	summary TEXT NOT NULL,
	diff TEXT NOT NULL,
	notified INTEGER NOT NULL DEFAULT 0,
	notified_at INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_domain ON change_events(domain, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_changes_unnotified ON change_events(notified, created_at) WHERE notified = 0;
`

// ErrNotFound is returned by updates targeting a missing row. Lookups
// return (nil, nil) instead.
var ErrNotFound = fmt.Errorf("store: not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New wraps an already-opened database. The schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the database at path with the schema
// applied.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for components sharing the database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
