// Package store persists all pipeline state in a single SQLite file.
// Claims are append-only at the domain level: rows gain match and
// resolution state but are never deleted.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	// ErrNotFound indicates the requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint rejected the write
	ErrDuplicate = errors.New("duplicate")
)

// Store wraps the SQLite handle. Safe for concurrent use; SQLite
// serializes writers internally and busy_timeout covers lock contention.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the database at path and runs migrations
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info("database initialized", zap.String("path", path))
	return s, nil
}

// Close closes the underlying handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE,
		title TEXT,
		affiliation TEXT,
		domains TEXT,
		verified INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS captures (
		id TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		source_name TEXT NOT NULL,
		url TEXT NOT NULL,
		url_hash TEXT NOT NULL UNIQUE,
		title TEXT,
		body TEXT NOT NULL,
		author TEXT,
		published_at DATETIME NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL REFERENCES subjects(id),
		capture_id TEXT,
		text TEXT NOT NULL,
		quote TEXT NOT NULL,
		source_url TEXT NOT NULL,
		captured_at DATETIME NOT NULL,
		confidence REAL NOT NULL,
		category TEXT NOT NULL,
		resolve_by DATETIME NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		chain_hash TEXT NOT NULL,
		prev_chain_hash TEXT NOT NULL,
		chain_index INTEGER NOT NULL UNIQUE,
		status TEXT NOT NULL,
		flag TEXT NOT NULL DEFAULT '',
		flag_note TEXT NOT NULL DEFAULT '',
		quality TEXT,
		outcome TEXT NOT NULL DEFAULT '',
		resolved_at DATETIME,
		resolution_notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claims_subject ON claims(subject_id);
	CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
	CREATE INDEX IF NOT EXISTS idx_claims_resolve_by ON claims(resolve_by);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL UNIQUE REFERENCES claims(id),
		market_id TEXT NOT NULL,
		question TEXT NOT NULL,
		similarity REAL NOT NULL,
		match_type TEXT NOT NULL,
		entry_price REAL NOT NULL,
		alternatives TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL UNIQUE REFERENCES claims(id),
		subject_id TEXT NOT NULL,
		market_id TEXT NOT NULL,
		entry_price REAL NOT NULL,
		size REAL NOT NULL,
		shares REAL NOT NULL,
		status TEXT NOT NULL,
		exit_price REAL,
		outcome TEXT NOT NULL DEFAULT '',
		realized_pnl REAL NOT NULL DEFAULT 0,
		closed_at DATETIME,
		opened_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_positions_subject ON positions(subject_id);
	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);

	CREATE TABLE IF NOT EXISTS review_queue (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL REFERENCES claims(id),
		market_id TEXT NOT NULL,
		question TEXT NOT NULL,
		similarity REAL NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		decided_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_review_status ON review_queue(status);

	CREATE TABLE IF NOT EXISTS subject_metrics (
		subject_id TEXT PRIMARY KEY REFERENCES subjects(id),
		total_claims INTEGER NOT NULL,
		resolved_claims INTEGER NOT NULL,
		pending_claims INTEGER NOT NULL,
		wins INTEGER NOT NULL,
		losses INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		total_pnl REAL NOT NULL,
		rolling_30d REAL NOT NULL,
		rolling_90d REAL NOT NULL,
		avg_quality REAL NOT NULL,
		subject_rank INTEGER NOT NULL,
		computed_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// mapWriteErr converts driver-level constraint violations into the
// package sentinels callers branch on
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
