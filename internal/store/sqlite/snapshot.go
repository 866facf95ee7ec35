// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

// Package sqlite provides the SQLite snapshot backend for the record
// store: one row per logical table, holding the full JSON blob.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/semvault-dev/semvault/internal/store"
)

func init() {
	store.RegisterSnapshotter("sqlite", func(dataPath string) (store.Snapshotter, error) {
		return NewSnapshotter(filepath.Join(dataPath, "semvault.db"))
	})
}

// Compile-time interface check.
var _ store.Snapshotter = (*Snapshotter)(nil)

// Snapshotter persists snapshots in a SQLite key/value table.
type Snapshotter struct {
	db *sql.DB
}

// NewSnapshotter opens (or creates) the database at dbPath and
// initialises the snapshots table.
func NewSnapshotter(dbPath string) (*Snapshotter, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}

	return &Snapshotter{db: db}, nil
}

// Get reads one snapshot blob.
func (s *Snapshotter) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts one snapshot blob.
func (s *Snapshotter) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO snapshots(key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, q, key, value, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Snapshotter) Close() error {
	return s.db.Close()
}
