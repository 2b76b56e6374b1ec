// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists papers, models, runs and run entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Store manages the survey SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Workers write concurrently; a single connection serializes them.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			paper_id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_title TEXT NOT NULL,
			publication_title TEXT NOT NULL DEFAULT '',
			year TEXT NOT NULL DEFAULT '',
			volume TEXT NOT NULL DEFAULT '',
			issue TEXT NOT NULL DEFAULT '',
			start_page TEXT NOT NULL DEFAULT '',
			end_page TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			doi TEXT NOT NULL DEFAULT '' CHECK (doi = '' OR doi LIKE '10.%'),
			keywords TEXT NOT NULL DEFAULT '',
			publisher TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS models (
			model_id INTEGER PRIMARY KEY AUTOINCREMENT,
			host TEXT NOT NULL,
			name TEXT NOT NULL UNIQUE,
			key TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS model_parameters (
			model_id INTEGER NOT NULL REFERENCES models(model_id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_model_parameters_model ON model_parameters(model_id)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			alias TEXT NOT NULL,
			type INTEGER NOT NULL CHECK (type IN (0, 1)),
			prompt TEXT NOT NULL,
			created TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_entries (
			run_entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			paper_id INTEGER NOT NULL REFERENCES papers(paper_id) ON DELETE CASCADE,
			model_id INTEGER NOT NULL REFERENCES models(model_id),
			classification INTEGER NOT NULL CHECK (classification IN (0, 1, 2, 3)),
			answer TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_run_entries_unique ON run_entries(run_id, paper_id, model_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
