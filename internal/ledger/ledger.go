// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps the fetch-history index: one row per deposit
// key, updated on every successful fetch. The ledger answers "what
// have I already fetched" without walking deposit folders.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/okrent/forage/pkg/types"
)

const (
	dbFile     = "forage.db"
	exportFile = "ledger.yaml"
)

// Entry is one fetch-history row.
type Entry struct {
	Key       string    `yaml:"key"`
	Reference string    `yaml:"reference"`
	Kind      string    `yaml:"kind"`
	Title     string    `yaml:"title"`
	Method    string    `yaml:"method"`
	CharCount int       `yaml:"char_count"`
	Cues      []string  `yaml:"cues,omitempty"`
	FetchedAt time.Time `yaml:"fetched_at"`
}

// Ledger manages the fetch-history SQLite database.
type Ledger struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// Open opens or creates the ledger database under dir, creating the
// schema when missing.
func Open(cfg types.LedgerConfig) (*Ledger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	l := &Ledger{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS fetches (
			key TEXT PRIMARY KEY,
			reference TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT,
			method TEXT,
			char_count INTEGER,
			cues TEXT,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_kind ON fetches(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_fetched_at ON fetches(fetched_at)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record upserts one fetch. Refetching a reference replaces its row,
// matching the wipe-and-rewrite deposit semantics.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	cuesJSON, _ := json.Marshal(e.Cues)
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO fetches (key, reference, kind, title, method, char_count, cues, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			reference=excluded.reference, kind=excluded.kind, title=excluded.title,
			method=excluded.method, char_count=excluded.char_count,
			cues=excluded.cues, fetched_at=excluded.fetched_at`,
		e.Key, e.Reference, e.Kind, e.Title, e.Method, e.CharCount,
		string(cuesJSON), e.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording fetch %s: %w", e.Key, err)
	}
	return nil
}

// List returns recent fetches, newest first, optionally filtered by
// kind. limit <= 0 uses the configured default.
func (l *Ledger) List(ctx context.Context, kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = l.maxResults
	}

	query := `SELECT key, reference, kind, title, method, char_count, cues, fetched_at
		FROM fetches`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY fetched_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fetches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var cuesJSON, fetchedAt string
		if err := rows.Scan(&e.Key, &e.Reference, &e.Kind, &e.Title, &e.Method,
			&e.CharCount, &cuesJSON, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning fetch row: %w", err)
		}
		json.Unmarshal([]byte(cuesJSON), &e.Cues)
		if t, perr := time.Parse(time.RFC3339Nano, fetchedAt); perr == nil {
			e.FetchedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExportYAML writes the full history to ledger.yaml next to the
// database, for human inspection and version control.
func (l *Ledger) ExportYAML(ctx context.Context) error {
	entries, err := l.List(ctx, "", 1<<30)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding ledger export: %w", err)
	}
	path := filepath.Join(l.dir, exportFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger export: %w", err)
	}
	return os.Rename(tmp, path)
}
