// Package store persists the scraped content collection and the small
// behavioral tables that feed ranking: click feedback, search history and
// scan batches. Everything lives in a single SQLite database file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.canvascope/canvascope.db"

// Store is the SQLite-backed persistence layer.
// Pass ":memory:" to Open for in-memory databases (testing).
type Store struct {
	db     *sql.DB
	dbPath string
}

// ClickRecord is one row of click feedback, keyed by canonical URL path.
type ClickRecord struct {
	URLPath      string
	OpenCount    int
	LastOpenedAt time.Time
}

// SearchEntry is one row of search history.
type SearchEntry struct {
	Query       string
	ResultCount int
	SearchedAt  time.Time
}

// ScanBatch records one scraper delivery.
type ScanBatch struct {
	ID        string
	Platform  string
	ItemCount int
	Skipped   int
	ScannedAt time.Time
}

// Stats holds observability counts about the store.
type Stats struct {
	ItemCount   int64
	CourseCount int64
	ClickCount  int64
	SearchCount int64
	BatchCount  int64
	LastScanAt  *time.Time
	DBSizeBytes int64
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		path = expandPath(DefaultDBPath)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Clear removes all rows from every table. The schema stays in place.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"items", "click_feedback", "search_history", "scan_batches"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// Stats returns row counts and the database size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM items", &st.ItemCount},
		{"SELECT COUNT(DISTINCT course_name) FROM items WHERE course_name != ''", &st.CourseCount},
		{"SELECT COUNT(*) FROM click_feedback", &st.ClickCount},
		{"SELECT COUNT(*) FROM search_history", &st.SearchCount},
		{"SELECT COUNT(*) FROM scan_batches", &st.BatchCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	var lastScan sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(scanned_at) FROM scan_batches").Scan(&lastScan)
	if err != nil {
		return nil, fmt.Errorf("querying last scan: %w", err)
	}
	if lastScan.Valid {
		if t, perr := time.Parse(time.RFC3339, lastScan.String); perr == nil {
			st.LastScanAt = &t
		}
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("querying page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("querying page size: %w", err)
	}
	st.DBSizeBytes = pageCount * pageSize

	return st, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
