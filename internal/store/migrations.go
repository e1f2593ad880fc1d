package store

import "fmt"

// migrate creates all tables and indexes. Every statement is idempotent so
// migrate can run on every open.
func (s *Store) migrate() error {
	ddl := []string{
		// The item collection. Timestamps are RFC3339 TEXT so rows stay
		// greppable with the sqlite3 shell.
		`CREATE TABLE IF NOT EXISTS items (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			title           TEXT NOT NULL,
			url             TEXT,
			type            TEXT,
			course_name     TEXT,
			course_id       TEXT,
			module_name     TEXT,
			folder_path     TEXT,
			due_at          TEXT,
			unlock_at       TEXT,
			lock_at         TEXT,
			scanned_at      TEXT,
			platform        TEXT,
			platform_domain TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_course ON items(course_name)`,
		`CREATE INDEX IF NOT EXISTS idx_items_type ON items(type)`,

		// Click feedback keyed by canonical URL path.
		`CREATE TABLE IF NOT EXISTS click_feedback (
			url_path       TEXT PRIMARY KEY,
			open_count     INTEGER NOT NULL DEFAULT 0,
			last_opened_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS search_history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			query        TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0,
			searched_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_at ON search_history(searched_at)`,

		// One row per scraper delivery.
		`CREATE TABLE IF NOT EXISTS scan_batches (
			id         TEXT PRIMARY KEY,
			platform   TEXT,
			item_count INTEGER NOT NULL DEFAULT 0,
			skipped    INTEGER NOT NULL DEFAULT 0,
			scanned_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}
	return nil
}
