package store

import (
	"context"
	"fmt"
	"time"
)

// RecordClick increments the open count for a URL path and stamps the time.
func (s *Store) RecordClick(ctx context.Context, urlPath string, at time.Time) error {
	if urlPath == "" {
		return fmt.Errorf("recording click: empty url path")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO click_feedback (url_path, open_count, last_opened_at)
		VALUES (?, 1, ?)
		ON CONFLICT(url_path) DO UPDATE SET
			open_count = open_count + 1,
			last_opened_at = excluded.last_opened_at`,
		urlPath, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording click for %q: %w", urlPath, err)
	}
	return nil
}

// ClickFeedback returns every click record keyed by URL path.
func (s *Store) ClickFeedback(ctx context.Context) (map[string]ClickRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT url_path, open_count, last_opened_at FROM click_feedback")
	if err != nil {
		return nil, fmt.Errorf("querying click feedback: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ClickRecord)
	for rows.Next() {
		var rec ClickRecord
		var openedAt string
		if err := rows.Scan(&rec.URLPath, &rec.OpenCount, &openedAt); err != nil {
			return nil, fmt.Errorf("scanning click record: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, openedAt); perr == nil {
			rec.LastOpenedAt = t
		}
		out[rec.URLPath] = rec
	}
	return out, rows.Err()
}

// AddSearch appends one search to the history log.
func (s *Store) AddSearch(ctx context.Context, query string, resultCount int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (query, result_count, searched_at)
		VALUES (?, ?, ?)`,
		query, resultCount, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	return nil
}

// RecentSearches returns the newest limit history entries, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, result_count, searched_at FROM search_history
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying search history: %w", err)
	}
	defer rows.Close()

	var out []SearchEntry
	for rows.Next() {
		var e SearchEntry
		var at string
		if err := rows.Scan(&e.Query, &e.ResultCount, &at); err != nil {
			return nil, fmt.Errorf("scanning search entry: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, at); perr == nil {
			e.SearchedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddScanBatch records one scraper delivery.
func (s *Store) AddScanBatch(ctx context.Context, b ScanBatch) error {
	if b.ID == "" {
		return fmt.Errorf("recording scan batch: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_batches (id, platform, item_count, skipped, scanned_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Platform, b.ItemCount, b.Skipped,
		b.ScannedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording scan batch %s: %w", b.ID, err)
	}
	return nil
}

// ScanBatches returns all recorded batches, newest first.
func (s *Store) ScanBatches(ctx context.Context) ([]ScanBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, item_count, skipped, scanned_at
		FROM scan_batches ORDER BY scanned_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying scan batches: %w", err)
	}
	defer rows.Close()

	var out []ScanBatch
	for rows.Next() {
		var b ScanBatch
		var at string
		if err := rows.Scan(&b.ID, &b.Platform, &b.ItemCount, &b.Skipped, &at); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, at); perr == nil {
			b.ScannedAt = t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
