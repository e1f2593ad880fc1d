package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NoelSason/canvascope/internal/lms"
)

// Items returns the full stored collection in insertion order.
func (s *Store) Items(ctx context.Context) ([]lms.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, url, type, course_name, course_id, module_name,
		       folder_path, due_at, unlock_at, lock_at, scanned_at,
		       platform, platform_domain
		FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var out []lms.ContentItem
	for rows.Next() {
		var it lms.ContentItem
		var typ, dueAt, unlockAt, lockAt, scannedAt sql.NullString
		var courseID sql.NullString
		if err := rows.Scan(
			&it.Title, &it.URL, &typ, &it.CourseName, &courseID,
			&it.ModuleName, &it.FolderPath, &dueAt, &unlockAt, &lockAt,
			&scannedAt, &it.Platform, &it.PlatformDomain,
		); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		if typ.Valid {
			it.Type = lms.ItemType(typ.String)
		}
		if courseID.Valid {
			it.CourseID = lms.FlexID(courseID.String)
		}
		it.DueAt = parseNullTime(dueAt)
		it.UnlockAt = parseNullTime(unlockAt)
		it.LockAt = parseNullTime(lockAt)
		it.ScannedAt = parseNullTime(scannedAt)
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReplaceItems swaps the stored collection for items in one transaction.
func (s *Store) ReplaceItems(ctx context.Context, items []lms.ContentItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (
			title, url, type, course_name, course_id, module_name,
			folder_path, due_at, unlock_at, lock_at, scanned_at,
			platform, platform_domain
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx,
			it.Title, it.URL, string(it.Type), it.CourseName,
			string(it.CourseID), it.ModuleName, it.FolderPath,
			formatNullTime(it.DueAt), formatNullTime(it.UnlockAt),
			formatNullTime(it.LockAt), formatNullTime(it.ScannedAt),
			it.Platform, it.PlatformDomain,
		); err != nil {
			return fmt.Errorf("inserting item %q: %w", it.Title, err)
		}
	}
	return tx.Commit()
}

func formatNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
