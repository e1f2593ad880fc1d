package store

import (
	"context"
	"testing"
	"time"

	"github.com/NoelSason/canvascope/internal/lms"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestItemsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2025, 10, 3, 23, 59, 0, 0, time.UTC)
	unlock := time.Date(2025, 9, 26, 8, 0, 0, 0, time.UTC)
	scanned := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
	items := []lms.ContentItem{
		{
			Title:          "Homework 4",
			URL:            "https://canvas.test/courses/1/assignments/40",
			Type:           lms.TypeAssignment,
			CourseName:     "Chem 3B (Fall 2025)",
			CourseID:       "12345",
			ModuleName:     "Week 5",
			FolderPath:     "Problem Sets",
			DueAt:          &due,
			UnlockAt:       &unlock,
			ScannedAt:      &scanned,
			Platform:       "canvas",
			PlatformDomain: "canvas.test",
		},
		{Title: "Syllabus", URL: "https://canvas.test/courses/1/files/1"},
	}

	if err := s.ReplaceItems(ctx, items); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	got, err := s.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}

	first := got[0]
	if first.Title != "Homework 4" || first.Type != lms.TypeAssignment {
		t.Errorf("title/type mangled: %+v", first)
	}
	if first.CourseID != "12345" || first.CourseName != "Chem 3B (Fall 2025)" {
		t.Errorf("course fields mangled: %+v", first)
	}
	if first.ModuleName != "Week 5" || first.FolderPath != "Problem Sets" {
		t.Errorf("module/folder mangled: %+v", first)
	}
	if first.DueAt == nil || !first.DueAt.Equal(due) {
		t.Errorf("DueAt = %v, want %v", first.DueAt, due)
	}
	if first.UnlockAt == nil || !first.UnlockAt.Equal(unlock) {
		t.Errorf("UnlockAt = %v, want %v", first.UnlockAt, unlock)
	}
	if first.LockAt != nil {
		t.Errorf("LockAt = %v, want nil", first.LockAt)
	}
	if first.ScannedAt == nil || !first.ScannedAt.Equal(scanned) {
		t.Errorf("ScannedAt = %v, want %v", first.ScannedAt, scanned)
	}
	if first.Platform != "canvas" || first.PlatformDomain != "canvas.test" {
		t.Errorf("platform fields mangled: %+v", first)
	}

	second := got[1]
	if second.DueAt != nil || second.ScannedAt != nil {
		t.Errorf("nil dates did not survive: %+v", second)
	}
}

func TestReplaceItemsSwapsCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceItems(ctx, []lms.ContentItem{{Title: "Old"}}); err != nil {
		t.Fatalf("first ReplaceItems: %v", err)
	}
	if err := s.ReplaceItems(ctx, []lms.ContentItem{{Title: "New A"}, {Title: "New B"}}); err != nil {
		t.Fatalf("second ReplaceItems: %v", err)
	}
	got, err := s.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(got) != 2 || got[0].Title != "New A" {
		t.Errorf("old collection survived swap: %+v", got)
	}
}

func TestRecordClickUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	second := time.Date(2025, 10, 2, 9, 0, 0, 0, time.UTC)
	path := "/courses/1/assignments/40"

	if err := s.RecordClick(ctx, path, first); err != nil {
		t.Fatalf("first click: %v", err)
	}
	if err := s.RecordClick(ctx, path, second); err != nil {
		t.Fatalf("second click: %v", err)
	}

	feedback, err := s.ClickFeedback(ctx)
	if err != nil {
		t.Fatalf("ClickFeedback: %v", err)
	}
	rec, ok := feedback[path]
	if !ok {
		t.Fatalf("no record for %q", path)
	}
	if rec.OpenCount != 2 {
		t.Errorf("OpenCount = %d, want 2", rec.OpenCount)
	}
	if !rec.LastOpenedAt.Equal(second) {
		t.Errorf("LastOpenedAt = %v, want %v", rec.LastOpenedAt, second)
	}

	if err := s.RecordClick(ctx, "", first); err == nil {
		t.Error("empty url path accepted")
	}
}

func TestSearchHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	for i, q := range []string{"hw4", "syllabus", "lab report"} {
		if err := s.AddSearch(ctx, q, i+1, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("AddSearch(%q): %v", q, err)
		}
	}

	got, err := s.RecentSearches(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Query != "lab report" || got[1].Query != "syllabus" {
		t.Errorf("order wrong: %q, %q", got[0].Query, got[1].Query)
	}
	if got[0].ResultCount != 3 {
		t.Errorf("ResultCount = %d, want 3", got[0].ResultCount)
	}
}

func TestScanBatchesAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	scanAt := time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)
	batch := ScanBatch{
		ID:        "0d1c7af2-6f52-4a7e-9c0e-0a1b2c3d4e5f",
		Platform:  "canvas",
		ItemCount: 42,
		Skipped:   3,
		ScannedAt: scanAt,
	}
	if err := s.AddScanBatch(ctx, batch); err != nil {
		t.Fatalf("AddScanBatch: %v", err)
	}
	batches, err := s.ScanBatches(ctx)
	if err != nil {
		t.Fatalf("ScanBatches: %v", err)
	}
	if len(batches) != 1 || batches[0].ItemCount != 42 || batches[0].Skipped != 3 {
		t.Fatalf("batch round trip: %+v", batches)
	}

	if err := s.ReplaceItems(ctx, []lms.ContentItem{
		{Title: "A", CourseName: "Chem 3B (Fall 2025)"},
		{Title: "B", CourseName: "Chem 3B (Fall 2025)"},
		{Title: "C", CourseName: "Eng 45 (Fall 2025)"},
	}); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if err := s.RecordClick(ctx, "/courses/1/files/1", scanAt); err != nil {
		t.Fatalf("RecordClick: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", stats.ItemCount)
	}
	if stats.CourseCount != 2 {
		t.Errorf("CourseCount = %d, want 2", stats.CourseCount)
	}
	if stats.ClickCount != 1 {
		t.Errorf("ClickCount = %d, want 1", stats.ClickCount)
	}
	if stats.BatchCount != 1 {
		t.Errorf("BatchCount = %d, want 1", stats.BatchCount)
	}
	if stats.LastScanAt == nil || !stats.LastScanAt.Equal(scanAt) {
		t.Errorf("LastScanAt = %v, want %v", stats.LastScanAt, scanAt)
	}
	if stats.DBSizeBytes <= 0 {
		t.Errorf("DBSizeBytes = %d, want > 0", stats.DBSizeBytes)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceItems(ctx, []lms.ContentItem{{Title: "A"}}); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	if err := s.AddSearch(ctx, "hw4", 1, time.Now()); err != nil {
		t.Fatalf("AddSearch: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ItemCount != 0 || stats.SearchCount != 0 {
		t.Errorf("clear left rows behind: %+v", stats)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
