package dedup

import (
	"testing"
	"time"

	"github.com/NoelSason/canvascope/internal/identity"
	"github.com/NoelSason/canvascope/internal/lms"
)

func ts(day int) *time.Time {
	t := time.Date(2026, 9, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func asSet(t *testing.T, items []lms.ContentItem) map[string]lms.ContentItem {
	t.Helper()
	set := make(map[string]lms.ContentItem, len(items))
	for _, it := range items {
		key := identity.CanonicalID(it)
		if _, dup := set[key]; dup {
			t.Fatalf("duplicate canonical id %q in output", key)
		}
		set[key] = it
	}
	return set
}

func TestDedupPrefersCanonicalURL(t *testing.T) {
	canonical := lms.ContentItem{
		Title: "Homework 4",
		URL:   "https://lms.example.edu/courses/101/assignments/7",
		Type:  lms.TypeAssignment,
	}
	redirect := lms.ContentItem{
		Title: "Homework 4",
		URL:   "https://lms.example.edu/courses/101/assignments/7?module_item_id=99",
		Type:  lms.TypeAssignment,
		DueAt: ts(10),
	}

	got := Dedup([]lms.ContentItem{redirect, canonical})
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].URL != canonical.URL {
		t.Errorf("winner URL = %q, want canonical %q", got[0].URL, canonical.URL)
	}
	if got[0].DueAt == nil || !got[0].DueAt.Equal(*redirect.DueAt) {
		t.Errorf("loser due date must survive the merge, got %v", got[0].DueAt)
	}
}

func TestDedupCrossTypeAssignmentBeatsQuiz(t *testing.T) {
	assignment := lms.ContentItem{
		Title:      "Reading Check 2",
		CourseName: "Hist 10",
		URL:        "https://lms.example.edu/courses/9/assignments/1",
		Type:       lms.TypeAssignment,
	}
	quizTwin := lms.ContentItem{
		Title:      "Reading Check 2",
		CourseName: "Hist 10",
		URL:        "https://lms.example.edu/courses/9/quizzes/4",
		Type:       lms.TypeQuiz,
		DueAt:      ts(5),
		LockAt:     ts(6),
	}

	got := Dedup([]lms.ContentItem{quizTwin, assignment})
	if len(got) != 1 {
		t.Fatalf("expected assignment/quiz twin to collapse, got %d items", len(got))
	}
	if got[0].Type != lms.TypeAssignment {
		t.Errorf("winner type = %q, want assignment", got[0].Type)
	}
	if got[0].DueAt == nil || got[0].LockAt == nil {
		t.Errorf("quiz twin dates must survive: due=%v lock=%v", got[0].DueAt, got[0].LockAt)
	}
}

func TestDedupIdempotent(t *testing.T) {
	items := []lms.ContentItem{
		{Title: "Homework 4", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/assignments/7", Type: lms.TypeAssignment},
		{Title: "Homework 4", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/quizzes/2", Type: lms.TypeQuiz, DueAt: ts(3)},
		{Title: "Syllabus.pdf", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/files/5", Type: lms.TypeFile},
		{Title: "", URL: "https://lms.example.edu/courses/1/pages/intro", Type: lms.TypePage},
	}

	once := Dedup(items)
	twice := Dedup(once)

	a, b := asSet(t, once), asSet(t, twice)
	if len(a) != len(b) {
		t.Fatalf("idempotence broken: %d vs %d items", len(a), len(b))
	}
	for key, itemA := range a {
		itemB, ok := b[key]
		if !ok {
			t.Fatalf("item %q vanished on second run", key)
		}
		if itemA.URL != itemB.URL || itemA.Type != itemB.Type {
			t.Errorf("item %q changed on second run", key)
		}
	}
}

func TestDedupCommutative(t *testing.T) {
	batchA := []lms.ContentItem{
		{Title: "Homework 4", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/assignments/7", Type: lms.TypeAssignment},
		{Title: "Lab 3", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/pages/lab-3", Type: lms.TypePage},
	}
	batchB := []lms.ContentItem{
		{Title: "Homework 4", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/assignments/7?module_item_id=4", Type: lms.TypeAssignment, DueAt: ts(10)},
		{Title: "Homework 4", CourseName: "Chem 3B", URL: "https://lms.example.edu/courses/1/quizzes/8", Type: lms.TypeQuiz, UnlockAt: ts(1)},
	}

	ab := asSet(t, Dedup(append(append([]lms.ContentItem{}, batchA...), batchB...)))
	ba := asSet(t, Dedup(append(append([]lms.ContentItem{}, batchB...), batchA...)))

	if len(ab) != len(ba) {
		t.Fatalf("A++B gave %d items, B++A gave %d", len(ab), len(ba))
	}
	for key, itemAB := range ab {
		itemBA, ok := ba[key]
		if !ok {
			t.Fatalf("item %q only present in one order", key)
		}
		if itemAB.URL != itemBA.URL || itemAB.Type != itemBA.Type {
			t.Errorf("winner for %q differs across orders", key)
		}
		if (itemAB.DueAt == nil) != (itemBA.DueAt == nil) {
			t.Errorf("due date for %q differs across orders", key)
		}
		if (itemAB.UnlockAt == nil) != (itemBA.UnlockAt == nil) {
			t.Errorf("unlock date for %q differs across orders", key)
		}
	}
}

func TestDedupDueDatePreservation(t *testing.T) {
	withDate := lms.ContentItem{
		Title: "Essay 1", CourseName: "Eng 45",
		URL:   "https://lms.example.edu/courses/2/modules/items/9",
		Type:  lms.TypeAssignment,
		DueAt: ts(20),
	}
	withoutDate := lms.ContentItem{
		Title: "Essay 1", CourseName: "Eng 45",
		URL:  "https://lms.example.edu/courses/2/modules/items/9",
		Type: lms.TypeAssignment,
	}

	for _, order := range [][]lms.ContentItem{
		{withDate, withoutDate},
		{withoutDate, withDate},
	} {
		got := Dedup(order)
		if len(got) != 1 {
			t.Fatalf("expected 1 item, got %d", len(got))
		}
		if got[0].DueAt == nil || !got[0].DueAt.Equal(*withDate.DueAt) {
			t.Errorf("non-null due date lost for order %v", order[0].DueAt != nil)
		}
	}
}

func TestDedupSkipsZeroItems(t *testing.T) {
	got := Dedup([]lms.ContentItem{
		{},
		{Title: "   "},
		{Title: "Real", URL: "https://lms.example.edu/courses/1/pages/real"},
	})
	if len(got) != 1 || got[0].Title != "Real" {
		t.Errorf("zero items must be dropped, got %+v", got)
	}
}

func TestDedupUntitledSkipsCrossTypeOnly(t *testing.T) {
	// Two untitled items with distinct URLs survive pass 1 individually and
	// are never grouped by pass 2.
	got := Dedup([]lms.ContentItem{
		{URL: "https://lms.example.edu/courses/1/files/10"},
		{URL: "https://lms.example.edu/courses/1/files/11"},
	})
	if len(got) != 2 {
		t.Errorf("untitled items must not collapse in pass 2, got %d", len(got))
	}
}
