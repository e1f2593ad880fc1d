package search

import (
	"fmt"
	"testing"

	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/rank"
)

func item(title, course string, typ lms.ItemType, url string) lms.ContentItem {
	return lms.ContentItem{
		Title:      title,
		CourseName: course,
		Type:       typ,
		URL:        url,
	}
}

func testCorpus() []lms.ContentItem {
	return []lms.ContentItem{
		item("Homework 4", "Chem 3B (Fall 2025)", lms.TypeAssignment, "https://canvas.test/courses/1/assignments/40"),
		item("Homework 14", "Chem 3B (Fall 2025)", lms.TypeAssignment, "https://canvas.test/courses/1/assignments/140"),
		item("Homework 24", "Chem 3B (Fall 2025)", lms.TypeAssignment, "https://canvas.test/courses/1/assignments/240"),
		item("Lab B Lecture - Alpha Pinene Oxide.pdf", "Chem 3B (Fall 2025)", lms.TypePDF, "https://canvas.test/courses/1/files/9001"),
		item("Lab 3 - Lecture Recordings", "Chem 3B (Fall 2025)", lms.TypePage, "https://canvas.test/courses/1/pages/lab-3-recordings"),
		item("Collab Session Notes", "Chem 3B (Fall 2025)", lms.TypePage, "https://canvas.test/courses/1/pages/collab"),
		item("PLWS 10", "Chem 3B (Fall 2025)", lms.TypeFile, "https://canvas.test/courses/1/files/9010"),
		item("Essay Draft", "Eng 45 (Fall 2025)", lms.TypeAssignment, "https://canvas.test/courses/2/assignments/77"),
		item("Syllabus", "Chem 3B (Fall 2025)", lms.TypeFile, "https://canvas.test/courses/1/files/1"),
		item("Syllabus", "Eng 45 (Fall 2025)", lms.TypeFile, "https://canvas.test/courses/2/files/1"),
	}
}

func titles(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.Title
	}
	return out
}

func TestSearchEmptyInputs(t *testing.T) {
	e := NewEngine(testCorpus())
	if got := e.Search("", Options{}); len(got) != 0 {
		t.Errorf("blank query: got %d results, want 0", len(got))
	}
	if got := e.Search("   ", Options{}); len(got) != 0 {
		t.Errorf("whitespace query: got %d results, want 0", len(got))
	}
	empty := NewEngine(nil)
	if got := empty.Search("homework", Options{}); len(got) != 0 {
		t.Errorf("empty corpus: got %d results, want 0", len(got))
	}
}

func TestSearchExpandsCompactAbbreviation(t *testing.T) {
	e := NewEngine(testCorpus())
	got := e.Search("hw4", Options{})
	if len(got) == 0 {
		t.Fatal("no results for hw4")
	}
	if got[0].Item.Title != "Homework 4" {
		t.Fatalf("hw4 top result = %q, want Homework 4 (order: %v)", got[0].Item.Title, titles(got))
	}
	// The number mismatch must keep 14 and 24 strictly below Homework 4.
	for _, r := range got {
		if (r.Item.Title == "Homework 14" || r.Item.Title == "Homework 24") &&
			r.FinalScore >= got[0].FinalScore {
			t.Errorf("%s scored %v, not below Homework 4 %v",
				r.Item.Title, r.FinalScore, got[0].FinalScore)
		}
	}
}

func TestSearchRespectsTokenBoundaries(t *testing.T) {
	e := NewEngine(testCorpus())
	got := e.Search("lab b lecture", Options{})
	if len(got) == 0 {
		t.Fatal("no results")
	}
	if got[0].Item.Title != "Lab B Lecture - Alpha Pinene Oxide.pdf" {
		t.Fatalf("top result = %q (order: %v)", got[0].Item.Title, titles(got))
	}
	for _, r := range got {
		if r.Item.Title == "Collab Session Notes" {
			t.Errorf("substring-only match %q surfaced", r.Item.Title)
		}
	}
}

func TestSearchCourseScopeNarrows(t *testing.T) {
	e := NewEngine(testCorpus())
	got := e.Search("chem 3b plws 10", Options{})
	if len(got) == 0 {
		t.Fatal("no results")
	}
	if got[0].Item.Title != "PLWS 10" {
		t.Fatalf("top result = %q (order: %v)", got[0].Item.Title, titles(got))
	}
	for _, r := range got {
		if r.Item.CourseName != "Chem 3B (Fall 2025)" {
			t.Errorf("scoped search leaked %q from %q", r.Item.Title, r.Item.CourseName)
		}
	}
}

func TestSearchActiveCoursePriorBreaksTie(t *testing.T) {
	e := NewEngine(testCorpus())
	got := e.Search("syllabus", Options{
		Context: rank.Context{
			ActiveCourse: &rank.ActiveCourse{CourseName: "Eng 45 (Fall 2025)"},
		},
	})
	if len(got) < 2 {
		t.Fatalf("got %d results, want both syllabi", len(got))
	}
	if got[0].Item.CourseName != "Eng 45 (Fall 2025)" {
		t.Errorf("active-course syllabus not first (order: %v / %v)",
			got[0].Item.CourseName, got[1].Item.CourseName)
	}
}

func TestSearchCourseAndTypeFilters(t *testing.T) {
	e := NewEngine(testCorpus())

	got := e.Search("syllabus", Options{Course: "eng 45 (fall 2025)"})
	if len(got) != 1 || got[0].Item.CourseName != "Eng 45 (Fall 2025)" {
		t.Fatalf("course filter: got %v", titles(got))
	}

	got = e.Search("homework", Options{Type: lms.TypePage})
	for _, r := range got {
		if r.Item.Type != lms.TypePage {
			t.Errorf("type filter leaked %q (%s)", r.Item.Title, r.Item.Type)
		}
	}
}

func TestSearchDeduplicatesBeforeRanking(t *testing.T) {
	dup := item("Homework 4", "Chem 3B (Fall 2025)", lms.TypeAssignment,
		"https://canvas.test/courses/1/assignments/40?module_item_id=5")
	e := NewEngine(append(testCorpus(), dup))
	got := e.Search("homework 4", Options{})
	seen := 0
	for _, r := range got {
		if r.Item.Title == "Homework 4" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("Homework 4 appeared %d times, want 1", seen)
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	items := make([]lms.ContentItem, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, item(
			fmt.Sprintf("Reading Notes %02d", i+1),
			"Eng 45 (Fall 2025)", lms.TypePage,
			fmt.Sprintf("https://canvas.test/courses/2/pages/reading-%02d", i+1),
		))
	}
	e := NewEngine(items)

	got := e.Search("reading notes", Options{})
	if len(got) != DefaultLimit {
		t.Errorf("default limit: got %d results, want %d", len(got), DefaultLimit)
	}
	got = e.Search("reading notes", Options{Limit: 5})
	if len(got) != 5 {
		t.Errorf("explicit limit: got %d results, want 5", len(got))
	}
}

func TestSearchDeterministicOrder(t *testing.T) {
	e := NewEngine(testCorpus())
	first := titles(e.Search("homework", Options{}))
	for i := 0; i < 5; i++ {
		if again := titles(e.Search("homework", Options{})); len(again) != len(first) {
			t.Fatalf("run %d: result count changed", i)
		} else {
			for j := range again {
				if again[j] != first[j] {
					t.Fatalf("run %d: order changed at %d: %q vs %q", i, j, again[j], first[j])
				}
			}
		}
	}
}
