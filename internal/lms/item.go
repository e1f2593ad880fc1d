// Package lms defines the content model shared by every layer of Canvascope.
//
// A ContentItem is one piece of scraped course content (assignment, file,
// page, quiz, ...) from either supported LMS. Raw batches arrive from the
// scraper as loosely-typed JSON; this package absorbs that looseness so the
// rest of the pipeline works with well-typed records.
package lms

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ItemType is the fixed content-type vocabulary.
type ItemType string

const (
	TypeAssignment   ItemType = "assignment"
	TypeQuiz         ItemType = "quiz"
	TypeDiscussion   ItemType = "discussion"
	TypePage         ItemType = "page"
	TypeFile         ItemType = "file"
	TypePDF          ItemType = "pdf"
	TypeSlides       ItemType = "slides"
	TypeVideo        ItemType = "video"
	TypeDocument     ItemType = "document"
	TypeExternal     ItemType = "external"
	TypeAnnouncement ItemType = "announcement"
	TypeCourse       ItemType = "course"
	TypeNavigation   ItemType = "navigation"
	TypeLink         ItemType = "link"
	TypeOther        ItemType = "other"
)

// ParseType maps a raw type string onto the fixed vocabulary.
// Unknown strings become TypeOther rather than erroring.
func ParseType(s string) ItemType {
	switch ItemType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeAssignment, TypeQuiz, TypeDiscussion, TypePage, TypeFile,
		TypePDF, TypeSlides, TypeVideo, TypeDocument, TypeAnnouncement,
		TypeCourse, TypeNavigation, TypeLink, TypeExternal:
		return ItemType(strings.ToLower(strings.TrimSpace(s)))
	case "externalurl", "external_url", "externaltool":
		return TypeExternal
	default:
		return TypeOther
	}
}

// FlexID is a course identifier that may arrive as a JSON string or number.
type FlexID string

// UnmarshalJSON accepts "123", 123 and 123.0 and stores the string form.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*f = ""
		return nil
	}
	// Avoid "123.000000" for whole JSON numbers.
	if n, ok := v.(float64); ok && n == float64(int64(n)) {
		*f = FlexID(cast.ToString(int64(n)))
		return nil
	}
	*f = FlexID(cast.ToString(v))
	return nil
}

// MarshalJSON always writes the string form.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// ContentItem is one piece of indexed course content.
//
// Optional fields are pointers or zero values; every field round-trips
// through JSON and the store without loss. Identity is never stored — it is
// derived from URL (or a content hash) by the identity package.
type ContentItem struct {
	Title      string   `json:"title"`
	URL        string   `json:"url,omitempty"`
	Type       ItemType `json:"type,omitempty"`
	CourseName string   `json:"courseName,omitempty"`
	CourseID   FlexID   `json:"courseId,omitempty"`
	ModuleName string   `json:"moduleName,omitempty"`
	FolderPath string   `json:"folderPath,omitempty"`

	DueAt    *time.Time `json:"dueAt,omitempty"`
	UnlockAt *time.Time `json:"unlockAt,omitempty"`
	LockAt   *time.Time `json:"lockAt,omitempty"`

	ScannedAt *time.Time `json:"scannedAt,omitempty"`

	Platform       string `json:"platform,omitempty"`
	PlatformDomain string `json:"platformDomain,omitempty"`
}

// DisplayTitle returns the title, or "Untitled" when it is blank.
func (c ContentItem) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return "Untitled"
	}
	return c.Title
}

// IsZero reports whether the item carries no usable data at all.
// Such records are produced by malformed scraper output and are skipped.
func (c ContentItem) IsZero() bool {
	return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.URL) == ""
}
