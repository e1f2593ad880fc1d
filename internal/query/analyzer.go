// Package query derives search intent, numeric tokens and course scope from
// a raw query string. All functions are pure and total.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/NoelSason/canvascope/internal/normalize"
)

// Intent holds 0/1 confidences for what content type a query is implicitly
// asking for. Multiple intents may fire at once.
type Intent struct {
	Assignment float64
	Quiz       float64
	Page       float64
	File       float64
}

// Any reports whether at least one intent fired.
func (i Intent) Any() bool {
	return i.Assignment > 0 || i.Quiz > 0 || i.Page > 0 || i.File > 0
}

var (
	assignmentRe = regexp.MustCompile(`\b(homework|assignment|problem set|essay|submit|dropbox|due|deadline)\b`)
	quizRe       = regexp.MustCompile(`\b(quiz|exam|midterm|final|test)\b`)
	pageRe       = regexp.MustCompile(`\b(lecture|notes|slides|chapter|syllabus|reading|review)\b`)
	fileRe       = regexp.MustCompile(`\b(pdf|doc|docx|ppt|pptx|handout|file|files|download|worksheet)\b`)

	numericRe     = regexp.MustCompile(`\b[0-9]{1,4}\b`)
	parentheticRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// DetectIntent runs the fixed keyword patterns against a normalized query.
// Abbreviations should already be expanded ("hw4" -> "homework 4") so the
// patterns only need full words.
func DetectIntent(normalizedQuery string) Intent {
	var in Intent
	if assignmentRe.MatchString(normalizedQuery) {
		in.Assignment = 1
	}
	if quizRe.MatchString(normalizedQuery) {
		in.Quiz = 1
	}
	if pageRe.MatchString(normalizedQuery) {
		in.Page = 1
	}
	if fileRe.MatchString(normalizedQuery) {
		in.File = 1
	}
	return in
}

// NumericTokens extracts every standalone 1-4 digit run with leading zeros
// stripped ("007" -> "7", "000" -> "0").
func NumericTokens(text string) []string {
	matches := numericRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, normalize.StripLeadingZeros(m))
	}
	return out
}

// CourseScope is a query prefix recognized as naming a specific course.
type CourseScope struct {
	CoursePrefix   string // the normalized form that matched
	CourseName     string // the original course name
	RemainingQuery string // query text after the prefix, trimmed
}

// DetectCourseScope finds a known course name used as a prefix of the
// normalized query. Candidates are the full normalized name and a short form
// with any trailing parenthetical (term/section suffix) stripped, tried
// longest first so "chem 3b fall 2026" beats "chem 3b". A match requires the
// prefix to be followed by a space and at least one non-space character.
func DetectCourseScope(normalizedQuery string, knownCourseNames []string) *CourseScope {
	type candidate struct {
		prefix string
		name   string
	}
	seen := map[string]bool{}
	var candidates []candidate
	for _, name := range knownCourseNames {
		full := normalize.Normalize(name)
		short := normalize.Normalize(parentheticRe.ReplaceAllString(name, ""))
		for _, p := range []string{full, short} {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			candidates = append(candidates, candidate{prefix: p, name: name})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i].prefix) != len(candidates[j].prefix) {
			return len(candidates[i].prefix) > len(candidates[j].prefix)
		}
		return candidates[i].prefix < candidates[j].prefix
	})

	for _, c := range candidates {
		if !strings.HasPrefix(normalizedQuery, c.prefix+" ") {
			continue
		}
		rest := strings.TrimSpace(normalizedQuery[len(c.prefix):])
		if rest == "" {
			continue
		}
		return &CourseScope{
			CoursePrefix:   c.prefix,
			CourseName:     c.name,
			RemainingQuery: rest,
		}
	}
	return nil
}
