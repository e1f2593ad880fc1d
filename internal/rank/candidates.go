// Package rank produces the ordered result list: candidate generation over
// the fuzzy index, a multi-signal additive scorer, and a greedy diversity
// pass over near-tied leaders. Everything here is pure; the caller owns the
// ranking context (click feedback, active course, clock) and threads it in
// explicitly.
package rank

import (
	"strings"

	"github.com/NoelSason/canvascope/internal/index"
	"github.com/NoelSason/canvascope/internal/normalize"
	"github.com/NoelSason/canvascope/internal/query"
)

// courseScopedScore is the fuzzy score assigned to low-confidence
// candidates added by course-scope augmentation.
const courseScopedScore = 0.65

// Candidate is one item that survived candidate generation.
type Candidate struct {
	Doc        *index.Doc
	FuzzyScore float64 // best=0 / worst=1
	PrePass    bool    // exact/prefix hit, scored at the top of the range
}

// Generate produces the candidate set for a query.
//
// normalizedQuery is the abbreviation-expanded form used for matching;
// effectiveQuery is the (possibly course-scope-stripped) raw query, run as a
// second fuzzy pass when it differs. scope, when non-nil, triggers
// course-scope augmentation and narrowing.
func Generate(ix *index.Index, normalizedQuery, effectiveQuery string, scope *query.CourseScope) []Candidate {
	normalizedQuery = strings.TrimSpace(normalizedQuery)
	if normalizedQuery == "" || ix.Len() == 0 {
		return nil
	}

	byID := make(map[string]int)
	var out []Candidate

	add := func(doc *index.Doc, score float64, prePass bool) {
		if i, ok := byID[doc.ID]; ok {
			// Pre-pass wins on conflict; otherwise keep the better score.
			if prePass && !out[i].PrePass {
				out[i].PrePass = true
				out[i].FuzzyScore = score
			} else if !out[i].PrePass && score < out[i].FuzzyScore {
				out[i].FuzzyScore = score
			}
			return
		}
		byID[doc.ID] = len(out)
		out = append(out, Candidate{Doc: doc, FuzzyScore: score, PrePass: prePass})
	}

	// Pre-pass: exact / prefix title matches.
	q := strings.ToLower(normalizedQuery)
	for _, doc := range ix.Docs() {
		title := doc.TitleAlias
		if title == "" {
			title = doc.Title
		}
		if title == "" {
			continue
		}
		if title == q || strings.HasPrefix(title, q+" ") || strings.HasPrefix(title, q) {
			add(doc, 0, true)
		}
	}

	// Fuzzy pass A: strict over the normalized query, then over the
	// effective query when that differs.
	for _, m := range ix.Search(normalizedQuery, index.StrictConfig()) {
		add(m.Doc, m.Score, false)
	}
	effective := strings.TrimSpace(effectiveQuery)
	if effective != "" && !strings.EqualFold(effective, normalizedQuery) {
		for _, m := range ix.Search(effective, index.StrictConfig()) {
			add(m.Doc, m.Score, false)
		}
	}

	// Fuzzy pass B: relaxed fallback, only when A found nothing at all.
	if len(out) == 0 {
		for _, m := range ix.Search(normalizedQuery, index.RelaxedConfig()) {
			add(m.Doc, m.Score, false)
		}
		if effective != "" && !strings.EqualFold(effective, normalizedQuery) && len(out) == 0 {
			for _, m := range ix.Search(effective, index.RelaxedConfig()) {
				add(m.Doc, m.Score, false)
			}
		}
	}

	if scope != nil {
		out = augmentCourseScope(ix, out, byID, scope)
		out = narrowToCourse(out, scope)
	}
	return out
}

// augmentCourseScope scans all items of the scoped course for token overlap
// with the remaining query: at least half the significant tokens must appear
// (stem-folded) in the combined title+folder+module text. Qualifying items
// join as low-confidence candidates.
func augmentCourseScope(ix *index.Index, out []Candidate, byID map[string]int, scope *query.CourseScope) []Candidate {
	sig := normalize.SignificantTokens(normalize.Normalize(scope.RemainingQuery))
	if len(sig) == 0 {
		return out
	}
	course := normalize.Normalize(scope.CourseName)
	shortCourse := scope.CoursePrefix

	for _, doc := range ix.Docs() {
		if doc.Course != course && doc.Course != shortCourse &&
			!strings.HasPrefix(doc.Course, shortCourse) {
			continue
		}
		if _, seen := byID[doc.ID]; seen {
			continue
		}
		text := doc.TitleAlias + " " + doc.Folder + " " + doc.Module
		hits := 0
		for _, tok := range sig {
			if tokenInText(tok, text) {
				hits++
			}
		}
		if hits*2 >= len(sig) {
			byID[doc.ID] = len(out)
			out = append(out, Candidate{Doc: doc, FuzzyScore: courseScopedScore})
		}
	}
	return out
}

// narrowToCourse keeps only scoped-course candidates when at least one
// exists; otherwise the unscoped set survives so results degrade gracefully
// instead of going empty.
func narrowToCourse(out []Candidate, scope *query.CourseScope) []Candidate {
	course := normalize.Normalize(scope.CourseName)
	scoped := out[:0:0]
	for _, c := range out {
		if c.Doc.Course == course || strings.HasPrefix(c.Doc.Course, scope.CoursePrefix) {
			scoped = append(scoped, c)
		}
	}
	if len(scoped) == 0 {
		return out
	}
	return scoped
}

// tokenInText reports whether a token appears in text on a token boundary,
// comparing stem-folded forms so "recordings" covers "recording".
func tokenInText(tok string, text string) bool {
	stem := normalize.Stem(tok)
	for _, t := range strings.Fields(text) {
		if t == tok || normalize.Stem(t) == stem {
			return true
		}
	}
	return false
}
