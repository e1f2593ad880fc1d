// Package dedup collapses duplicate content items scraped from overlapping
// LMS endpoints.
//
// Two sequential passes run over the full collection: first by canonical
// identity key, then across content types that represent the same underlying
// task (an assignment and its auto-generated quiz counterpart). Both passes
// are pure, idempotent and commutative: group members are resolved in a
// total order that does not depend on input order, so merging batch A then B
// equals merging B then A.
package dedup

import (
	"sort"
	"strings"

	"github.com/NoelSason/canvascope/internal/identity"
	"github.com/NoelSason/canvascope/internal/lms"
)

// crossTypePriority orders content types competing for the same
// (title, course) pair. Higher wins.
var crossTypePriority = map[lms.ItemType]int{
	lms.TypeAssignment: 3,
	lms.TypeQuiz:       2,
	lms.TypeDiscussion: 1,
}

// Dedup runs both passes and returns a new slice; the input is not mutated.
func Dedup(items []lms.ContentItem) []lms.ContentItem {
	return byTitleAndCourse(byIdentity(items))
}

// byIdentity collapses items sharing a canonical identity key.
func byIdentity(items []lms.ContentItem) []lms.ContentItem {
	groups := make(map[string][]lms.ContentItem, len(items))
	var keys []string

	for _, item := range items {
		if item.IsZero() {
			continue
		}
		key := identity.CanonicalID(item)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], item)
	}

	out := make([]lms.ContentItem, 0, len(keys))
	for _, key := range keys {
		out = append(out, resolveGroup(groups[key], identityLess))
	}
	return out
}

// byTitleAndCourse collapses items sharing a (normalized title, normalized
// course) pair across content types. Items without a title pass through
// untouched.
func byTitleAndCourse(items []lms.ContentItem) []lms.ContentItem {
	groups := make(map[string][]lms.ContentItem, len(items))
	var keys []string
	var untitled []lms.ContentItem

	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			untitled = append(untitled, item)
			continue
		}
		key := strings.ToLower(strings.TrimSpace(item.Title)) + "\x00" +
			strings.ToLower(strings.TrimSpace(item.CourseName))
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], item)
	}

	out := make([]lms.ContentItem, 0, len(keys)+len(untitled))
	for _, key := range keys {
		out = append(out, resolveGroup(groups[key], crossTypeLess))
	}
	return append(out, untitled...)
}

// resolveGroup sorts a group into its total order, takes the head as winner
// and folds the losers' date fields into it. Sorting before merging keeps
// the result independent of input order.
func resolveGroup(group []lms.ContentItem, less func(a, b lms.ContentItem) bool) lms.ContentItem {
	if len(group) == 1 {
		return group[0]
	}
	sorted := make([]lms.ContentItem, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	winner := sorted[0]
	for _, loser := range sorted[1:] {
		winner = mergeDates(winner, loser)
	}
	return winner
}

// identityLess is the winner precedence for the identity pass: canonical URL
// first, then shorter URL (less decorated), then lexicographic tie-breaks so
// the order is total.
func identityLess(a, b lms.ContentItem) bool {
	ca, cb := identity.IsCanonicalURL(a.URL), identity.IsCanonicalURL(b.URL)
	if ca != cb {
		return ca
	}
	if len(a.URL) != len(b.URL) {
		return len(a.URL) < len(b.URL)
	}
	if a.URL != b.URL {
		return a.URL < b.URL
	}
	return a.Title < b.Title
}

// crossTypeLess is the winner precedence for the cross-type pass:
// assignment beats quiz beats discussion beats anything else.
func crossTypeLess(a, b lms.ContentItem) bool {
	pa, pb := crossTypePriority[a.Type], crossTypePriority[b.Type]
	if pa != pb {
		return pa > pb
	}
	return identityLess(a, b)
}

// mergeDates copies any non-null date field from the loser into the winner
// where the winner's field is null. Merge-preserving: no non-null due date
// is lost in a collapse.
func mergeDates(winner, loser lms.ContentItem) lms.ContentItem {
	if winner.DueAt == nil {
		winner.DueAt = loser.DueAt
	}
	if winner.UnlockAt == nil {
		winner.UnlockAt = loser.UnlockAt
	}
	if winner.LockAt == nil {
		winner.LockAt = loser.LockAt
	}
	return winner
}
