// Package index wraps a deduplicated item collection in a weighted
// multi-field fuzzy-match structure.
//
// Scores are on a best=0 / worst=1 scale, like the distance-style fuzzy
// matchers this replaces; callers invert before combining with additive
// boosts. No third-party fuzzy library is used: matching is a per-token
// bounded Levenshtein comparison, which keeps "b" from matching inside
// "lab" and stays fast enough for thousands of items.
package index

import (
	"strings"

	"github.com/NoelSason/canvascope/internal/identity"
	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/normalize"
)

// genericFolderName is a placeholder folder label carrying no search signal.
const genericFolderName = "files"

// Doc is one indexed item with its precomputed searchable fields.
type Doc struct {
	Item lms.ContentItem
	ID   string // canonical identity key

	Title      string // normalized title
	TitleAlias string // abbreviation-expanded title (searchTitleNormalized)
	AliasBag   string // number variants + folder + module text (searchAliases)
	Folder     string
	Module     string
	Course     string
	Type       string

	// TitleNumbers are the numeric tokens of the expanded title, used by
	// the scorer's numeric-alignment signal.
	TitleNumbers []string
}

// field weights, normalized to title = 1.0. Lower-weight fields produce
// slightly worse scores for the same token distance.
type field struct {
	text   func(*Doc) string
	weight float64
}

var fields = []field{
	{func(d *Doc) string { return d.Title }, 1.0},
	{func(d *Doc) string { return d.TitleAlias }, 0.92},
	{func(d *Doc) string { return d.AliasBag }, 0.78},
	{func(d *Doc) string { return d.Folder }, 0.55},
	{func(d *Doc) string { return d.Module }, 0.5},
	{func(d *Doc) string { return d.Course }, 0.38},
	{func(d *Doc) string { return d.Type }, 0.2},
}

// Index is the fuzzy-searchable view over a fixed item collection.
type Index struct {
	docs []Doc
}

// Build computes the searchable fields for every item. Input items should
// already be deduplicated.
func Build(items []lms.ContentItem) *Index {
	docs := make([]Doc, 0, len(items))
	for _, item := range items {
		docs = append(docs, buildDoc(item))
	}
	return &Index{docs: docs}
}

func buildDoc(item lms.ContentItem) Doc {
	title := normalize.Normalize(item.Title)
	alias := normalize.ExpandAbbreviations(item.Title)

	bag := normalize.NumberVariants(alias)
	folder := normalize.Normalize(item.FolderPath)
	module := normalize.Normalize(item.ModuleName)
	if folder != "" && folder != genericFolderName {
		bag += " " + folder
	}
	if module != "" {
		bag += " " + module
	}

	return Doc{
		Item:         item,
		ID:           identity.CanonicalID(item),
		Title:        title,
		TitleAlias:   alias,
		AliasBag:     strings.TrimSpace(bag),
		Folder:       folder,
		Module:       module,
		Course:       normalize.Normalize(item.CourseName),
		Type:         string(item.Type),
		TitleNumbers: titleNumbers(alias),
	}
}

func titleNumbers(alias string) []string {
	var nums []string
	for _, tok := range strings.Fields(alias) {
		if isDigits(tok) {
			nums = append(nums, normalize.StripLeadingZeros(tok))
		}
	}
	return nums
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Docs exposes the indexed documents in input order.
func (ix *Index) Docs() []*Doc {
	out := make([]*Doc, len(ix.docs))
	for i := range ix.docs {
		out[i] = &ix.docs[i]
	}
	return out
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Courses returns the distinct course names present in the index.
func (ix *Index) Courses() []string {
	seen := map[string]bool{}
	var out []string
	for i := range ix.docs {
		name := ix.docs[i].Item.CourseName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
