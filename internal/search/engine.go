// Package search wires the full ranking pipeline: filters, the per-filter
// fuzzy index, query analysis, candidate generation, scoring, diversity
// re-ranking and truncation.
//
// The engine is synchronous and stateless across calls except for a small
// per-filter index cache; the ranking context (click feedback, active
// course, clock) is a read-only input owned by the caller.
package search

import (
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/NoelSason/canvascope/internal/dedup"
	"github.com/NoelSason/canvascope/internal/index"
	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/normalize"
	"github.com/NoelSason/canvascope/internal/query"
	"github.com/NoelSason/canvascope/internal/rank"
)

// DefaultLimit is the maximum result count after ranking.
const DefaultLimit = 20

// indexCacheTTL bounds how long a per-filter index is reused. Searches are
// re-run on every keystroke; rebuilding the index each time would dominate
// the latency budget.
const indexCacheTTL = 5 * time.Minute

// Options controls one search call.
type Options struct {
	// Course narrows the collection to one course name before indexing.
	Course string
	// Type narrows the collection to one content type before indexing.
	Type lms.ItemType
	// Limit caps the result count; 0 means DefaultLimit.
	Limit int
	// Context carries click feedback, active course and the clock.
	Context rank.Context
}

// Result is one ranked search hit.
type Result struct {
	Item       lms.ContentItem `json:"item"`
	FinalScore float64         `json:"finalScore"`
}

// Engine holds a deduplicated item collection ready for searching.
type Engine struct {
	items   []lms.ContentItem
	courses []string
	cache   *gocache.Cache
}

// NewEngine deduplicates the raw collection once and prepares the engine.
// Malformed (zero) records are dropped here; nothing below this point
// needs to tolerate them.
func NewEngine(rawItems []lms.ContentItem) *Engine {
	items := dedup.Dedup(rawItems)
	full := index.Build(items)
	return &Engine{
		items:   items,
		courses: full.Courses(),
		cache:   gocache.New(indexCacheTTL, 2*indexCacheTTL),
	}
}

// Items returns the deduplicated collection.
func (e *Engine) Items() []lms.ContentItem { return e.items }

// Courses returns the distinct course names in the collection.
func (e *Engine) Courses() []string { return e.courses }

// Search runs the full pipeline for one query. A blank query and an empty
// collection both return an empty slice deterministically; Search never
// fails.
func (e *Engine) Search(rawQuery string, opts Options) []Result {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" || len(e.items) == 0 {
		return []Result{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	ix := e.indexFor(opts)
	if ix.Len() == 0 {
		return []Result{}
	}

	// Course scope is detected against the plainly-normalized query;
	// abbreviation expansion then applies to whatever remains.
	normalized := normalize.Normalize(rawQuery)
	scope := query.DetectCourseScope(normalized, e.courses)
	effective := rawQuery
	if scope != nil {
		effective = scope.RemainingQuery
	}
	expandedQuery := normalize.ExpandAbbreviations(effective)

	intent := query.DetectIntent(expandedQuery)
	queryNumbers := query.NumericTokens(expandedQuery)

	candidates := rank.Generate(ix, expandedQuery, effective, scope)
	if len(candidates) == 0 {
		return []Result{}
	}

	scored := make([]rank.Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, rank.Scored{
			Doc:   c.Doc,
			Score: rank.Score(c, expandedQuery, intent, queryNumbers, opts.Context),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Doc.ID < scored[j].Doc.ID
	})

	scored = rank.Diversify(scored)

	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]Result, len(scored))
	for i, s := range scored {
		out[i] = Result{Item: s.Doc.Item, FinalScore: s.Score}
	}
	return out
}

// indexFor returns the fuzzy index for a filter state, building and caching
// it on first use.
func (e *Engine) indexFor(opts Options) *index.Index {
	key := strings.ToLower(opts.Course) + "\x00" + string(opts.Type)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(*index.Index)
	}

	filtered := e.items
	if opts.Course != "" || opts.Type != "" {
		filtered = make([]lms.ContentItem, 0, len(e.items))
		for _, item := range e.items {
			if opts.Course != "" && !strings.EqualFold(item.CourseName, opts.Course) {
				continue
			}
			if opts.Type != "" && item.Type != opts.Type {
				continue
			}
			filtered = append(filtered, item)
		}
	}

	ix := index.Build(filtered)
	e.cache.Set(key, ix, gocache.DefaultExpiration)
	return ix
}
