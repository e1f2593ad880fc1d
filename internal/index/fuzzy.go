package index

import (
	"sort"
	"strings"
)

// MatchConfig bounds the fuzzy matcher. MaxTokenDistance is the worst
// normalized edit distance at which a query token still counts as matching
// a field token; MinTokenCoverage is the fraction of query tokens that must
// match for the field to match at all.
type MatchConfig struct {
	MaxTokenDistance float64
	MinTokenCoverage float64
}

// StrictConfig is the first-pass configuration: tight distance, most query
// tokens must land.
func StrictConfig() MatchConfig {
	return MatchConfig{MaxTokenDistance: 0.34, MinTokenCoverage: 0.5}
}

// RelaxedConfig is the fallback configuration used only when the strict
// pass finds nothing.
func RelaxedConfig() MatchConfig {
	return MatchConfig{MaxTokenDistance: 0.5, MinTokenCoverage: 0.34}
}

// Match is one fuzzy hit. Score is best=0 / worst=1.
type Match struct {
	Doc   *Doc
	Score float64
}

// prefixDistance is the score assigned to a prefix hit that is not an exact
// token match. Better than any accepted edit distance on short tokens.
const prefixDistance = 0.05

// Search runs the weighted fuzzy matcher over every indexed document.
// The query is lowercased and split on whitespace; per-token matching is
// exact, prefix, or bounded Levenshtein — a query token never matches part
// of a longer field token by substring alone, which keeps token boundaries
// honest. Results are sorted best-first with a deterministic tie-break.
func (ix *Index) Search(rawQuery string, cfg MatchConfig) []Match {
	queryTokens := strings.Fields(strings.ToLower(strings.TrimSpace(rawQuery)))
	if len(queryTokens) == 0 || len(ix.docs) == 0 {
		return nil
	}

	var out []Match
	for i := range ix.docs {
		doc := &ix.docs[i]
		best := -1.0
		for _, f := range fields {
			text := f.text(doc)
			if text == "" {
				continue
			}
			score, ok := fieldScore(queryTokens, strings.Fields(text), cfg)
			if !ok {
				continue
			}
			// Down-weighted fields yield slightly worse scores for the
			// same token distances.
			adjusted := score + (1-f.weight)*0.2
			if adjusted > 1 {
				adjusted = 1
			}
			if best < 0 || adjusted < best {
				best = adjusted
			}
		}
		if best >= 0 {
			out = append(out, Match{Doc: doc, Score: best})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Doc.ID < out[j].Doc.ID
	})
	return out
}

// fieldScore scores one query against one field's tokens. Every query token
// is assigned its best distance across field tokens; tokens beyond
// MaxTokenDistance count as unmatched (distance 1). The field matches only
// when the matched fraction reaches MinTokenCoverage.
func fieldScore(queryTokens, fieldTokens []string, cfg MatchConfig) (float64, bool) {
	if len(fieldTokens) == 0 {
		return 0, false
	}
	matched := 0
	total := 0.0
	for _, qt := range queryTokens {
		d := bestTokenDistance(qt, fieldTokens)
		if d <= cfg.MaxTokenDistance {
			matched++
			total += d
		} else {
			total += 1
		}
	}
	coverage := float64(matched) / float64(len(queryTokens))
	if coverage < cfg.MinTokenCoverage {
		return 0, false
	}
	return total / float64(len(queryTokens)), true
}

// bestTokenDistance finds the best distance between one query token and any
// field token: 0 for an exact hit, prefixDistance for a proper prefix, else
// the normalized Levenshtein distance.
func bestTokenDistance(qt string, fieldTokens []string) float64 {
	best := 1.0
	for _, ft := range fieldTokens {
		var d float64
		switch {
		case qt == ft:
			return 0
		case strings.HasPrefix(ft, qt) && len(qt) >= 2:
			d = prefixDistance
		default:
			d = normalizedLevenshtein(qt, ft)
		}
		if d < best {
			best = d
		}
	}
	return best
}

// normalizedLevenshtein returns edit distance divided by the longer length,
// using a single-row DP over bytes (all inputs are already normalized
// ASCII).
func normalizedLevenshtein(a, b string) float64 {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 1
	}
	prev := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}
	curr := make([]int, lb+1)
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return float64(prev[lb]) / float64(maxLen)
}
