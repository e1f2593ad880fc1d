package rank

import (
	"github.com/NoelSason/canvascope/internal/index"
	"github.com/NoelSason/canvascope/internal/lms"
)

const (
	// diversityWindow is how many leading results the re-ranker may reorder.
	diversityWindow = 15
	// nearTieGap is the score gap under which diversity penalties apply.
	// A landslide winner is never displaced.
	nearTieGap = 0.3

	typePenaltyStep   = 0.04
	coursePenaltyStep = 0.03
)

// Scored is a candidate with its final composite score.
type Scored struct {
	Doc   *index.Doc
	Score float64
}

// Diversify greedily reorders the top of a score-sorted slice so that
// near-tied results spread across content types and courses. Input must be
// sorted best-first; collections of three or fewer pass through untouched.
func Diversify(results []Scored) []Scored {
	if len(results) <= 3 {
		return results
	}

	window := len(results)
	if window > diversityWindow {
		window = diversityWindow
	}

	pool := make([]Scored, window)
	copy(pool, results[:window])

	selected := make([]Scored, 0, window)
	typeCount := map[lms.ItemType]int{}
	courseCount := map[string]int{}
	topScore := 0.0

	for len(pool) > 0 {
		bestIdx := 0
		bestAdj := adjustedScore(pool[0], topScore, typeCount, courseCount, len(selected))
		for i := 1; i < len(pool); i++ {
			adj := adjustedScore(pool[i], topScore, typeCount, courseCount, len(selected))
			if adj > bestAdj {
				bestIdx, bestAdj = i, adj
			}
		}

		pick := pool[bestIdx]
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
		selected = append(selected, pick)
		typeCount[pick.Doc.Item.Type]++
		courseCount[pick.Doc.Course]++
		if len(selected) == 1 {
			topScore = pick.Score
		}
	}

	return append(selected, results[window:]...)
}

// adjustedScore applies the diversity penalty to a candidate's raw score,
// but only when the candidate sits within the near-tie band of the current
// leader. Penalties kick in once a type or course has already appeared
// twice among the selected results.
func adjustedScore(s Scored, topScore float64, typeCount map[lms.ItemType]int, courseCount map[string]int, selected int) float64 {
	if selected == 0 {
		return s.Score
	}
	if topScore-s.Score >= nearTieGap {
		return s.Score
	}
	adj := s.Score
	if n := typeCount[s.Doc.Item.Type]; n >= 2 {
		adj -= typePenaltyStep * float64(n-1)
	}
	if s.Doc.Course != "" {
		if n := courseCount[s.Doc.Course]; n >= 2 {
			adj -= coursePenaltyStep * float64(n-1)
		}
	}
	return adj
}
