// Package rank orders scored jobs and applies the selection cut-offs.
package rank

import (
	"sort"

	"go-job-digest/internal/models"
)

// Rank drops jobs scoring below minScore and orders the rest by score,
// highest first, breaking ties by fetch order. The input is not modified.
func Rank(scored []models.ScoredJob, minScore int) []models.ScoredJob {
	out := make([]models.ScoredJob, 0, len(scored))
	for _, s := range scored {
		if s.Score >= minScore {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Truncate keeps the first topN jobs. A non-positive topN keeps nothing.
func Truncate(ranked []models.ScoredJob, topN int) []models.ScoredJob {
	if topN <= 0 {
		return []models.ScoredJob{}
	}
	if len(ranked) > topN {
		return ranked[:topN:topN]
	}
	return ranked
}

// Select is Rank followed by Truncate.
func Select(scored []models.ScoredJob, minScore, topN int) []models.ScoredJob {
	return Truncate(Rank(scored, minScore), topN)
}
