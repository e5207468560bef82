package search

import (
	"sort"

	"hermes/internal/index"
)

// FusedHit pairs a chunk id with its reciprocal-rank-fusion score.
type FusedHit struct {
	ID    int
	Score float64
}

// ReciprocalRankFusion merges ranked lists: each chunk present in a list
// at 0-based position rank contributes 1/(k+rank+1). Output is sorted by
// fused score descending, ties broken by ascending chunk id, truncated to
// topN.
func ReciprocalRankFusion(lists [][]index.Hit, k, topN int) []FusedHit {
	scores := make(map[int]float64)
	for _, list := range lists {
		for rank, hit := range list {
			scores[hit.ID] += 1.0 / float64(k+rank+1)
		}
	}

	fused := make([]FusedHit, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, FusedHit{ID: id, Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})

	if topN > 0 && len(fused) > topN {
		fused = fused[:topN]
	}
	return fused
}
