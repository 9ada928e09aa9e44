package matching

import (
	"sort"

	"github.com/spigell/mentor-matcher/internal/scoring"
)

// ScoredPair is an eligible pair with its score.
type ScoredPair struct {
	MenteeID string
	MentorID string
	Score    scoring.MatchScore
}

// AssignGreedy walks pairs from the highest score down and assigns a mentee to a mentor when the
// mentee is still free and the mentor has capacity left. Ties break on mentee id, then mentor id.
//
// The result maps mentee id to mentor id. capacity is not modified.
func AssignGreedy(pairs []ScoredPair, capacity map[string]int) map[string]string {
	sorted := append([]ScoredPair(nil), pairs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score.TotalScore != b.Score.TotalScore {
			return a.Score.TotalScore > b.Score.TotalScore
		}
		if a.MenteeID != b.MenteeID {
			return a.MenteeID < b.MenteeID
		}
		return a.MentorID < b.MentorID
	})

	left := make(map[string]int, len(capacity))
	for id, c := range capacity {
		left[id] = c
	}

	assigned := make(map[string]string)
	for _, p := range sorted {
		if _, done := assigned[p.MenteeID]; done {
			continue
		}
		if left[p.MentorID] <= 0 {
			continue
		}
		assigned[p.MenteeID] = p.MentorID
		left[p.MentorID]--
	}

	return assigned
}

// TopK keeps the k best pairs of every mentee, ordered by score then mentor id.
func TopK(pairs []ScoredPair, k int) map[string][]ScoredPair {
	byMentee := make(map[string][]ScoredPair)
	for _, p := range pairs {
		byMentee[p.MenteeID] = append(byMentee[p.MenteeID], p)
	}

	for id, list := range byMentee {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Score.TotalScore != list[j].Score.TotalScore {
				return list[i].Score.TotalScore > list[j].Score.TotalScore
			}
			return list[i].MentorID < list[j].MentorID
		})
		if k >= 0 && len(list) > k {
			list = list[:k]
		}
		byMentee[id] = list
	}

	return byMentee
}
