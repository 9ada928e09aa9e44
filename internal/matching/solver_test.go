package matching

import (
	"reflect"
	"testing"

	"github.com/spigell/mentor-matcher/internal/scoring"
)

func sp(mentee, mentor string, total float64) ScoredPair {
	return ScoredPair{MenteeID: mentee, MentorID: mentor, Score: scoring.MatchScore{TotalScore: total}}
}

func TestAssignGreedyFollowsSortedPairs(t *testing.T) {
	pairs := []ScoredPair{
		sp("M1", "A", 90), sp("M1", "B", 80),
		sp("M2", "A", 85), sp("M2", "B", 70),
		sp("M3", "A", 60), sp("M3", "B", 75),
	}
	capacity := map[string]int{"A": 1, "B": 2}

	got := AssignGreedy(pairs, capacity)

	// M1-A (90) takes A; M2-A (85) is skipped; M3-B (75) and M2-B (70) fill B.
	want := map[string]string{"M1": "A", "M2": "B", "M3": "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected assignment %v", got)
	}
	if capacity["A"] != 1 || capacity["B"] != 2 {
		t.Fatalf("capacity must not be modified: %v", capacity)
	}
}

func TestAssignGreedyTieBreak(t *testing.T) {
	pairs := []ScoredPair{
		sp("b", "y", 50), sp("a", "y", 50), sp("a", "x", 50), sp("b", "x", 50),
	}

	got := AssignGreedy(pairs, map[string]int{"x": 1, "y": 1})

	want := map[string]string{"a": "x", "b": "y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected assignment %v", got)
	}
}

func TestAssignGreedyLeavesMenteesWithoutCapacity(t *testing.T) {
	pairs := []ScoredPair{sp("a", "x", 70), sp("b", "x", 60), sp("c", "z", 90)}

	got := AssignGreedy(pairs, map[string]int{"x": 1})

	want := map[string]string{"a": "x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected assignment %v", got)
	}
}

func TestTopK(t *testing.T) {
	pairs := []ScoredPair{
		sp("a", "m4", 10), sp("a", "m2", 80), sp("a", "m1", 80), sp("a", "m3", 95),
		sp("b", "m1", 30),
	}

	got := TopK(pairs, 3)

	var ids []string
	for _, p := range got["a"] {
		ids = append(ids, p.MentorID)
	}
	if !reflect.DeepEqual(ids, []string{"m3", "m1", "m2"}) {
		t.Fatalf("unexpected ranking %v", ids)
	}
	if len(got["b"]) != 1 {
		t.Fatalf("expected a single candidate for b, got %v", got["b"])
	}
	if _, ok := got["c"]; ok {
		t.Fatalf("mentee without pairs must be absent")
	}
}
