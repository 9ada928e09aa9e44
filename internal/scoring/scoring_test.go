package scoring

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spigell/mentor-matcher/internal/features"
	"github.com/spigell/mentor-matcher/internal/participant"
)

func mentee(p participant.Profile, topics ...string) features.Set {
	return features.Normalize(&participant.Mentee{Profile: p, TopicsToLearn: topics})
}

func mentor(p participant.Profile, topics ...string) features.Set {
	return features.Normalize(&participant.Mentor{Profile: p, TopicsToMentor: topics, CapacityRemaining: 1})
}

func TestScorePerfectMatchIsReasonsDominant(t *testing.T) {
	engine := MustNew()

	e := mentee(participant.Profile{ID: "e1", Experience: "3 years", Timezone: "UTC+1"}, "go", "kubernetes")
	m := mentor(participant.Profile{ID: "m1", Experience: "senior", Timezone: "Europe/Berlin"}, "go", "kubernetes", "rust")

	score := engine.Score(e, m, NoSignal)

	if score.TotalScore != 91.67 {
		t.Fatalf("unexpected total %v", score.TotalScore)
	}
	if len(score.Risks) != 0 {
		t.Fatalf("expected no risks, got %v", score.Risks)
	}
	wantReasons := []string{
		"shared topics: go, kubernetes",
		"mentor is one level ahead (IC3 vs IC2)",
		"same timezone",
	}
	if !reflect.DeepEqual(score.Reasons, wantReasons) {
		t.Fatalf("unexpected reasons %v", score.Reasons)
	}
	if _, ok := score.SubScores[Cadence]; ok {
		t.Fatalf("cadence without signal must not be reported: %v", score.SubScores)
	}
	if score.SubScores[TopicOverlap] != 83.33 {
		t.Fatalf("unexpected topic overlap %v", score.SubScores[TopicOverlap])
	}
}

func TestScoreWithoutSignalIsSparse(t *testing.T) {
	score := MustNew().Score(features.Set{ID: "e"}, features.Set{ID: "m"}, NoSignal)

	if score.TotalScore != 0 {
		t.Fatalf("expected zero total, got %v", score.TotalScore)
	}
	if len(score.Risks) != 1 || score.Risks[0] != SparseProfilesRisk {
		t.Fatalf("unexpected risks %v", score.Risks)
	}
	if len(score.Reasons) != 0 || len(score.SubScores) != 0 {
		t.Fatalf("expected empty reasons and sub-scores, got %+v", score)
	}
}

func TestScoreRenormalisesMissingSignals(t *testing.T) {
	e := mentee(participant.Profile{Timezone: "UTC"})
	m := mentor(participant.Profile{Timezone: "GMT+0"})

	score := MustNew().Score(e, m, NoSignal)
	if score.TotalScore != 100 {
		t.Fatalf("expected a single perfect sub-score to yield 100, got %v", score.TotalScore)
	}
}

func TestScoreRisksAreOrderedBySubScore(t *testing.T) {
	e := mentee(participant.Profile{Experience: "IC3", Timezone: "UTC-8", MeetingFrequency: "weekly"}, "go")
	m := mentor(participant.Profile{Experience: "IC3", Timezone: "UTC+1", MeetingFrequency: "quarterly"}, "sales")

	score := MustNew().Score(e, m, StyleSignal(55))

	want := []string{
		"no shared topics",
		"large timezone gap of 9h",
		"meeting cadence mismatch (weekly / quarterly)",
		"peer-level seniority (both IC3)",
	}
	if !reflect.DeepEqual(score.Risks, want) {
		t.Fatalf("unexpected risks %v", score.Risks)
	}
	if len(score.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", score.Reasons)
	}
}

func TestScoreLocationFallback(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Berlin, Germany", "berlin, germany", 100},
		{"Munich, Germany", "Berlin, Germany", 80},
		{"Lisbon", "Tokyo", 35},
	}
	for _, tt := range tests {
		e := mentee(participant.Profile{Location: tt.a})
		m := mentor(participant.Profile{Location: tt.b})
		score := MustNew().Score(e, m, NoSignal)
		if score.SubScores[Timezone] != tt.want {
			t.Errorf("%q vs %q: got %v, want %v", tt.a, tt.b, score.SubScores[Timezone], tt.want)
		}
	}
}

func TestScoreBoundsAndDeterminism(t *testing.T) {
	engine := MustNew()
	experiences := []string{"", "1", "IC2", "senior", "staff", "20 years"}
	zones := []string{"", "UTC", "UTC+5:30", "America/Los_Angeles", "Asia/Tokyo"}
	styles := []Signal{NoSignal, StyleSignal(-20), StyleSignal(0), StyleSignal(64.2), StyleSignal(150)}

	for _, ex := range experiences {
		for _, zone := range zones {
			for _, style := range styles {
				e := mentee(participant.Profile{Experience: ex, Timezone: zone, LifeExperiences: []string{"parent"}}, "go", "ml")
				m := mentor(participant.Profile{Experience: "IC3", Timezone: "UTC", LifeExperiences: []string{"immigrant"}}, "go")

				first := engine.Score(e, m, style)
				if first.TotalScore < 0 || first.TotalScore > 100 {
					t.Fatalf("total out of bounds: %v", first.TotalScore)
				}
				for name, sub := range first.SubScores {
					if sub < 0 || sub > 100 {
						t.Fatalf("%s out of bounds: %v", name, sub)
					}
				}
				if second := engine.Score(e, m, style); !reflect.DeepEqual(first, second) {
					t.Fatalf("score is not deterministic: %+v vs %+v", first, second)
				}
			}
		}
	}
}

func TestNewRejectsInvalidWeights(t *testing.T) {
	if _, err := New(WithWeights(Weights{})); !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights for zero weights, got %v", err)
	}

	w := DefaultWeights()
	w.Cadence = -1
	_, err := New(WithWeights(w))
	if !errors.Is(err, ErrInvalidWeights) || !strings.Contains(err.Error(), Cadence) {
		t.Fatalf("expected cadence weight error, got %v", err)
	}

	if _, err := New(WithThresholds(Thresholds{Reason: 30, Risk: 60})); err == nil {
		t.Fatalf("expected inverted thresholds to be rejected")
	}
}
