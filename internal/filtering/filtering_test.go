package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/mentor-matcher/internal/features"
)

func set(id string, opts ...func(*features.Set)) features.Set {
	s := features.Set{ID: id, Topics: features.NewTags(), Exclusions: features.NewTags()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func withCapacity(n int) func(*features.Set) {
	return func(s *features.Set) { s.Capacity = n }
}

func withTopics(topics ...string) func(*features.Set) {
	return func(s *features.Set) { s.Topics = features.NewTags(topics...) }
}

func withExclusions(tags ...string) func(*features.Set) {
	return func(s *features.Set) { s.Exclusions = features.NewTags(tags...) }
}

func withTitle(title string) func(*features.Set) {
	return func(s *features.Set) { s.Title = title }
}

func TestRunFiltersDefaultSteps(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	mentees := []features.Set{
		set("e1", withTopics("go")),
		set("e2", withTopics("sales"), withTitle("Account Executive")),
		set("same"),
	}
	mentors := []features.Set{
		set("m1", withCapacity(1), withExclusions("sales")),
		set("m2", withCapacity(0)),
		set("same", withCapacity(2)),
	}

	pairs := Cross(mentees, mentors)
	if pairs.Len() != 9 {
		t.Fatalf("expected 9 candidate pairs, got %d", pairs.Len())
	}

	f := New(Default([]PriorPair{{MenteeID: "e1", MentorID: "same"}}, zap.New(core)), zap.New(core))
	left, err := f.RunFilters(context.Background(), pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"e1/m1", "e2/same", "same/m1"}
	if left.Len() != len(want) {
		t.Fatalf("unexpected pairs left: %v", keys(left))
	}
	for i, key := range keys(left) {
		if key != want[i] {
			t.Fatalf("unexpected pair %d: %s", i, key)
		}
	}

	if logs.FilterMessage("filter step").Len() != 4 {
		t.Fatalf("expected a log entry per step, got %d", logs.FilterMessage("filter step").Len())
	}
	if logs.FilterMessage("excluding mentors without capacity").Len() != 1 {
		t.Fatalf("expected capacity exclusions to be logged")
	}
}

func TestExclusionsMatchTitle(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		exclusion string
		dropped   bool
	}{
		{name: "word in title", title: "Senior Sales Manager", exclusion: "Sales", dropped: true},
		{name: "short word", title: "AI Engineer", exclusion: "ai", dropped: true},
		{name: "phrase", title: "Head of Product Design", exclusion: "product design", dropped: true},
		{name: "punctuation", title: "Engineer (AI/ML)", exclusion: "ml", dropped: true},
		{name: "substring of a word", title: "Retail Analyst", exclusion: "ai", dropped: false},
		{name: "phrase split by other words", title: "Product Marketing Design", exclusion: "product design", dropped: false},
		{name: "no title", title: "", exclusion: "sales", dropped: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := Cross(
				[]features.Set{set("e1", withTitle(tt.title))},
				[]features.Set{set("m1", withCapacity(1), withExclusions(tt.exclusion))},
			)

			_, step, err := NewExclusions(nil).Apply(context.Background(), pairs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := step.Dropped == 1; got != tt.dropped {
				t.Fatalf("title %q with exclusion %q: dropped=%v, want %v", tt.title, tt.exclusion, got, tt.dropped)
			}
		})
	}
}

func TestPriorPairsDisabledWhenEmpty(t *testing.T) {
	f := New(Default(nil, nil), nil)

	for _, status := range f.Describe() {
		if status.Name != PriorPairsName {
			if !status.Enabled {
				t.Fatalf("%s must be enabled", status.Name)
			}
			continue
		}
		if status.Enabled || status.Reason != noPriorPairsMsg {
			t.Fatalf("unexpected prior_pairs status: %+v", status)
		}
	}
}

func TestDisableByName(t *testing.T) {
	f := New([]Filter{NewPriorPairs([]PriorPair{{MenteeID: "e", MentorID: "m"}}, nil)}, nil)
	f.DisableByName(PriorPairsName, "rematch requested")

	pairs := Cross([]features.Set{set("e")}, []features.Set{set("m", withCapacity(1))})
	left, err := f.RunFilters(context.Background(), pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left.Len() != 1 {
		t.Fatalf("disabled filter must not drop pairs")
	}
	if got := f.Describe()[0].Reason; got != "rematch requested" {
		t.Fatalf("unexpected reason %q", got)
	}
}

type failingFilter struct{}

func (failingFilter) Name() string    { return "failing" }
func (failingFilter) Disable(string)  {}
func (failingFilter) IsEnabled() bool { return true }
func (failingFilter) Validate() error { return errors.New("bad config") }

func (failingFilter) Apply(_ context.Context, p *Pairs) (*Pairs, Step, error) {
	return p, Step{}, nil
}

func TestRunFiltersValidatesFirst(t *testing.T) {
	f := New([]Filter{NewSelfPair(), failingFilter{}}, nil)
	if _, err := f.RunFilters(context.Background(), &Pairs{}); err == nil || err.Error() != "failing: bad config" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunFiltersStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New([]Filter{NewSelfPair()}, nil).RunFilters(ctx, &Pairs{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func keys(p *Pairs) []string {
	out := make([]string, 0, p.Len())
	for _, pair := range p.Items {
		out = append(out, pair.Key())
	}
	return out
}
