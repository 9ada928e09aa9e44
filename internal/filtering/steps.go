package filtering

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/features"
)

const (
	// PriorPairsName is the name of the step that drops pairs from earlier runs.
	PriorPairsName = "prior_pairs"

	noPriorPairsMsg = "no prior pairs supplied"
)

type selfPairFilter struct{}

// NewSelfPair creates a filter that removes pairs where both sides are the same person.
func NewSelfPair() Filter {
	return &selfPairFilter{}
}

func (f *selfPairFilter) Name() string { return "self_pair" }

func (f *selfPairFilter) Disable(string) {}

func (f *selfPairFilter) IsEnabled() bool { return true }

func (f *selfPairFilter) Validate() error { return nil }

func (f *selfPairFilter) Apply(_ context.Context, p *Pairs) (*Pairs, Step, error) {
	initial := p.Len()
	excluded := p.Exclude(func(pair Pair) bool {
		return pair.Mentee.ID == pair.Mentor.ID
	})
	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

type capacityFilter struct {
	logger *zap.Logger
}

// NewCapacity creates a filter that removes pairs with mentors who have no capacity left.
func NewCapacity(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &capacityFilter{logger: logger}
}

func (f *capacityFilter) Name() string { return "capacity" }

func (f *capacityFilter) Disable(string) {}

func (f *capacityFilter) IsEnabled() bool { return true }

func (f *capacityFilter) Validate() error { return nil }

func (f *capacityFilter) Apply(_ context.Context, p *Pairs) (*Pairs, Step, error) {
	initial := p.Len()
	full := map[string]struct{}{}
	excluded := p.Exclude(func(pair Pair) bool {
		if pair.Mentor.Capacity > 0 {
			return false
		}
		full[pair.Mentor.ID] = struct{}{}
		return true
	})

	if len(full) > 0 {
		f.logger.Info("excluding mentors without capacity",
			zap.Strings("mentors", sortedKeys(full)),
			zap.Int("pairs_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

type exclusionsFilter struct {
	logger *zap.Logger
}

// NewExclusions creates a filter that honours mentor exclusion lists against mentee topics and titles.
func NewExclusions(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exclusionsFilter{logger: logger}
}

func (f *exclusionsFilter) Name() string { return "exclusions" }

func (f *exclusionsFilter) Disable(string) {}

func (f *exclusionsFilter) IsEnabled() bool { return true }

func (f *exclusionsFilter) Validate() error { return nil }

func (f *exclusionsFilter) Apply(_ context.Context, p *Pairs) (*Pairs, Step, error) {
	initial := p.Len()
	excluded := p.Exclude(func(pair Pair) bool {
		return excludes(pair.Mentor, pair.Mentee)
	})

	if len(excluded) > 0 {
		f.logger.Info("excluding pairs by mentor exclusions",
			zap.Strings("excluded_pairs", excluded),
			zap.Int("pairs_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func excludes(mentor, mentee features.Set) bool {
	if mentor.Exclusions.Len() == 0 {
		return false
	}
	title := words(mentee.Title)
	for tag := range mentor.Exclusions {
		if mentee.Topics.Has(tag) {
			return true
		}
		if phrase := words(tag); title != "" && phrase != "" && strings.Contains(title, phrase) {
			return true
		}
	}
	return false
}

// words lowercases s and keeps only its letter and digit runs, space padded so that
// strings.Contains matches whole words.
func words(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}

// PriorPair is a pairing already tried in an earlier run of the cohort.
type PriorPair struct {
	MenteeID string `json:"mentee_id" mapstructure:"mentee_id"`
	MentorID string `json:"mentor_id" mapstructure:"mentor_id"`
}

type priorPairsFilter struct {
	pairs    map[PriorPair]struct{}
	disabled bool
	reason   string
	logger   *zap.Logger
}

// NewPriorPairs creates a filter that removes pairs already present in the matching history.
func NewPriorPairs(prior []PriorPair, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &priorPairsFilter{pairs: make(map[PriorPair]struct{}, len(prior)), logger: logger}
	for _, pp := range prior {
		f.pairs[pp] = struct{}{}
	}
	return f
}

func (f *priorPairsFilter) Name() string { return PriorPairsName }

func (f *priorPairsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *priorPairsFilter) IsEnabled() bool {
	return !f.disabled && len(f.pairs) > 0
}

func (f *priorPairsFilter) Validate() error { return nil }

func (f *priorPairsFilter) Apply(_ context.Context, p *Pairs) (*Pairs, Step, error) {
	initial := p.Len()
	excluded := p.Exclude(func(pair Pair) bool {
		_, seen := f.pairs[PriorPair{MenteeID: pair.Mentee.ID, MentorID: pair.Mentor.ID}]
		return seen
	})

	if len(excluded) > 0 {
		f.logger.Info("excluding pairs from matching history",
			zap.Strings("excluded_pairs", excluded),
			zap.Int("pairs_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *priorPairsFilter) Status() Status {
	reason := f.reason
	if reason == "" && len(f.pairs) == 0 {
		reason = noPriorPairsMsg
	}
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  reason,
		Details: map[string]string{"prior_pairs": strconv.Itoa(len(f.pairs))},
	}
}

// Default returns the standard eligibility steps in their canonical order.
func Default(prior []PriorPair, logger *zap.Logger) []Filter {
	return []Filter{
		NewSelfPair(),
		NewCapacity(logger),
		NewExclusions(logger),
		NewPriorPairs(prior, logger),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	return features.Tags(m).Sorted()
}
