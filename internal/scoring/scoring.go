// Package scoring compares one mentee with one mentor and produces an explained compatibility score.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/mentor-matcher/internal/features"
)

// Sub-score names as they appear in MatchScore.SubScores.
const (
	TopicOverlap    = "topic_overlap"
	Seniority       = "seniority"
	Timezone        = "timezone"
	Cadence         = "cadence"
	StyleSimilarity = "style_similarity"
	LifeExperience  = "life_experience"
)

// SparseProfilesRisk is the only risk reported when no sub-score has signal.
const SparseProfilesRisk = "profiles too sparse to score"

var ErrInvalidWeights = errors.New("invalid scoring weights")

// MatchScore is the scored, explained outcome of comparing one mentee to one mentor.
type MatchScore struct {
	TotalScore float64            `json:"total_score"`
	Reasons    []string           `json:"reasons"`
	Risks      []string           `json:"risks"`
	SubScores  map[string]float64 `json:"sub_scores"`
}

// Weights sets the relative importance of every sub-score.
type Weights struct {
	TopicOverlap    float64 `mapstructure:"topic_overlap" json:"topic_overlap"`
	Seniority       float64 `mapstructure:"seniority" json:"seniority"`
	Timezone        float64 `mapstructure:"timezone" json:"timezone"`
	Cadence         float64 `mapstructure:"cadence" json:"cadence"`
	StyleSimilarity float64 `mapstructure:"style_similarity" json:"style_similarity"`
	LifeExperience  float64 `mapstructure:"life_experience" json:"life_experience"`
}

func DefaultWeights() Weights {
	return Weights{
		TopicOverlap:    0.35,
		Seniority:       0.20,
		Timezone:        0.15,
		Cadence:         0.10,
		StyleSimilarity: 0.15,
		LifeExperience:  0.05,
	}
}

// Validate rejects negative weights and an all-zero rubric.
func (w Weights) Validate() error {
	sum := 0.0
	for name, v := range w.byName() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidWeights, name, v)
		}
		sum += v
	}
	if sum == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}

func (w Weights) byName() map[string]float64 {
	return map[string]float64{
		TopicOverlap:    w.TopicOverlap,
		Seniority:       w.Seniority,
		Timezone:        w.Timezone,
		Cadence:         w.Cadence,
		StyleSimilarity: w.StyleSimilarity,
		LifeExperience:  w.LifeExperience,
	}
}

// Thresholds decide which sub-scores surface as reasons or risks.
type Thresholds struct {
	Reason float64 `mapstructure:"reason" json:"reason"`
	Risk   float64 `mapstructure:"risk" json:"risk"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Reason: 70, Risk: 40}
}

// Signal carries an externally computed sub-score such as style similarity.
type Signal struct {
	Score float64
	Known bool
}

// NoSignal marks an absent external sub-score.
var NoSignal = Signal{}

func StyleSignal(score float64) Signal {
	return Signal{Score: score, Known: true}
}

// Engine scores pairs with a fixed rubric. It is safe for concurrent use.
type Engine struct {
	weights    map[string]float64
	thresholds Thresholds
}

type Option func(*options)

type options struct {
	weights    Weights
	thresholds Thresholds
}

func WithWeights(w Weights) Option {
	return func(o *options) { o.weights = w }
}

func WithThresholds(t Thresholds) Option {
	return func(o *options) { o.thresholds = t }
}

// New builds an engine with the default rubric unless overridden.
func New(opts ...Option) (*Engine, error) {
	o := options{weights: DefaultWeights(), thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.weights.Validate(); err != nil {
		return nil, err
	}
	if o.thresholds.Risk > o.thresholds.Reason {
		return nil, fmt.Errorf("risk threshold %.2f is above reason threshold %.2f", o.thresholds.Risk, o.thresholds.Reason)
	}
	return &Engine{weights: o.weights.byName(), thresholds: o.thresholds}, nil
}

// MustNew is New for static configuration known to be valid.
func MustNew(opts ...Option) *Engine {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Score compares mentee and mentor. It is pure: identical inputs give identical output.
func (e *Engine) Score(mentee, mentor features.Set, style Signal) MatchScore {
	components := []component{
		topicOverlap(mentee, mentor),
		seniority(mentee, mentor),
		timezone(mentee, mentor),
		cadence(mentee, mentor),
		styleSimilarity(style),
		lifeExperience(mentee, mentor),
	}

	result := MatchScore{
		Reasons:   []string{},
		Risks:     []string{},
		SubScores: map[string]float64{},
	}

	var weighted, weightSum float64
	scored := make([]component, 0, len(components))
	for _, c := range components {
		if !c.known {
			continue
		}
		c.score = clamp(c.score)
		c.weight = e.weights[c.name]
		weighted += c.weight * c.score
		weightSum += c.weight
		result.SubScores[c.name] = round2(c.score)
		scored = append(scored, c)
	}

	if len(scored) == 0 || weightSum == 0 {
		result.Risks = append(result.Risks, SparseProfilesRisk)
		return result
	}

	result.TotalScore = round2(clamp(weighted / weightSum))

	reasons := make([]component, 0, len(scored))
	risks := make([]component, 0, len(scored))
	for _, c := range scored {
		if c.score >= e.thresholds.Reason && c.reason != "" {
			reasons = append(reasons, c)
		}
		if (c.score < e.thresholds.Risk || c.flagged) && c.risk != "" {
			risks = append(risks, c)
		}
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		ci, cj := reasons[i].weight*reasons[i].score, reasons[j].weight*reasons[j].score
		if ci != cj {
			return ci > cj
		}
		return reasons[i].name < reasons[j].name
	})
	sort.SliceStable(risks, func(i, j int) bool {
		if risks[i].score != risks[j].score {
			return risks[i].score < risks[j].score
		}
		return risks[i].name < risks[j].name
	})

	for _, c := range reasons {
		result.Reasons = append(result.Reasons, c.reason)
	}
	for _, c := range risks {
		result.Risks = append(result.Risks, c.risk)
	}

	return result
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
