// Package matching turns mentee and mentor rosters into scored recommendations and proposed assignments.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/features"
	"github.com/spigell/mentor-matcher/internal/filtering"
	"github.com/spigell/mentor-matcher/internal/metrics"
	"github.com/spigell/mentor-matcher/internal/participant"
	"github.com/spigell/mentor-matcher/internal/scoring"
	"github.com/spigell/mentor-matcher/internal/similarity"
)

// MaxRecommendations is the number of candidates listed per mentee.
const MaxRecommendations = 3

// Input is one cohort snapshot. CohortID only scopes caches; without it embeddings are skipped.
type Input struct {
	CohortID   string
	Mentees    []*participant.Mentee
	Mentors    []*participant.Mentor
	PriorPairs []filtering.PriorPair
	// Rematch keeps pairs from earlier runs eligible.
	Rematch bool
}

type Engine struct {
	scorer     *scoring.Engine
	similarity similarity.Provider
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

type Option func(*Engine)

// WithSimilarity sets the provider used by Run and Start. It is usually a *similarity.Resilient.
func WithSimilarity(p similarity.Provider) Option {
	return func(e *Engine) { e.similarity = p }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine. A nil scorer uses the default rubric.
func New(scorer *scoring.Engine, opts ...Option) *Engine {
	if scorer == nil {
		scorer = scoring.MustNew()
	}
	e := &Engine{
		scorer: scorer,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.similarity == nil {
		e.similarity = similarity.NewResilient(nil, 0, e.logger)
	}
	return e
}

// RunBatch proposes at most one mentor per mentee within mentor capacity. It uses keyword similarity only.
func (e *Engine) RunBatch(in Input) *Output {
	// keyword similarity and the filters only fail on a cancelled context.
	out, _ := e.run(context.Background(), ModeBatch, in, similarity.Keyword{})
	return out
}

// RunTop3 ranks up to three mentors per mentee without consuming capacity. It uses keyword similarity only.
func (e *Engine) RunTop3(in Input) *Output {
	out, _ := e.run(context.Background(), ModeTop3, in, similarity.Keyword{})
	return out
}

// Run is the embedding-aware variant of RunBatch and RunTop3.
func (e *Engine) Run(ctx context.Context, mode Mode, in Input) (*Output, error) {
	if mode != ModeBatch && mode != ModeTop3 {
		return nil, fmt.Errorf("unknown matching mode %q", mode)
	}
	return e.run(ctx, mode, in, e.similarity)
}

func (e *Engine) run(ctx context.Context, mode Mode, in Input, sim similarity.Provider) (*Output, error) {
	mentees := uniqueByID(compact(in.Mentees), participant.KindMentee, e.logger)
	mentors := uniqueByID(compact(in.Mentors), participant.KindMentor, e.logger)

	menteeSets := make([]features.Set, len(mentees))
	for i, m := range mentees {
		menteeSets[i] = features.Normalize(m)
	}
	mentorSets := make([]features.Set, len(mentors))
	mentorByID := make(map[string]*participant.Mentor, len(mentors))
	capacity := make(map[string]int, len(mentors))
	for i, m := range mentors {
		mentorSets[i] = features.Normalize(m)
		mentorByID[mentorSets[i].ID] = m
		capacity[mentorSets[i].ID] = mentorSets[i].Capacity
	}

	pairs := filtering.Cross(menteeSets, mentorSets)
	evaluated := pairs.Len()

	filters := filtering.New(filtering.Default(in.PriorPairs, e.logger), e.logger)
	if in.Rematch {
		filters.DisableByName(filtering.PriorPairsName, "rematch requested")
	}
	for _, status := range filters.Describe() {
		e.logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	eligible, err := filters.RunFilters(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("filter pairs: %w", err)
	}

	simResult, err := sim.Compute(ctx, in.CohortID, mentees, mentors)
	if err != nil {
		e.logger.Warn("similarity unavailable, style is scored without signal", zap.Error(err))
		simResult = similarity.Result{}
	}

	scored := make([]ScoredPair, 0, eligible.Len())
	for _, pair := range eligible.Items {
		style := scoring.NoSignal
		if v, ok := simResult.Score(pair.Mentee.ID, pair.Mentor.ID); ok {
			style = scoring.StyleSignal(v)
		}
		scored = append(scored, ScoredPair{
			MenteeID: pair.Mentee.ID,
			MentorID: pair.Mentor.ID,
			Score:    e.scorer.Score(pair.Mentee, pair.Mentor, style),
		})
	}

	top := TopK(scored, MaxRecommendations)

	var assigned map[string]string
	if mode == ModeBatch {
		assigned = AssignGreedy(scored, capacity)
	}

	out := &Output{
		RunID:          e.newID(),
		CohortID:       in.CohortID,
		Mode:           mode,
		Results:        make([]Result, 0, len(mentees)),
		UsedEmbeddings: simResult.UsedEmbeddings,
		Timestamp:      e.now().UTC(),
		Stats: Stats{
			MenteesTotal:   len(mentees),
			MentorsTotal:   len(mentors),
			PairsEvaluated: evaluated,
			AfterFilters:   eligible.Len(),
		},
	}

	for i, mentee := range mentees {
		id := menteeSets[i].ID
		result := Result{
			MenteeID:        id,
			MenteeName:      mentee.Name(),
			Recommendations: []Recommendation{},
		}
		for _, sp := range top[id] {
			result.Recommendations = append(result.Recommendations, recommendation(sp.MentorID, mentorByID[sp.MentorID], sp.Score))
		}
		if mentorID, ok := assigned[id]; ok {
			for _, rec := range result.Recommendations {
				if rec.MentorID == mentorID {
					r := rec
					result.ProposedAssignment = &r
					break
				}
			}
			if result.ProposedAssignment == nil {
				for _, sp := range scored {
					if sp.MenteeID == id && sp.MentorID == mentorID {
						r := recommendation(mentorID, mentorByID[mentorID], sp.Score)
						result.ProposedAssignment = &r
						break
					}
				}
			}
		}
		if result.ProposedAssignment != nil {
			out.Stats.Assigned++
		}
		out.Results = append(out.Results, result)
	}
	out.Stats.Unassigned = len(out.Results) - out.Stats.Assigned

	metrics.MatchingRuns.WithLabelValues(string(mode)).Inc()
	metrics.PairsEvaluated.WithLabelValues("evaluated").Add(float64(evaluated))
	metrics.PairsEvaluated.WithLabelValues("eligible").Add(float64(eligible.Len()))

	e.logger.Info("matching run finished",
		zap.String("run_id", out.RunID),
		zap.String("cohort_id", out.CohortID),
		zap.String("mode", string(mode)),
		zap.Int("mentees", out.Stats.MenteesTotal),
		zap.Int("mentors", out.Stats.MentorsTotal),
		zap.Int("pairs_evaluated", out.Stats.PairsEvaluated),
		zap.Int("after_filters", out.Stats.AfterFilters),
		zap.Int("assigned", out.Stats.Assigned),
		zap.Bool("used_embeddings", out.UsedEmbeddings),
	)

	return out, nil
}

func recommendation(id string, m *participant.Mentor, score scoring.MatchScore) Recommendation {
	return Recommendation{
		MentorID:   id,
		MentorName: m.Name(),
		MentorRole: m.Title,
		Score:      score,
	}
}

// uniqueByID keeps the first participant of every id. Later ones would share its capacity and results.
func uniqueByID[P interface{ ID() string }](in []P, kind participant.Kind, logger *zap.Logger) []P {
	seen := make(map[string]struct{}, len(in))
	out := make([]P, 0, len(in))
	for _, v := range in {
		id := strings.TrimSpace(v.ID())
		if _, dup := seen[id]; dup {
			logger.Warn("duplicate participant id, keeping the first occurrence",
				zap.String("kind", string(kind)),
				zap.String("id", id),
			)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v)
	}
	return out
}

func compact[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
