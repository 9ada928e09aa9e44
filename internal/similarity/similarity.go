// Package similarity scores how close mentee and mentor free-text profiles are.
//
// Embedding is the semantic provider, Keyword the deterministic fallback and
// Resilient the wrapper that picks between them.
package similarity

import (
	"context"
	"strings"

	"github.com/spigell/mentor-matcher/internal/participant"
)

// PairKey identifies a (mentee, mentor) pair.
type PairKey struct {
	MenteeID string
	MentorID string
}

// participantID is the id scores are keyed on. It matches the trimmed id of a feature set.
func participantID(p participant.Participant) string {
	return strings.TrimSpace(p.ID())
}

func pairKey(mentee *participant.Mentee, mentor *participant.Mentor) PairKey {
	return PairKey{MenteeID: participantID(mentee), MentorID: participantID(mentor)}
}

// Result holds 0-100 scores for every pair with enough text on both sides.
type Result struct {
	Scores         map[PairKey]float64
	UsedEmbeddings bool
}

// Score returns the score of a pair and whether one was computed.
func (r Result) Score(menteeID, mentorID string) (float64, bool) {
	v, ok := r.Scores[PairKey{MenteeID: menteeID, MentorID: mentorID}]
	return v, ok
}

// Provider computes similarity for every mentee × mentor pair.
type Provider interface {
	Compute(ctx context.Context, cohortID string, mentees []*participant.Mentee, mentors []*participant.Mentor) (Result, error)
}

// field is one free-text profile attribute that feeds similarity.
type field struct {
	name   string
	weight float64
	value  func(*participant.Profile) string
}

var fields = []field{
	{name: "style", weight: 0.35, value: func(p *participant.Profile) string { return p.Style }},
	{name: "feedback", weight: 0.25, value: func(p *participant.Profile) string { return p.FeedbackPreference }},
	{name: "energy", weight: 0.20, value: func(p *participant.Profile) string { return p.Energy }},
	{name: "bio", weight: 0.20, value: func(p *participant.Profile) string { return p.Bio }},
}

// ProfileText renders the similarity-relevant fields of p, one per line. Empty fields are skipped.
func ProfileText(p participant.Participant) string {
	if p == nil {
		return ""
	}
	profile := p.Common()
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.Join(strings.Fields(f.value(profile)), " "); v != "" {
			lines = append(lines, f.name+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}
