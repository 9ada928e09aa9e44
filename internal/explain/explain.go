// Package explain generates, caches and fans out human-readable explanations for scored pairs.
package explain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/mentor-matcher/internal/participant"
	"github.com/spigell/mentor-matcher/internal/scoring"
	"github.com/spigell/mentor-matcher/internal/utils"
)

// ErrNoCohort is returned when explanations are requested without a cohort to scope the cache.
var ErrNoCohort = errors.New("cohort id is required to generate explanations")

// Key identifies one cached explanation.
type Key struct {
	CohortID string `json:"cohort_id"`
	MenteeID string `json:"mentee_id"`
	MentorID string `json:"mentor_id"`
}

// String is unique per key. It is used to deduplicate in-flight requests.
func (k Key) String() string {
	return utils.JoinKey("/", k.CohortID, k.MenteeID, k.MentorID)
}

// Entry is a stored explanation. Entries are never overwritten.
type Entry struct {
	Text       string    `json:"text"`
	Model      string    `json:"model"`
	TotalScore float64   `json:"total_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// Cache persists explanations.
//
// Put must be append-only: when key already holds an entry the existing entry is kept and returned.
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, entry Entry) (Entry, error)
}

// Request is one pair to explain.
type Request struct {
	Mentee *participant.Mentee
	Mentor *participant.Mentor
	Score  scoring.MatchScore
}

func (r Request) key(cohortID string) Key {
	return Key{CohortID: cohortID, MenteeID: r.Mentee.ID(), MentorID: r.Mentor.ID()}
}

// Provider produces the explanation text for a pair.
type Provider interface {
	Explain(ctx context.Context, req Request) (string, error)
	Model() string
}

// ProviderError reports a failed explanation for a single pair. It is never cached.
type ProviderError struct {
	Key Key
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("explain mentee %q with mentor %q: %v", e.Key.MenteeID, e.Key.MentorID, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Timeout reports whether the provider exceeded its deadline.
func (e *ProviderError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
