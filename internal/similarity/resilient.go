package similarity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/metrics"
	"github.com/spigell/mentor-matcher/internal/participant"
)

const DefaultTimeout = 20 * time.Second

// Fallback reasons.
const (
	reasonNoProvider = "no_provider"
	reasonNoCohort   = "no_cohort"
	reasonTimeout    = "timeout"
	reasonError      = "error"
)

// Resilient tries the primary provider within a timeout and falls back to keyword similarity.
// It never returns an error.
type Resilient struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResilient wraps primary. A nil primary always uses the keyword fallback.
func NewResilient(primary Provider, timeout time.Duration, logger *zap.Logger) *Resilient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resilient{primary: primary, fallback: Keyword{}, timeout: timeout, logger: logger}
}

func (r *Resilient) Compute(ctx context.Context, cohortID string, mentees []*participant.Mentee, mentors []*participant.Mentor) (Result, error) {
	switch {
	case r.primary == nil:
		return r.fallbackResult(ctx, cohortID, mentees, mentors, reasonNoProvider, nil)
	case strings.TrimSpace(cohortID) == "":
		return r.fallbackResult(ctx, cohortID, mentees, mentors, reasonNoCohort, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	// a provider that ignores its context must not hold the run past the timeout.
	done := make(chan outcome, 1)
	go func() {
		result, err := r.primary.Compute(callCtx, cohortID, mentees, mentors)
		done <- outcome{result: result, err: err}
	}()

	var (
		result Result
		err    error
	)
	select {
	case out := <-done:
		result, err = out.result, out.err
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	if err != nil {
		reason := reasonError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = reasonTimeout
		}
		return r.fallbackResult(ctx, cohortID, mentees, mentors, reason, err)
	}

	return result, nil
}

func (r *Resilient) fallbackResult(ctx context.Context, cohortID string, mentees []*participant.Mentee, mentors []*participant.Mentor, reason string, cause error) (Result, error) {
	metrics.SimilarityFallbacks.WithLabelValues(reason).Inc()

	fields := []zap.Field{zap.String("reason", reason), zap.String("cohort_id", cohortID)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
		r.logger.Warn("embedding similarity unavailable, using keyword fallback", fields...)
	} else {
		r.logger.Debug("using keyword similarity", fields...)
	}

	result, err := r.fallback.Compute(ctx, cohortID, mentees, mentors)
	if err != nil {
		return Result{Scores: map[PairKey]float64{}}, nil
	}
	result.UsedEmbeddings = false
	return result, nil
}
