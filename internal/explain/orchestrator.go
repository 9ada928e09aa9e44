package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/mentor-matcher/internal/metrics"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 8
	DefaultTimeout = 60 * time.Second
)

// Callbacks receive bulk generation events. They are never invoked concurrently.
type Callbacks struct {
	OnProgress func(completed, total int)
	OnResult   func(key Key, text string)
}

// Orchestrator serves explanations from the cache and generates missing ones through a provider.
type Orchestrator struct {
	provider Provider
	cache    Cache
	workers  int
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	inflight singleflight.Group
}

type Option func(*Orchestrator)

// WithWorkers sets the size of the bulk worker pool, clamped to [1, MaxWorkers].
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func New(provider Provider, cache Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		cache:    cache,
		workers:  DefaultWorkers,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.workers = min(max(o.workers, 1), MaxWorkers)
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Workers returns the effective pool size.
func (o *Orchestrator) Workers() int { return o.workers }

// GetOrGenerate returns the cached explanation for req or generates and stores a new one.
//
// Concurrent calls for the same key share one provider call. Provider failures are returned
// as *ProviderError and leave the cache untouched.
func (o *Orchestrator) GetOrGenerate(ctx context.Context, cohortID string, req Request) (string, error) {
	cohortID = strings.TrimSpace(cohortID)
	if cohortID == "" {
		return "", ErrNoCohort
	}
	if req.Mentee == nil || req.Mentor == nil {
		return "", errors.New("mentee and mentor are required")
	}
	return o.getOrGenerate(ctx, req.key(cohortID), req)
}

func (o *Orchestrator) getOrGenerate(ctx context.Context, key Key, req Request) (string, error) {
	v, err, _ := o.inflight.Do(key.String(), func() (any, error) {
		return o.load(ctx, key, req)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (o *Orchestrator) load(ctx context.Context, key Key, req Request) (string, error) {
	entry, ok, err := o.cache.Get(ctx, key)
	switch {
	case err != nil:
		o.logger.Warn("explanation cache lookup failed", zap.String("key", key.String()), zap.Error(err))
	case ok:
		metrics.ExplanationRequests.WithLabelValues(metrics.OutcomeCached).Inc()
		return entry.Text, nil
	}

	if o.provider == nil {
		return "", &ProviderError{Key: key, Err: errors.New("explanation provider is not configured")}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := time.Now()
	text, err := o.explain(callCtx, req)
	metrics.ProviderLatency.WithLabelValues(o.provider.Model(), "explain").Observe(time.Since(started).Seconds())
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("provider returned an empty explanation")
	}
	if err != nil {
		metrics.ExplanationRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		return "", &ProviderError{Key: key, Err: err}
	}

	metrics.ExplanationRequests.WithLabelValues(metrics.OutcomeGenerated).Inc()

	stored, err := o.cache.Put(ctx, key, Entry{
		Text:       text,
		Model:      o.provider.Model(),
		TotalScore: req.Score.TotalScore,
		CreatedAt:  o.now().UTC(),
	})
	if err != nil {
		o.logger.Warn("storing explanation failed", zap.String("key", key.String()), zap.Error(err))
		return text, nil
	}

	return stored.Text, nil
}

// explain returns once ctx is done even if the provider keeps running.
func (o *Orchestrator) explain(ctx context.Context, req Request) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := o.provider.Explain(ctx, req)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GenerateAll explains every request with a fixed pool of workers.
//
// Duplicate pairs are processed once. A failing pair is logged, counted as completed and left out
// of the result. When ctx is cancelled no further provider calls are issued, calls already in flight
// finish and populate the cache, and the partial result is returned together with ctx.Err().
func (o *Orchestrator) GenerateAll(ctx context.Context, cohortID string, reqs []Request, cb Callbacks) (map[Key]string, error) {
	cohortID = strings.TrimSpace(cohortID)
	if cohortID == "" {
		return nil, ErrNoCohort
	}

	type task struct {
		key Key
		req Request
	}

	seen := make(map[Key]struct{}, len(reqs))
	tasks := make([]task, 0, len(reqs))
	for _, req := range reqs {
		if req.Mentee == nil || req.Mentor == nil {
			continue
		}
		key := req.key(cohortID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tasks = append(tasks, task{key: key, req: req})
	}

	total := len(tasks)
	results := make(map[Key]string, total)
	if total == 0 {
		return results, nil
	}

	var (
		mu        sync.Mutex
		completed int
	)
	finish := func(key Key, text string, err error) {
		mu.Lock()
		defer mu.Unlock()

		completed++
		if err == nil {
			results[key] = text
			if cb.OnResult != nil {
				cb.OnResult(key, text)
			}
		}
		if cb.OnProgress != nil {
			cb.OnProgress(completed, total)
		}
	}

	// in-flight calls outlive cancellation so their results still reach the cache.
	detached := context.WithoutCancel(ctx)

	queue := make(chan task)
	var g errgroup.Group

	g.Go(func() error {
		defer close(queue)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return nil
			case queue <- t:
			}
		}
		return nil
	})

	for range min(o.workers, total) {
		g.Go(func() error {
			for t := range queue {
				if ctx.Err() != nil {
					metrics.ExplanationRequests.WithLabelValues(metrics.OutcomeSkipped).Inc()
					continue
				}

				text, err := o.getOrGenerate(detached, t.key, t.req)
				if err != nil {
					o.logger.Warn("explanation failed",
						zap.String("mentee_id", t.key.MenteeID),
						zap.String("mentor_id", t.key.MentorID),
						zap.Error(err),
					)
				}
				finish(t.key, text, err)
			}
			return nil
		})
	}

	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()

	o.logger.Info("explanations generated",
		zap.String("cohort_id", cohortID),
		zap.Int("requested", total),
		zap.Int("completed", completed),
		zap.Int("succeeded", len(results)),
	)

	if completed < total {
		return results, fmt.Errorf("explanations interrupted after %d of %d: %w", completed, total, ctx.Err())
	}
	return results, nil
}
