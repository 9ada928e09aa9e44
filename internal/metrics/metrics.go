// Package metrics exposes the prometheus collectors shared by the matching pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Explanation outcomes.
const (
	OutcomeCached    = "cached"
	OutcomeGenerated = "generated"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

var (
	MatchingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_matcher_runs_total",
			Help: "Total number of matching runs by mode",
		},
		[]string{"mode"},
	)

	PairsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_matcher_pairs_total",
			Help: "Candidate pairs seen by matching runs, before and after eligibility filters",
		},
		[]string{"stage"},
	)

	SimilarityFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_matcher_similarity_fallbacks_total",
			Help: "Total number of times keyword similarity replaced embeddings",
		},
		[]string{"reason"},
	)

	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentor_matcher_embedding_cache_hits_total",
			Help: "Profile embeddings served from cache",
		},
	)

	ExplanationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_matcher_explanations_total",
			Help: "Total number of explanation requests by outcome",
		},
		[]string{"outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentor_matcher_provider_duration_seconds",
			Help:    "Duration of external provider calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"provider", "operation"},
	)
)

// WriteTextfile dumps every registered collector to path in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
