package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/ai"
	"github.com/spigell/mentor-matcher/internal/metrics"
	"github.com/spigell/mentor-matcher/internal/participant"
)

// EmbeddingKey scopes a cached vector to a cohort, a participant and the model that produced it.
type EmbeddingKey struct {
	CohortID      string
	ParticipantID string
	Model         string
}

// CachedEmbedding is a stored profile vector. ContentHash guards against stale vectors after a profile edit.
type CachedEmbedding struct {
	ContentHash string    `json:"content_hash"`
	Vector      []float32 `json:"vector"`
}

// EmbeddingCache stores profile vectors between runs.
type EmbeddingCache interface {
	GetEmbeddings(ctx context.Context, keys []EmbeddingKey) (map[EmbeddingKey]CachedEmbedding, error)
	PutEmbeddings(ctx context.Context, entries map[EmbeddingKey]CachedEmbedding) error
}

// Embedding computes similarity as the cosine of profile embeddings.
type Embedding struct {
	embedder ai.Embedder
	cache    EmbeddingCache
	logger   *zap.Logger
}

// NewEmbedding builds the semantic provider. cache may be nil.
func NewEmbedding(embedder ai.Embedder, cache EmbeddingCache, logger *zap.Logger) *Embedding {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedding{embedder: embedder, cache: cache, logger: logger}
}

type profileDoc struct {
	key  EmbeddingKey
	text string
	hash string
}

func (e *Embedding) Compute(ctx context.Context, cohortID string, mentees []*participant.Mentee, mentors []*participant.Mentor) (Result, error) {
	if e == nil || e.embedder == nil {
		return Result{}, errors.New("embedder is not configured")
	}
	cohortID = strings.TrimSpace(cohortID)
	if cohortID == "" {
		return Result{}, errors.New("cohort id is required for embeddings")
	}

	model := e.embedder.Model()
	docs := make(map[EmbeddingKey]profileDoc, len(mentees)+len(mentors))
	keys := make([]EmbeddingKey, 0, len(mentees)+len(mentors))
	add := func(p participant.Participant) {
		text := ProfileText(p)
		if text == "" {
			return
		}
		key := EmbeddingKey{CohortID: cohortID, ParticipantID: participantID(p), Model: model}
		if _, dup := docs[key]; dup {
			return
		}
		sum := sha256.Sum256([]byte(text))
		docs[key] = profileDoc{key: key, text: text, hash: hex.EncodeToString(sum[:])}
		keys = append(keys, key)
	}
	for _, m := range mentees {
		add(m)
	}
	for _, m := range mentors {
		add(m)
	}

	vectors, err := e.vectors(ctx, keys, docs)
	if err != nil {
		return Result{}, err
	}

	scores := make(map[PairKey]float64, len(mentees)*len(mentors))
	for _, mentee := range mentees {
		a, ok := vectors[EmbeddingKey{CohortID: cohortID, ParticipantID: participantID(mentee), Model: model}]
		if !ok {
			continue
		}
		for _, mentor := range mentors {
			b, ok := vectors[EmbeddingKey{CohortID: cohortID, ParticipantID: participantID(mentor), Model: model}]
			if !ok {
				continue
			}
			scores[pairKey(mentee, mentor)] = cosineScore(a, b)
		}
	}

	return Result{Scores: scores, UsedEmbeddings: true}, nil
}

func (e *Embedding) vectors(ctx context.Context, keys []EmbeddingKey, docs map[EmbeddingKey]profileDoc) (map[EmbeddingKey][]float32, error) {
	vectors := make(map[EmbeddingKey][]float32, len(keys))
	if len(keys) == 0 {
		return vectors, nil
	}

	if e.cache != nil {
		cached, err := e.cache.GetEmbeddings(ctx, keys)
		if err != nil {
			e.logger.Warn("embedding cache lookup failed", zap.Error(err))
		}
		for key, entry := range cached {
			if doc, ok := docs[key]; ok && doc.hash == entry.ContentHash && len(entry.Vector) > 0 {
				vectors[key] = entry.Vector
			}
		}
		metrics.EmbeddingCacheHits.Add(float64(len(vectors)))
	}

	missing := make([]profileDoc, 0, len(keys)-len(vectors))
	for _, key := range keys {
		if _, ok := vectors[key]; !ok {
			missing = append(missing, docs[key])
		}
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	texts := make([]string, len(missing))
	for i, doc := range missing {
		texts[i] = doc.text
	}

	started := time.Now()
	embedded, err := e.embedder.Embed(ctx, texts)
	metrics.ProviderLatency.WithLabelValues(e.embedder.Model(), "embed").Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("embed %d profiles: %w", len(texts), err)
	}
	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d profiles", len(embedded), len(missing))
	}

	fresh := make(map[EmbeddingKey]CachedEmbedding, len(missing))
	for i, doc := range missing {
		vectors[doc.key] = embedded[i]
		fresh[doc.key] = CachedEmbedding{ContentHash: doc.hash, Vector: embedded[i]}
	}

	if e.cache != nil {
		if err := e.cache.PutEmbeddings(ctx, fresh); err != nil {
			e.logger.Warn("storing embeddings failed", zap.Error(err))
		}
	}

	e.logger.Debug("profile embeddings ready",
		zap.Int("cached", len(keys)-len(missing)),
		zap.Int("embedded", len(missing)),
	)

	return vectors, nil
}

// cosineScore maps cosine similarity to 0-100. Negative similarity counts as 0.
func cosineScore(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Round(100*100*math.Max(0, math.Min(1, cos))) / 100
}
