// Package store persists explanations and profile embeddings.
//
// Every backend implements both explain.Cache and similarity.EmbeddingCache.
// Explanations are append-only; embeddings are replaced when a profile changes.
package store

import (
	"context"
	"sync"

	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/similarity"
)

// Memory keeps everything in process. It is used when no external store is configured and in tests.
type Memory struct {
	mu           sync.RWMutex
	explanations map[explain.Key]explain.Entry
	embeddings   map[similarity.EmbeddingKey]similarity.CachedEmbedding
}

func NewMemory() *Memory {
	return &Memory{
		explanations: make(map[explain.Key]explain.Entry),
		embeddings:   make(map[similarity.EmbeddingKey]similarity.CachedEmbedding),
	}
}

func (m *Memory) Get(_ context.Context, key explain.Key) (explain.Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.explanations[key]
	return entry, ok, nil
}

func (m *Memory) Put(_ context.Context, key explain.Key, entry explain.Entry) (explain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.explanations[key]; ok {
		return existing, nil
	}
	m.explanations[key] = entry
	return entry, nil
}

func (m *Memory) GetEmbeddings(_ context.Context, keys []similarity.EmbeddingKey) (map[similarity.EmbeddingKey]similarity.CachedEmbedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[similarity.EmbeddingKey]similarity.CachedEmbedding, len(keys))
	for _, k := range keys {
		if v, ok := m.embeddings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) PutEmbeddings(_ context.Context, entries map[similarity.EmbeddingKey]similarity.CachedEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range entries {
		m.embeddings[k] = similarity.CachedEmbedding{
			ContentHash: v.ContentHash,
			Vector:      append([]float32(nil), v.Vector...),
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
