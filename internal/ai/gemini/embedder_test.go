package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	calls   [][]*genai.Content
	configs []*genai.EmbedContentConfig
	drop    bool
	err     error
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls = append(f.calls, contents)
	f.configs = append(f.configs, config)
	if f.err != nil {
		return nil, f.err
	}

	resp := &genai.EmbedContentResponse{}
	for _, c := range contents {
		var n float32
		fmt.Sscanf(c.Parts[0].Text, "text-%f", &n)
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: []float32{n, 1}})
	}
	if f.drop {
		resp.Embeddings = resp.Embeddings[1:]
	}
	return resp, nil
}

func TestEmbedderBatches(t *testing.T) {
	models := &fakeModels{}
	embedder := &Embedder{models: models, model: "embed-test", logger: zap.NewNop()}

	texts := make([]string, maxEmbedBatch+20)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	vectors, err := embedder.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(models.calls) != 2 || len(models.calls[0]) != maxEmbedBatch || len(models.calls[1]) != 20 {
		t.Fatalf("unexpected batches: %d", len(models.calls))
	}
	if models.configs[0].TaskType != embeddingTaskType {
		t.Fatalf("unexpected task type %q", models.configs[0].TaskType)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
}

func TestEmbedderErrors(t *testing.T) {
	embedder := &Embedder{models: &fakeModels{drop: true}, model: "embed-test", logger: zap.NewNop()}
	if _, err := embedder.Embed(context.Background(), []string{"text-1", "text-2"}); err == nil {
		t.Fatalf("expected error when the response misses embeddings")
	}

	apiErr := errors.New("unavailable")
	embedder = &Embedder{models: &fakeModels{err: apiErr}, model: "embed-test", logger: zap.NewNop()}
	if _, err := embedder.Embed(context.Background(), []string{"text-1"}); !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}

	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("empty input must be a no-op, got %v %v", vectors, err)
	}

	var missing *Embedder
	if _, err := missing.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("expected error for a nil embedder")
	}
}
