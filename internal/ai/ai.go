// Package ai holds the provider-neutral contracts for text generation and embeddings.
package ai

import "context"

// Generator produces a text response for a system instruction and a user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Embedder turns texts into vectors. The result has one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
