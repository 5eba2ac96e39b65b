// Package llm provides swappable backends for text embedding and completion
// generation, plus a fallback chain that degrades gracefully when a backend
// is down.
package llm

import (
	"context"

	pgvector "github.com/pgvector/pgvector-go"
)

// Dimensions is the embedding vector size (768 = nomic-embed-text).
// OpenAI text-embedding-3-small also supports 768 via the dimensions parameter.
const Dimensions = 768

// Provider generates text embeddings and prompt completions.
type Provider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) (pgvector.Vector, error)

	// Complete generates text for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name for logging.
	Name() string
}
