// Package search implements semantic retrieval over the commit embedding index.
package search

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/commitlens/commitlens/internal/store"
)

const (
	// TopK bounds the number of results per query.
	TopK = 5
	// MinSimilarity is the cosine similarity floor below which matches are dropped.
	MinSimilarity = 0.5
)

// Index is the slice of the embedding store the engine queries.
type Index interface {
	SimilarCommits(ctx context.Context, analysisID uuid.UUID, query pgvector.Vector, topK int, minSimilarity float64) ([]store.SimilarCommit, error)
}

// Embedder turns text into a vector, degrading to the empty vector on failure.
type Embedder interface {
	Embed(ctx context.Context, text string) pgvector.Vector
}

// Engine ranks stored commit embeddings against free-text queries.
type Engine struct {
	index    Index
	embedder Embedder
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(index Index, embedder Embedder, logger *slog.Logger) *Engine {
	return &Engine{index: index, embedder: embedder, logger: logger}
}

// Search embeds the query and returns the top commits for one analysis,
// ranked by similarity descending. A query that cannot be embedded yields no
// matches, not an error.
func (e *Engine) Search(ctx context.Context, analysisID uuid.UUID, query string) ([]store.SimilarCommit, error) {
	vec := e.embedder.Embed(ctx, query)
	if len(vec.Slice()) == 0 {
		e.logger.Warn("embedding generation failed for query", "analysis_id", analysisID)
		return []store.SimilarCommit{}, nil
	}

	results, err := e.index.SimilarCommits(ctx, analysisID, vec, TopK, MinSimilarity)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []store.SimilarCommit{}
	}

	e.logger.Debug("similar commits found", "analysis_id", analysisID, "count", len(results))
	return results, nil
}
