package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

// CommitEmbedding represents a stored vector embedding for one commit message.
// Rows are written once by the ingestion pipeline and never updated.
type CommitEmbedding struct {
	AnalysisID    uuid.UUID       `json:"analysis_id"`
	CommitHash    string          `json:"commit_hash"`
	CommitMessage string          `json:"commit_message"`
	Embedding     pgvector.Vector `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SimilarCommit is returned by nearest-neighbor queries.
type SimilarCommit struct {
	CommitHash    string  `json:"commit_hash"`
	CommitMessage string  `json:"commit_message"`
	Similarity    float64 `json:"similarity"`
}

// CommitEmbeddingStore provides access to the commit embedding index.
type CommitEmbeddingStore struct {
	db *DB
}

// NewCommitEmbeddingStore creates a new CommitEmbeddingStore.
func NewCommitEmbeddingStore(db *DB) *CommitEmbeddingStore {
	return &CommitEmbeddingStore{db: db}
}

// Exists reports whether an embedding is already stored for the given
// (analysis, commit hash) pair.
func (s *CommitEmbeddingStore) Exists(ctx context.Context, analysisID uuid.UUID, commitHash string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM commit_embeddings
			WHERE analysis_id = $1 AND commit_hash = $2
		)
	`, analysisID, commitHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking embedding %s: %w", commitHash, err)
	}
	return exists, nil
}

// Insert stores a new embedding row. Returns ErrConflict if the
// (analysis_id, commit_hash) pair already exists: the unique constraint, not
// a prior Exists call, is what guards against concurrent duplicate writers.
func (s *CommitEmbeddingStore) Insert(ctx context.Context, analysisID uuid.UUID, commitHash, commitMessage string, embedding pgvector.Vector) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO commit_embeddings (analysis_id, commit_hash, commit_message, embedding)
		VALUES ($1, $2, $3, $4)
	`, analysisID, commitHash, commitMessage, embedding)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting embedding %s: %w", commitHash, err)
	}
	return nil
}

// SimilarCommits finds the commits nearest to a query vector within one
// analysis, ranked by cosine similarity (1 - cosine_distance) descending.
// Rows at or below minSimilarity are excluded; at most topK rows are returned.
func (s *CommitEmbeddingStore) SimilarCommits(ctx context.Context, analysisID uuid.UUID, query pgvector.Vector, topK int, minSimilarity float64) ([]SimilarCommit, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT commit_hash, commit_message, 1 - (embedding <=> $2) AS similarity
		FROM commit_embeddings
		WHERE analysis_id = $1
		  AND 1 - (embedding <=> $2) > $3
		ORDER BY similarity DESC
		LIMIT $4
	`, analysisID, query, minSimilarity, topK)
	if err != nil {
		return nil, fmt.Errorf("finding similar commits: %w", err)
	}
	defer rows.Close()

	var result []SimilarCommit
	for rows.Next() {
		var c SimilarCommit
		if err := rows.Scan(&c.CommitHash, &c.CommitMessage, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scanning similar commit: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// MessagesForAnalysis returns up to limit commit messages for one analysis,
// newest first.
func (s *CommitEmbeddingStore) MessagesForAnalysis(ctx context.Context, analysisID uuid.UUID, limit int) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT commit_message FROM commit_embeddings
		WHERE analysis_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, analysisID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing commit messages: %w", err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scanning commit message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountForAnalysis returns the number of stored embeddings for one analysis.
func (s *CommitEmbeddingStore) CountForAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM commit_embeddings WHERE analysis_id = $1
	`, analysisID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return count, nil
}
