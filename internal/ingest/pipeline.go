// Package ingest implements the commit embedding ingestion pipeline:
// idempotently embedding and storing a batch of commits for one analysis,
// isolating the failure of any single commit from the rest of the batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/commitlens/commitlens/internal/store"
)

// Commit is one (hash, message) pair from the fetched commit window.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// Result holds the per-batch counters reported after a run.
type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

// AnalysisResolver confirms the parent analysis exists before any per-commit
// work and records its lifecycle state around an ingestion run.
type AnalysisResolver interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status store.AnalysisStatus) error
}

// EmbeddingIndex is the slice of the embedding store the pipeline writes to.
type EmbeddingIndex interface {
	Exists(ctx context.Context, analysisID uuid.UUID, commitHash string) (bool, error)
	Insert(ctx context.Context, analysisID uuid.UUID, commitHash, commitMessage string, embedding pgvector.Vector) error
}

// Embedder turns text into a vector, degrading to the empty vector on failure.
type Embedder interface {
	Embed(ctx context.Context, text string) pgvector.Vector
}

// Notifier is told when a background ingestion run finishes.
type Notifier interface {
	CommitsIndexed(ctx context.Context, analysisID uuid.UUID, res Result) error
}

// Pipeline embeds and stores commit batches.
type Pipeline struct {
	analyses AnalysisResolver
	index    EmbeddingIndex
	embedder Embedder
	notifier Notifier
	logger   *slog.Logger

	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
}

// New creates an ingestion pipeline with 3 insert attempts and a backoff that
// grows with the attempt number.
func New(analyses AnalysisResolver, index EmbeddingIndex, embedder Embedder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		analyses:    analyses,
		index:       index,
		embedder:    embedder,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   time.Second,
		sleep:       time.Sleep,
	}
}

// WithNotifier sets an optional completion notifier for background runs.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// Run processes a commit batch for one analysis. Per-commit failures are
// counted, never propagated; the only error Run returns is a missing parent
// analysis, detected before any per-commit work.
func (p *Pipeline) Run(ctx context.Context, analysisID uuid.UUID, commits []Commit) (Result, error) {
	ok, err := p.analyses.Exists(ctx, analysisID)
	if err != nil {
		return Result{}, fmt.Errorf("resolving analysis %s: %w", analysisID, err)
	}
	if !ok {
		return Result{}, fmt.Errorf("analysis %s: %w", analysisID, store.ErrNotFound)
	}

	p.logger.Info("processing commit embeddings", "analysis_id", analysisID, "total_commits", len(commits))
	if err := p.analyses.SetStatus(ctx, analysisID, store.StatusInProgress); err != nil {
		p.logger.Warn("failed to mark analysis in progress", "analysis_id", analysisID, "error", err)
	}

	var res Result
	for _, commit := range commits {
		switch p.processOne(ctx, analysisID, commit) {
		case outcomeProcessed:
			res.Processed++
		case outcomeSkipped:
			res.Skipped++
		case outcomeErrored:
			res.Errored++
		}
	}

	if err := p.analyses.SetStatus(ctx, analysisID, store.StatusCompleted); err != nil {
		p.logger.Warn("failed to mark analysis completed", "analysis_id", analysisID, "error", err)
	}

	p.logger.Info("finished processing commit embeddings",
		"analysis_id", analysisID,
		"processed", res.Processed,
		"skipped", res.Skipped,
		"errored", res.Errored,
	)
	return res, nil
}

// RunAsync launches Run detached from the caller's request lifetime. Errors
// are logged and dropped; the ingestion runs to completion or process exit.
func (p *Pipeline) RunAsync(analysisID uuid.UUID, commits []Commit) {
	go func() {
		ctx := context.Background()
		res, err := p.Run(ctx, analysisID, commits)
		if err != nil {
			p.logger.Warn("background embedding processing failed", "analysis_id", analysisID, "error", err)
			return
		}
		if p.notifier != nil {
			if err := p.notifier.CommitsIndexed(ctx, analysisID, res); err != nil {
				p.logger.Warn("failed to publish ingestion event", "analysis_id", analysisID, "error", err)
			}
		}
	}()
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeErrored
)

func (p *Pipeline) processOne(ctx context.Context, analysisID uuid.UUID, commit Commit) outcome {
	if commit.SHA == "" || commit.Message == "" {
		p.logger.Warn("skipping commit with missing hash or message", "analysis_id", analysisID, "commit_hash", commit.SHA)
		return outcomeSkipped
	}

	exists, err := p.index.Exists(ctx, analysisID, commit.SHA)
	if err != nil {
		p.logger.Error("embedding existence check failed", "commit_hash", commit.SHA, "error", err)
		return outcomeErrored
	}
	if exists {
		p.logger.Debug("embedding already exists", "commit_hash", commit.SHA)
		return outcomeSkipped
	}

	vec := p.embedder.Embed(ctx, commit.Message)
	if len(vec.Slice()) == 0 {
		p.logger.Warn("no embedding generated", "commit_hash", commit.SHA)
		return outcomeErrored
	}

	if err := p.insertWithRetry(ctx, analysisID, commit, vec); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent writer got there first; the row exists, which is
			// all idempotent ingestion requires.
			p.logger.Debug("embedding inserted concurrently", "commit_hash", commit.SHA)
			return outcomeSkipped
		}
		p.logger.Error("failed to save embedding", "commit_hash", commit.SHA, "error", err)
		return outcomeErrored
	}

	p.logger.Debug("saved new embedding", "commit_hash", commit.SHA)
	return outcomeProcessed
}

// insertWithRetry attempts the insert up to maxAttempts times with a backoff
// that grows with the attempt number. ErrConflict is returned immediately:
// a constraint violation will never resolve by retrying.
func (p *Pipeline) insertWithRetry(ctx context.Context, analysisID uuid.UUID, commit Commit, vec pgvector.Vector) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err := p.index.Insert(ctx, analysisID, commit.SHA, commit.Message, vec)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConflict) {
			return err
		}
		lastErr = err
		if attempt < p.maxAttempts {
			p.logger.Warn("retrying embedding insert",
				"commit_hash", commit.SHA,
				"attempt", attempt,
				"max_attempts", p.maxAttempts,
				"error", err,
			)
			p.sleep(time.Duration(attempt) * p.baseDelay)
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.maxAttempts, lastErr)
}
