package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AnalysisStatus represents the lifecycle state of an analysis.
type AnalysisStatus string

const (
	StatusInProgress AnalysisStatus = "in-progress"
	StatusCompleted  AnalysisStatus = "completed"
)

// Analysis is the stored record for one analyzed repository. The jsonb blobs
// hold raw data fetched from the hosting API; the embedding index references
// an analysis by ID only.
type Analysis struct {
	ID             uuid.UUID       `json:"id"`
	RepoURL        string          `json:"repo_url"`
	Status         AnalysisStatus  `json:"status"`
	Commits        json.RawMessage `json:"commits"`
	Contributors   json.RawMessage `json:"contributors"`
	CommitActivity json.RawMessage `json:"commit_activity"`
	FileChanges    json.RawMessage `json:"file_changes"`
	Dependencies   json.RawMessage `json:"dependencies"`
	Issues         json.RawMessage `json:"issues"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AnalysisStore provides CRUD for analysis records.
type AnalysisStore struct {
	db *DB
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(db *DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

// Create inserts a new analysis for a repository URL.
func (s *AnalysisStore) Create(ctx context.Context, repoURL string) (*Analysis, error) {
	a := &Analysis{RepoURL: repoURL, Status: StatusInProgress}
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO analyses (repo_url, status)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, repoURL, a.Status).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating analysis: %w", err)
	}
	return a, nil
}

// Get retrieves an analysis by ID. Returns ErrNotFound if it does not exist.
func (s *AnalysisStore) Get(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	a := &Analysis{}
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, repo_url, status, commits, contributors, commit_activity,
		       file_changes, dependencies, issues, created_at
		FROM analyses WHERE id = $1
	`, id).Scan(
		&a.ID, &a.RepoURL, &a.Status, &a.Commits, &a.Contributors,
		&a.CommitActivity, &a.FileChanges, &a.Dependencies, &a.Issues, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting analysis %s: %w", id, err)
	}
	return a, nil
}

// Exists reports whether an analysis with the given ID exists.
func (s *AnalysisStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM analyses WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking analysis %s: %w", id, err)
	}
	return exists, nil
}

// SetStatus updates the analysis lifecycle state.
func (s *AnalysisStore) SetStatus(ctx context.Context, id uuid.UUID, status AnalysisStatus) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE analyses SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating analysis status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SnapshotInput holds the raw repository data fetched from the hosting API.
type SnapshotInput struct {
	Commits        json.RawMessage
	Contributors   json.RawMessage
	CommitActivity json.RawMessage
	FileChanges    json.RawMessage
	Dependencies   json.RawMessage
	Issues         json.RawMessage
}

// SetSnapshot stores the fetched repository data and marks the analysis completed.
func (s *AnalysisStore) SetSnapshot(ctx context.Context, id uuid.UUID, in SnapshotInput) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE analyses
		SET commits = $2, contributors = $3, commit_activity = $4,
		    file_changes = $5, dependencies = $6, issues = $7, status = $8
		WHERE id = $1
	`, id, orEmptyJSON(in.Commits), orEmptyJSON(in.Contributors), orEmptyJSON(in.CommitActivity),
		orEmptyJSON(in.FileChanges), orEmptyJSON(in.Dependencies), orEmptyJSON(in.Issues),
		StatusCompleted)
	if err != nil {
		return fmt.Errorf("storing analysis snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCommits replaces only the commit window blob. The ingestion pipeline
// owns the status transition for this phase.
func (s *AnalysisStore) SetCommits(ctx context.Context, id uuid.UUID, commits json.RawMessage) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE analyses SET commits = $2 WHERE id = $1
	`, id, orEmptyJSON(commits))
	if err != nil {
		return fmt.Errorf("storing analysis commits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func orEmptyJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
