package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/commitlens/commitlens/internal/events"
	"github.com/commitlens/commitlens/internal/github"
	"github.com/commitlens/commitlens/internal/ingest"
	"github.com/commitlens/commitlens/internal/store"
)

// defaultCommitWindow is how many commits the initial snapshot fetches.
const defaultCommitWindow = 100

// AnalysisHandler creates analyses and triggers commit ingestion.
type AnalysisHandler struct {
	analyses   *store.AnalysisStore
	embeddings *store.CommitEmbeddingStore
	github     *github.Client
	pipeline   *ingest.Pipeline
	publisher  *events.Publisher
	logger     *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analyses *store.AnalysisStore, embeddings *store.CommitEmbeddingStore, gh *github.Client, pipeline *ingest.Pipeline, publisher *events.Publisher, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyses:   analyses,
		embeddings: embeddings,
		github:     gh,
		pipeline:   pipeline,
		publisher:  publisher,
		logger:     logger,
	}
}

// AnalyzeRequest is the request body for starting an analysis.
type AnalyzeRequest struct {
	RepoURL string `json:"repo_url"`
}

// Analyze handles POST /api/analyze: it snapshots the repository and creates
// the analysis record.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RepoURL == "" {
		writeError(w, http.StatusBadRequest, "repo_url is required")
		return
	}

	owner, repo, err := github.ParseRepoURL(req.RepoURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("analyzing repository", "repo_url", req.RepoURL)

	snap, err := h.github.Snapshot(r.Context(), owner, repo, defaultCommitWindow)
	if err != nil {
		h.logger.Error("repository snapshot failed", "repo_url", req.RepoURL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to initialize analysis")
		return
	}

	analysis, err := h.analyses.Create(r.Context(), req.RepoURL)
	if err != nil {
		h.logger.Error("creating analysis failed", "repo_url", req.RepoURL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to initialize analysis")
		return
	}

	if err := h.analyses.SetSnapshot(r.Context(), analysis.ID, snapshotInput(snap)); err != nil {
		h.logger.Error("storing snapshot failed", "analysis_id", analysis.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to initialize analysis")
		return
	}

	if h.publisher != nil {
		_ = h.publisher.AnalysisCreated(r.Context(), analysis.ID, req.RepoURL, snap.TotalCommits)
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message":       "Analysis completed successfully",
		"analysis_id":   analysis.ID,
		"total_commits": snap.TotalCommits,
	})
}

// ProcessCommitsRequest is the request body for commit ingestion.
type ProcessCommitsRequest struct {
	AnalysisID  uuid.UUID `json:"analysis_id"`
	CommitCount int       `json:"commit_count"`
}

// ProcessCommits handles POST /api/process-commits: it fetches the requested
// commit window, stores it on the analysis record, and launches embedding
// ingestion in the background so the caller is not blocked on potentially
// hundreds of embedding calls.
func (h *AnalysisHandler) ProcessCommits(w http.ResponseWriter, r *http.Request) {
	var req ProcessCommitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CommitCount <= 0 {
		req.CommitCount = defaultCommitWindow
	}

	analysis, err := h.analyses.Get(r.Context(), req.AnalysisID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		h.logger.Error("loading analysis failed", "analysis_id", req.AnalysisID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process commits")
		return
	}

	owner, repo, err := github.ParseRepoURL(analysis.RepoURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	commits, err := h.github.Commits(r.Context(), owner, repo, req.CommitCount)
	if err != nil {
		h.logger.Error("fetching commits failed", "analysis_id", analysis.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch commits")
		return
	}

	blob, err := json.Marshal(map[string]any{
		"totalCommits": len(commits),
		"commits":      commits,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process commits")
		return
	}
	if err := h.analyses.SetCommits(r.Context(), analysis.ID, blob); err != nil {
		h.logger.Error("storing commits failed", "analysis_id", analysis.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process commits")
		return
	}

	batch := make([]ingest.Commit, len(commits))
	for i, c := range commits {
		batch[i] = ingest.Commit{SHA: c.SHA, Message: c.Message}
	}
	h.pipeline.RunAsync(analysis.ID, batch)

	writeSuccess(w, http.StatusOK, map[string]any{
		"message":           "Commits processed successfully",
		"processed_commits": len(commits),
	})
}

// GetAnalysis handles GET /api/analysis/{id}.
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}

	analysis, err := h.analyses.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		h.logger.Error("loading analysis failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load analysis")
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// AnalysisData handles GET /api/analysis-data: the full stored record with
// parsed blobs, shaped for the dashboard.
func (h *AnalysisHandler) AnalysisData(w http.ResponseWriter, r *http.Request) {
	analysis, ok := h.loadFromQuery(w, r)
	if !ok {
		return
	}

	// Ingestion runs in the background; the count tells the dashboard how far
	// indexing has progressed.
	indexed, err := h.embeddings.CountForAnalysis(r.Context(), analysis.ID)
	if err != nil {
		h.logger.Warn("counting embeddings failed", "analysis_id", analysis.ID, "error", err)
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"indexed_commits": indexed,
			"id":              analysis.ID,
			"repo_url":        analysis.RepoURL,
			"status":          analysis.Status,
			"created_at":      analysis.CreatedAt,
			"commits":         analysis.Commits,
			"file_changes":    analysis.FileChanges,
			"commit_activity": analysis.CommitActivity,
			"contributors":    analysis.Contributors,
			"dependencies":    analysis.Dependencies,
			"issues":          analysis.Issues,
		},
	})
}

func (h *AnalysisHandler) loadFromQuery(w http.ResponseWriter, r *http.Request) (*store.Analysis, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("analysis_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid analysis ID")
		return nil, false
	}

	analysis, err := h.analyses.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return nil, false
		}
		h.logger.Error("loading analysis failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load analysis")
		return nil, false
	}
	return analysis, true
}

func snapshotInput(snap *github.Snapshot) store.SnapshotInput {
	commits, _ := json.Marshal(map[string]any{"totalCommits": snap.TotalCommits, "commits": snap.Commits})
	contributors, _ := json.Marshal(snap.Contributors)
	activity, _ := json.Marshal(snap.Commits)
	fileChanges, _ := json.Marshal(snap.FileChanges)
	dependencies, _ := json.Marshal(snap.Dependencies)
	issues, _ := json.Marshal(snap.Issues)

	return store.SnapshotInput{
		Commits:        commits,
		Contributors:   contributors,
		CommitActivity: activity,
		FileChanges:    fileChanges,
		Dependencies:   dependencies,
		Issues:         issues,
	}
}
