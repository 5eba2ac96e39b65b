package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens/internal/store"
)

// DataHandler serves the stored analysis blobs consumed by dashboard views.
// A missing or not-yet-populated analysis yields an empty payload instead of
// an error so the dashboard renders empty charts.
type DataHandler struct {
	analyses *store.AnalysisStore
	logger   *slog.Logger
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(analyses *store.AnalysisStore, logger *slog.Logger) *DataHandler {
	return &DataHandler{analyses: analyses, logger: logger}
}

// FileChangeFrequency handles GET /api/file-change-frequency.
func (h *DataHandler) FileChangeFrequency(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, func(a *store.Analysis) json.RawMessage { return a.FileChanges })
}

// CommitActivityTimeline handles GET /api/commit-activity-timeline.
func (h *DataHandler) CommitActivityTimeline(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, func(a *store.Analysis) json.RawMessage { return a.CommitActivity })
}

// ContributorStatistics handles GET /api/contributor-statistics.
func (h *DataHandler) ContributorStatistics(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, func(a *store.Analysis) json.RawMessage { return a.Contributors })
}

// CodebaseHeatmap handles GET /api/codebase-heatmap.
func (h *DataHandler) CodebaseHeatmap(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, func(a *store.Analysis) json.RawMessage { return a.FileChanges })
}

// DependencyGraph handles GET /api/dependency-graph.
func (h *DataHandler) DependencyGraph(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, func(a *store.Analysis) json.RawMessage { return a.Dependencies })
}

// Issues handles GET /api/issues.
func (h *DataHandler) Issues(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, func(a *store.Analysis) json.RawMessage { return a.Issues })
}

func (h *DataHandler) serveBlob(w http.ResponseWriter, r *http.Request, pick func(*store.Analysis) json.RawMessage) {
	idParam := r.URL.Query().Get("analysis_id")
	if idParam == "" {
		writeSuccess(w, http.StatusOK, map[string]any{"data": json.RawMessage(`{}`)})
		return
	}

	id, err := uuid.Parse(idParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}

	analysis, err := h.analyses.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeSuccess(w, http.StatusOK, map[string]any{"data": json.RawMessage(`{}`)})
			return
		}
		h.logger.Error("loading analysis failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load analysis data")
		return
	}

	blob := pick(analysis)
	if len(blob) == 0 {
		blob = json.RawMessage(`{}`)
	}
	writeSuccess(w, http.StatusOK, map[string]any{"data": blob})
}
