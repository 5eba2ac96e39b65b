package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens/internal/assistant"
	"github.com/commitlens/commitlens/internal/events"
	"github.com/commitlens/commitlens/internal/search"
)

// SearchHandler provides semantic search, Q&A, and summarization endpoints.
type SearchHandler struct {
	engine    *search.Engine
	composer  *assistant.Composer
	publisher *events.Publisher
	logger    *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(engine *search.Engine, composer *assistant.Composer, publisher *events.Publisher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		engine:    engine,
		composer:  composer,
		publisher: publisher,
		logger:    logger,
	}
}

// SearchCommits handles GET /api/search-commits?analysis_id=&query=.
// An analysis with no embeddings yet yields an empty result set, not an
// error: ingestion is asynchronous relative to indexing completion.
func (h *SearchHandler) SearchCommits(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	analysisID, err := uuid.Parse(r.URL.Query().Get("analysis_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}

	results, err := h.engine.Search(r.Context(), analysisID, query)
	if err != nil {
		h.logger.Error("semantic search failed", "analysis_id", analysisID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to perform semantic search")
		return
	}

	if h.publisher != nil {
		_ = h.publisher.SearchPerformed(r.Context(), analysisID, len(results))
	}

	fields := map[string]any{"results": results}
	if len(results) == 0 {
		fields["message"] = "No matching commits found"
	}
	writeSuccess(w, http.StatusOK, fields)
}

// QuestionRequest is the request body for question answering.
type QuestionRequest struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	Question   string    `json:"question"`
}

// QuestionAnswering handles POST /api/question-answering.
func (h *SearchHandler) QuestionAnswering(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Valid question is required")
		return
	}

	answer, err := h.composer.Answer(r.Context(), req.AnalysisID, req.Question)
	if err != nil {
		h.logger.Error("question answering failed", "analysis_id", req.AnalysisID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process question")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"answer": answer})
}

// SummarizeRequest is the request body for summarization.
type SummarizeRequest struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
}

// Summarize handles POST /api/summarize.
func (h *SearchHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.composer.Summarize(r.Context(), req.AnalysisID)
	if err != nil {
		h.logger.Error("summarization failed", "analysis_id", req.AnalysisID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate summary")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"summary": summary})
}
