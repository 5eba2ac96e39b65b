package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestSearchCommits_MissingQuery(t *testing.T) {
	h := NewSearchHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/search-commits?analysis_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.SearchCommits(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" || body["message"] != "Search query is required" {
		t.Errorf("unexpected error envelope: %v", body)
	}
}

func TestSearchCommits_BlankQuery(t *testing.T) {
	h := NewSearchHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/search-commits?query=%20%20&analysis_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.SearchCommits(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("whitespace-only query must be rejected, got %d", rec.Code)
	}
}

func TestSearchCommits_InvalidAnalysisID(t *testing.T) {
	h := NewSearchHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/search-commits?query=login&analysis_id=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.SearchCommits(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Invalid analysis ID" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestQuestionAnswering_InvalidBody(t *testing.T) {
	h := NewSearchHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/question-answering", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.QuestionAnswering(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestQuestionAnswering_EmptyQuestion(t *testing.T) {
	h := NewSearchHandler(nil, nil, nil, testLogger())

	payload := `{"analysis_id":"` + uuid.NewString() + `","question":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/question-answering", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.QuestionAnswering(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Valid question is required" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestSummarize_InvalidBody(t *testing.T) {
	h := NewSearchHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.Summarize(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}
