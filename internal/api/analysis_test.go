package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestAnalyze_InvalidBody(t *testing.T) {
	h := NewAnalysisHandler(nil, nil, nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestAnalyze_MissingRepoURL(t *testing.T) {
	h := NewAnalysisHandler(nil, nil, nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "repo_url is required" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestAnalyze_InvalidRepoURL(t *testing.T) {
	h := NewAnalysisHandler(nil, nil, nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"repo_url":"https://gitlab.com/a/b"}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-GitHub URL, got %d", rec.Code)
	}
}

func TestGetAnalysis_InvalidID(t *testing.T) {
	h := NewAnalysisHandler(nil, nil, nil, nil, nil, testLogger())

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/not-a-uuid", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.GetAnalysis(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Invalid analysis ID" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestAnalysisData_InvalidID(t *testing.T) {
	h := NewAnalysisHandler(nil, nil, nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/analysis-data?analysis_id=abc", nil)
	rec := httptest.NewRecorder()
	h.AnalysisData(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestProcessCommits_InvalidBody(t *testing.T) {
	h := NewAnalysisHandler(nil, nil, nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/process-commits", strings.NewReader("["))
	rec := httptest.NewRecorder()
	h.ProcessCommits(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}
