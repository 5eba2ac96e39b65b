package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/commitlens/commitlens/internal/store"
)

type fakeResolver struct {
	known    map[uuid.UUID]bool
	statuses []store.AnalysisStatus
}

func (f *fakeResolver) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.known[id], nil
}

func (f *fakeResolver) SetStatus(_ context.Context, _ uuid.UUID, status store.AnalysisStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeIndex struct {
	rows map[string]string // "analysisID/hash" -> message

	insertErrs map[string][]error // errors returned before success, per hash
	inserts    int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{rows: make(map[string]string), insertErrs: make(map[string][]error)}
}

func (f *fakeIndex) key(id uuid.UUID, hash string) string {
	return id.String() + "/" + hash
}

func (f *fakeIndex) Exists(_ context.Context, id uuid.UUID, hash string) (bool, error) {
	_, ok := f.rows[f.key(id, hash)]
	return ok, nil
}

func (f *fakeIndex) Insert(_ context.Context, id uuid.UUID, hash, message string, _ pgvector.Vector) error {
	f.inserts++
	if errs := f.insertErrs[hash]; len(errs) > 0 {
		err := errs[0]
		f.insertErrs[hash] = errs[1:]
		return err
	}
	key := f.key(id, hash)
	if _, ok := f.rows[key]; ok {
		return store.ErrConflict
	}
	f.rows[key] = message
	return nil
}

type fakeEmbedder struct {
	failFor map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) pgvector.Vector {
	if f.failFor[text] {
		return pgvector.Vector{}
	}
	return pgvector.NewVector([]float32{1, 2, 3})
}

func newTestPipeline(resolver *fakeResolver, index *fakeIndex, embedder *fakeEmbedder) (*Pipeline, *[]time.Duration) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(resolver, index, embedder, logger)
	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }
	return p, &slept
}

func TestPipeline_CountsBatch(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}
	index := newFakeIndex()
	p, _ := newTestPipeline(resolver, index, &fakeEmbedder{})

	res, err := p.Run(context.Background(), analysisID, []Commit{
		{SHA: "a1", Message: "fix bug"},
		{SHA: "a2", Message: "add feature"},
		{SHA: "", Message: "bad"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 2 || res.Skipped != 1 || res.Errored != 0 {
		t.Errorf("expected processed=2 skipped=1 errored=0, got %+v", res)
	}
	want := []store.AnalysisStatus{store.StatusInProgress, store.StatusCompleted}
	if len(resolver.statuses) != 2 || resolver.statuses[0] != want[0] || resolver.statuses[1] != want[1] {
		t.Errorf("expected status transitions %v, got %v", want, resolver.statuses)
	}
}

func TestPipeline_IdempotentRerun(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}
	index := newFakeIndex()
	p, _ := newTestPipeline(resolver, index, &fakeEmbedder{})

	batch := []Commit{{SHA: "a1", Message: "fix bug"}, {SHA: "a2", Message: "add feature"}}
	if _, err := p.Run(context.Background(), analysisID, batch); err != nil {
		t.Fatalf("first run: %v", err)
	}
	rowsAfterFirst := len(index.rows)

	res, err := p.Run(context.Background(), analysisID, batch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Processed != 0 || res.Skipped != 2 {
		t.Errorf("rerun should skip everything, got %+v", res)
	}
	if len(index.rows) != rowsAfterFirst {
		t.Errorf("rerun must not change stored rows: %d -> %d", rowsAfterFirst, len(index.rows))
	}

	// Rerunning a subset behaves the same way.
	res, err = p.Run(context.Background(), analysisID, []Commit{{SHA: "a1", Message: "fix bug"}})
	if err != nil {
		t.Fatalf("subset rerun: %v", err)
	}
	if res.Processed != 0 || res.Skipped != 1 {
		t.Errorf("subset rerun should report skipped=1 processed=0, got %+v", res)
	}
}

func TestPipeline_IsolatesEmbeddingFailure(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}
	index := newFakeIndex()
	embedder := &fakeEmbedder{failFor: map[string]bool{"broken commit": true}}
	p, _ := newTestPipeline(resolver, index, embedder)

	res, err := p.Run(context.Background(), analysisID, []Commit{
		{SHA: "k0", Message: "before"},
		{SHA: "k1", Message: "broken commit"},
		{SHA: "k2", Message: "after"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 2 || res.Errored != 1 {
		t.Errorf("expected processed=2 errored=1, got %+v", res)
	}
	for _, hash := range []string{"k0", "k2"} {
		if _, ok := index.rows[index.key(analysisID, hash)]; !ok {
			t.Errorf("commit %s should be stored despite neighbor failure", hash)
		}
	}
	if _, ok := index.rows[index.key(analysisID, "k1")]; ok {
		t.Error("failed commit must not leave a partial row")
	}
}

func TestPipeline_RetriesInsertWithBackoff(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}
	index := newFakeIndex()
	index.insertErrs["a1"] = []error{errors.New("deadlock"), errors.New("deadlock")}
	p, slept := newTestPipeline(resolver, index, &fakeEmbedder{})

	res, err := p.Run(context.Background(), analysisID, []Commit{{SHA: "a1", Message: "fix bug"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 1 {
		t.Errorf("expected eventual success, got %+v", res)
	}
	if index.inserts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", index.inserts)
	}
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Errorf("expected growing backoff [1s 2s], got %v", *slept)
	}
}

func TestPipeline_GivesUpAfterMaxAttempts(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}
	index := newFakeIndex()
	index.insertErrs["a1"] = []error{
		errors.New("down"), errors.New("down"), errors.New("down"),
	}
	p, _ := newTestPipeline(resolver, index, &fakeEmbedder{})

	res, err := p.Run(context.Background(), analysisID, []Commit{
		{SHA: "a1", Message: "fix bug"},
		{SHA: "a2", Message: "add feature"},
	})
	if err != nil {
		t.Fatalf("per-commit failure must not fail the batch: %v", err)
	}
	if res.Processed != 1 || res.Errored != 1 {
		t.Errorf("expected processed=1 errored=1, got %+v", res)
	}
}

func TestPipeline_ConflictIsSkipNotRetry(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}
	index := newFakeIndex()
	index.insertErrs["a1"] = []error{store.ErrConflict}
	p, slept := newTestPipeline(resolver, index, &fakeEmbedder{})

	res, err := p.Run(context.Background(), analysisID, []Commit{{SHA: "a1", Message: "fix bug"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Skipped != 1 || res.Errored != 0 {
		t.Errorf("concurrent duplicate should count as skipped, got %+v", res)
	}
	if index.inserts != 1 {
		t.Errorf("conflict must not be retried, got %d attempts", index.inserts)
	}
	if len(*slept) != 0 {
		t.Errorf("conflict must not back off, slept %v", *slept)
	}
}

func TestPipeline_MissingAnalysisIsFatal(t *testing.T) {
	resolver := &fakeResolver{known: map[uuid.UUID]bool{}}
	index := newFakeIndex()
	p, _ := newTestPipeline(resolver, index, &fakeEmbedder{})

	_, err := p.Run(context.Background(), uuid.New(), []Commit{{SHA: "a1", Message: "fix bug"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if index.inserts != 0 {
		t.Error("no per-commit work may happen for a missing analysis")
	}
	if len(resolver.statuses) != 0 {
		t.Errorf("a missing analysis must not change status, got %v", resolver.statuses)
	}
}

func TestPipeline_OrderIndependentCounters(t *testing.T) {
	analysisID := uuid.New()
	resolver := &fakeResolver{known: map[uuid.UUID]bool{analysisID: true}}

	var batch []Commit
	for i := 0; i < 10; i++ {
		batch = append(batch, Commit{SHA: fmt.Sprintf("c%d", i), Message: fmt.Sprintf("change %d", i)})
	}

	index := newFakeIndex()
	p, _ := newTestPipeline(resolver, index, &fakeEmbedder{})
	res, err := p.Run(context.Background(), analysisID, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 10 {
		t.Errorf("expected all 10 processed, got %+v", res)
	}
	if len(index.rows) != 10 {
		t.Errorf("expected 10 rows, got %d", len(index.rows))
	}
}
