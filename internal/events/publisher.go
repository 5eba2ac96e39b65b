package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/commitlens/commitlens/internal/ingest"
)

// Publisher publishes commitlens lifecycle events.
type Publisher struct {
	client *Client
	logger *slog.Logger
}

// NewPublisher creates an event publisher.
func NewPublisher(client *Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Event is the envelope published for every commitlens event.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func (p *Publisher) publish(_ context.Context, subject, eventType string, data any) error {
	payload, err := json.Marshal(Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "commitlens",
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.client.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.logger.Debug("published event", "subject", subject, "type", eventType)
	return nil
}

// AnalysisCreated publishes an analysis creation event.
func (p *Publisher) AnalysisCreated(ctx context.Context, analysisID uuid.UUID, repoURL string, totalCommits int) error {
	return p.publish(ctx, "commitlens.analysis.created", "analysis.created", map[string]any{
		"analysis_id":   analysisID,
		"repo_url":      repoURL,
		"total_commits": totalCommits,
	})
}

// CommitsIndexed publishes the counters of a finished ingestion run.
func (p *Publisher) CommitsIndexed(ctx context.Context, analysisID uuid.UUID, res ingest.Result) error {
	return p.publish(ctx, "commitlens.commits.indexed", "commits.indexed", map[string]any{
		"analysis_id": analysisID,
		"processed":   res.Processed,
		"skipped":     res.Skipped,
		"errored":     res.Errored,
	})
}

// SearchPerformed publishes a semantic search event (for analytics).
func (p *Publisher) SearchPerformed(ctx context.Context, analysisID uuid.UUID, resultCount int) error {
	return p.publish(ctx, "commitlens.search.performed", "search.performed", map[string]any{
		"analysis_id":  analysisID,
		"result_count": resultCount,
	})
}
