// Package assistant composes stored commit messages with a question or
// summarization instruction into a single generation call.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

const (
	// answerWindow bounds the prompt to the newest commit messages for Q&A.
	answerWindow = 100
	// summaryWindow bounds the prompt for summarization.
	summaryWindow = 500

	// NoCommitData is returned when an analysis has no indexed commits yet.
	NoCommitData = "No commit data available for analysis."
	// NothingToSummarize is returned when there are no messages to summarize.
	NothingToSummarize = "No commit messages to summarize."
)

// MessageSource loads stored commit messages, newest first.
type MessageSource interface {
	MessagesForAnalysis(ctx context.Context, analysisID uuid.UUID, limit int) ([]string, error)
}

// Completer turns a prompt into generated text, degrading to a sentinel on failure.
type Completer interface {
	Complete(ctx context.Context, prompt string) string
}

// Composer answers questions about and summarizes an analysis's commit history.
type Composer struct {
	messages  MessageSource
	completer Completer
	logger    *slog.Logger
}

// NewComposer creates an answer composer.
func NewComposer(messages MessageSource, completer Completer, logger *slog.Logger) *Composer {
	return &Composer{messages: messages, completer: completer, logger: logger}
}

// Answer builds a prompt from the newest commit messages plus the question
// and generates an answer. With no indexed commits it short-circuits with a
// fixed message and never calls the provider.
func (c *Composer) Answer(ctx context.Context, analysisID uuid.UUID, question string) (string, error) {
	msgs, err := c.messages.MessagesForAnalysis(ctx, analysisID, answerWindow)
	if err != nil {
		return "", fmt.Errorf("loading commit messages: %w", err)
	}
	if len(msgs) == 0 {
		c.logger.Warn("no commit messages found", "analysis_id", analysisID)
		return NoCommitData, nil
	}

	prompt := fmt.Sprintf(
		"You are an assistant analyzing commit messages.\n\nCommit History:\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(msgs, "\n"),
		question,
	)
	return c.completer.Complete(ctx, prompt), nil
}

// Summarize builds a summarization prompt from the newest commit messages
// and generates a summary.
func (c *Composer) Summarize(ctx context.Context, analysisID uuid.UUID) (string, error) {
	msgs, err := c.messages.MessagesForAnalysis(ctx, analysisID, summaryWindow)
	if err != nil {
		return "", fmt.Errorf("loading commit messages: %w", err)
	}
	if len(msgs) == 0 {
		c.logger.Warn("no commit messages to summarize", "analysis_id", analysisID)
		return NothingToSummarize, nil
	}

	prompt := fmt.Sprintf(
		"Provide a concise summary of these commit messages:\n%s\n\nSummary:",
		strings.Join(msgs, "\n"),
	)
	return c.completer.Complete(ctx, prompt), nil
}
