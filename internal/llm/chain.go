package llm

import (
	"context"
	"log/slog"

	pgvector "github.com/pgvector/pgvector-go"
)

// CompletionUnavailable is returned by Chain.Complete when every backend
// fails, so downstream prompt composition never crashes on an outage.
const CompletionUnavailable = "Unable to generate completion."

// Chain tries an ordered list of providers until one succeeds. Backend
// failures are logged and swallowed: Embed degrades to the empty vector and
// Complete to a fixed sentinel, never an error. Callers must treat an empty
// result as "skip".
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a fallback chain. Providers are tried in the given order.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Embed returns the first successful embedding, or the empty vector if every
// provider fails.
func (c *Chain) Embed(ctx context.Context, text string) pgvector.Vector {
	for _, p := range c.providers {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			c.logger.Warn("embedding failed", "provider", p.Name(), "error", err)
			continue
		}
		if len(vec.Slice()) == 0 {
			c.logger.Warn("embedding empty", "provider", p.Name())
			continue
		}
		c.logger.Debug("embedding generated", "provider", p.Name(), "dimensions", len(vec.Slice()))
		return vec
	}
	return pgvector.Vector{}
}

// Complete returns the first successful completion, or CompletionUnavailable
// if every provider fails.
func (c *Chain) Complete(ctx context.Context, prompt string) string {
	for _, p := range c.providers {
		text, err := p.Complete(ctx, prompt)
		if err != nil {
			c.logger.Warn("completion failed", "provider", p.Name(), "error", err)
			continue
		}
		c.logger.Debug("completion generated", "provider", p.Name())
		return text
	}
	return CompletionUnavailable
}
