// Package config provides environment-based configuration for commitlens.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the commitlens service.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Database (PostgreSQL with pgvector)
	DatabaseURL string

	// NATS (optional event bus)
	NatsURL string

	// Local embedding/generation backend (Ollama)
	OllamaURL        string
	OllamaEmbedModel string
	OllamaChatModel  string

	// Hosted fallback backend (OpenAI); used only when the key is set
	OpenAIAPIKey     string
	OpenAIEmbedModel string
	OpenAIChatModel  string

	// GitHub API
	GitHubAPIURL string
	GitHubToken  string

	// Rate limiting
	AnalyzeRateLimit int           // requests per minute
	SearchRateLimit  int           // requests per minute
	RateWindow       time.Duration // window for rate limiting
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	c := &Config{
		Port:             envInt("COMMITLENS_PORT", 8400),
		LogLevel:         envStr("COMMITLENS_LOG_LEVEL", "info"),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		NatsURL:          envStr("NATS_URL", ""),
		OllamaURL:        envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel: envStr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaChatModel:  envStr("OLLAMA_CHAT_MODEL", "llama3.2"),
		OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
		OpenAIEmbedModel: envStr("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:  envStr("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		GitHubAPIURL:     envStr("GITHUB_API_URL", "https://api.github.com"),
		GitHubToken:      envStr("GITHUB_TOKEN", ""),
		AnalyzeRateLimit: envInt("ANALYZE_RATE_LIMIT", 10),
		SearchRateLimit:  envInt("SEARCH_RATE_LIMIT", 60),
		RateWindow:       time.Minute,
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return c, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
