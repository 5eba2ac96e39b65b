package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// OllamaProvider generates embeddings and completions by calling a local
// Ollama server.
type OllamaProvider struct {
	baseURL    string
	embedModel string
	chatModel  string
	client     *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
// baseURL should be the server root, e.g. "http://localhost:11434".
func NewOllamaProvider(baseURL, embedModel, chatModel string) *OllamaProvider {
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	if chatModel == "" {
		chatModel = "llama3.2"
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		chatModel:  chatModel,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// Embed generates an embedding via POST /api/embeddings.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	var result ollamaEmbedResponse
	if err := p.post(ctx, "/api/embeddings", ollamaEmbedRequest{Model: p.embedModel, Prompt: text}, &result); err != nil {
		return pgvector.Vector{}, err
	}
	if len(result.Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("no embedding returned")
	}
	return pgvector.NewVector(result.Embedding), nil
}

// Complete generates text via POST /api/generate with streaming disabled.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	var result ollamaGenerateResponse
	if err := p.post(ctx, "/api/generate", ollamaGenerateRequest{Model: p.chatModel, Prompt: prompt, Stream: false}, &result); err != nil {
		return "", err
	}
	if result.Response == "" {
		return "", fmt.Errorf("no response returned")
	}
	return result.Response, nil
}

func (p *OllamaProvider) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
