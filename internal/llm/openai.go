package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAIProvider generates embeddings and completions using OpenAI's API.
// It is the hosted fallback when the local backend is unavailable.
type OpenAIProvider struct {
	apiKey     string
	embedModel string
	chatModel  string
	baseURL    string
	client     *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, embedModel, chatModel string) *OpenAIProvider {
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		embedModel: embedModel,
		chatModel:  chatModel,
		baseURL:    openAIBaseURL,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openAIEmbedRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
}

// Embed generates an embedding using the OpenAI embeddings API.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	var result openAIEmbedResponse
	err := p.post(ctx, "/v1/embeddings", openAIEmbedRequest{
		Input:      text,
		Model:      p.embedModel,
		Dimensions: Dimensions, // request 768 dims to match the local model
	}, &result)
	if err != nil {
		return pgvector.Vector{}, err
	}
	if result.Error != nil {
		return pgvector.Vector{}, fmt.Errorf("OpenAI error: %s", result.Error.Message)
	}
	if len(result.Data) == 0 {
		return pgvector.Vector{}, fmt.Errorf("no embeddings returned")
	}
	return pgvector.NewVector(result.Data[0].Embedding), nil
}

// Complete generates text using the OpenAI chat completions API.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	var result openAIChatResponse
	err := p.post(ctx, "/v1/chat/completions", openAIChatRequest{
		Model:     p.chatModel,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens: 1000,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("OpenAI error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling OpenAI: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
