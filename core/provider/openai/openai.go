// Package openai provides embedding and generation over the OpenAI API or
// any compatible endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/helper"
)

var (
	_ provider.Embedder  = (*EmbeddingService)(nil)
	_ provider.Generator = (*LLMService)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultTimeout        = 60 * time.Second
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI services.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the embedding or chat model.
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the model's default embedding dimension.
	Dimensions int
}

func (c *Config) defaults(model string) error {
	if c.APIKey == "" {
		return fmt.Errorf("openai: API key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

type client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// post sends body as JSON to path and decodes the response into out.
func (c *client) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		message := string(payload)
		if json.Unmarshal(payload, &errResp) == nil && errResp.Error != nil {
			message = errResp.Error.Message
		}
		return &provider.StatusError{Provider: "openai", StatusCode: resp.StatusCode, Body: message}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// EmbeddingService generates embeddings with the /embeddings endpoint.
type EmbeddingService struct {
	client
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if err := cfg.defaults(DefaultEmbeddingModel); err != nil {
		return nil, err
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536
		}
	}

	return &EmbeddingService{
		client: client{
			http:    &http.Client{Timeout: cfg.Timeout},
			baseURL: cfg.BaseURL,
			apiKey:  cfg.APIKey,
		},
		model:      cfg.Model,
		dimensions: dimensions,
	}, nil
}

// Embed generates embeddings for all texts in one request.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := embeddingRequest{
		Model: s.model,
		Input: texts,
	}
	// Only text-embedding-3 models accept a dimension.
	if s.model == "text-embedding-3-small" || s.model == "text-embedding-3-large" {
		reqBody.Dimensions = s.dimensions
	}

	var embedResp embeddingResponse
	if err := s.post(ctx, "/embeddings", reqBody, &embedResp); err != nil {
		return nil, helper.Kind(helper.ErrProvider, helper.NewError("openai embeddings", err))
	}

	if len(embedResp.Data) != len(texts) {
		return nil, helper.Kind(helper.ErrProvider, fmt.Errorf("openai embeddings: got %d embeddings for %d texts", len(embedResp.Data), len(texts)))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, helper.Kind(helper.ErrProvider, fmt.Errorf("openai embeddings: index %d out of range", data.Index))
		}
		if len(data.Embedding) != s.dimensions {
			return nil, helper.Kind(helper.ErrProvider, fmt.Errorf("openai embeddings: got dimension %d, expected %d", len(data.Embedding), s.dimensions))
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}

	return embeddings, nil
}

// EmbedOne generates the embedding of a single text.
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimension returns the embedding vector size.
func (s *EmbeddingService) Dimension() int {
	return s.dimensions
}

// LLMService generates text with the /chat/completions endpoint.
type LLMService struct {
	client
	model string
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates a new OpenAI chat service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if err := cfg.defaults(DefaultChatModel); err != nil {
		return nil, err
	}

	return &LLMService{
		client: client{
			http:    &http.Client{Timeout: cfg.Timeout},
			baseURL: cfg.BaseURL,
			apiKey:  cfg.APIKey,
		},
		model: cfg.Model,
	}, nil
}

// Generate sends prompt as a single user message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts provider.GenerateOptions) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}

	var chatResp chatCompletionResponse
	if err := s.post(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", helper.Kind(helper.ErrProvider, helper.NewError("openai chat", err))
	}

	if len(chatResp.Choices) == 0 {
		return "", helper.Kind(helper.ErrProvider, fmt.Errorf("openai chat: no response choices returned"))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}
