// Package ollama provides embedding and generation using a local Ollama server.
package ollama

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
	DefaultBaseURL        = "http://localhost:11434"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultChatModel      = "llama3.2"
	DefaultTimeout        = 120 * time.Second
	DefaultDimensions     = 768
)

var modelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// Config holds configuration for the Ollama services.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding or chat model.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

func (c *Config) defaults(model string) {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

type client struct {
	http    *http.Client
	baseURL string
}

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

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &provider.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: "failed to read response"}
		}
		return &provider.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// EmbeddingService generates embeddings with the /api/embeddings endpoint.
type EmbeddingService struct {
	client
	model      string
	dimensions int
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	cfg.defaults(DefaultEmbeddingModel)
	if cfg.Dimensions == 0 {
		var ok bool
		cfg.Dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			cfg.Dimensions = DefaultDimensions
		}
	}

	return &EmbeddingService{
		client: client{
			http:    &http.Client{Timeout: cfg.Timeout},
			baseURL: cfg.BaseURL,
		},
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// EmbedOne generates a vector embedding for the given text.
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	var embedResp embedResponse
	err := s.post(ctx, "/api/embeddings", embedRequest{Model: s.model, Prompt: text}, &embedResp)
	if err != nil {
		return nil, helper.Kind(helper.ErrProvider, helper.NewError("ollama embeddings", err))
	}
	if len(embedResp.Embedding) != s.dimensions {
		return nil, helper.Kind(helper.ErrProvider, fmt.Errorf("ollama embeddings: got dimension %d, expected %d", len(embedResp.Embedding), s.dimensions))
	}

	embedding := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Embed generates embeddings one text at a time since the endpoint has no batch mode.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.EmbedOne(ctx, text)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embed text %d", i), err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimension returns the embedding vector size.
func (s *EmbeddingService) Dimension() int {
	return s.dimensions
}

// LLMService generates text with the /api/generate endpoint.
type LLMService struct {
	client
	model string
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewLLMService creates a new Ollama generation service.
func NewLLMService(cfg Config) *LLMService {
	cfg.defaults(DefaultChatModel)

	return &LLMService{
		client: client{
			http:    &http.Client{Timeout: cfg.Timeout},
			baseURL: cfg.BaseURL,
		},
		model: cfg.Model,
	}
}

// Generate produces a non streamed completion of prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts provider.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}

	var genResp generateResponse
	if err := s.post(ctx, "/api/generate", reqBody, &genResp); err != nil {
		return "", helper.Kind(helper.ErrProvider, helper.NewError("ollama generate", err))
	}
	return genResp.Response, nil
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}
