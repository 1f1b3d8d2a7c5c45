// Package provider defines the embedding and generation capabilities the
// pipeline depends on.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/siherrmann/paperqa/helper"
)

// Embedder produces fixed dimension embedding vectors.
type Embedder interface {
	// Embed returns one vector per text in the order of texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedOne returns the vector of a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the vector size.
	Dimension() int
}

// Generator is a single turn text generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions configures a generation request.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// StatusError is returned by HTTP providers for non successful responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// FuncEmbedder adapts a single text embedding function to an Embedder.
type FuncEmbedder struct {
	embed     func(text string) ([]float32, error)
	dimension int
}

// NewFuncEmbedder creates an Embedder from embed, which must produce vectors
// of the given dimension.
func NewFuncEmbedder(embed func(text string) ([]float32, error), dimension int) *FuncEmbedder {
	return &FuncEmbedder{embed: embed, dimension: dimension}
}

// Embed embeds texts one after another.
func (e *FuncEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vector, err := e.EmbedOne(ctx, text)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embed text %d", i), err)
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// EmbedOne embeds a single text.
func (e *FuncEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embed(text)
	if err != nil {
		return nil, helper.Kind(helper.ErrProvider, err)
	}
	if len(vector) != e.dimension {
		return nil, helper.Kind(helper.ErrProvider, fmt.Errorf("embedding has dimension %d, expected %d", len(vector), e.dimension))
	}
	return vector, nil
}

// Dimension returns the vector size.
func (e *FuncEmbedder) Dimension() int {
	return e.dimension
}
