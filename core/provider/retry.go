package provider

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/siherrmann/paperqa/helper"
)

// Retry runs op and retries it up to maxRetries times with exponential
// backoff. Client errors other than 429 are not retried. Zero retries runs op
// exactly once. The returned error is marked as a provider failure.
func Retry(ctx context.Context, maxRetries int, op func() error) error {
	if maxRetries <= 0 {
		return helper.Kind(helper.ErrProvider, op())
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)), ctx)
	err := backoff.Retry(func() error {
		err := op()
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	return helper.Kind(helper.ErrProvider, err)
}

// RetryingEmbedder retries failed embedding requests.
type RetryingEmbedder struct {
	Embedder
	maxRetries int
}

// WithEmbedRetry wraps embedder so every request is retried up to maxRetries times.
func WithEmbedRetry(embedder Embedder, maxRetries int) Embedder {
	if maxRetries <= 0 {
		return embedder
	}
	return &RetryingEmbedder{Embedder: embedder, maxRetries: maxRetries}
}

func (e *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := Retry(ctx, e.maxRetries, func() error {
		var err error
		vectors, err = e.Embedder.Embed(ctx, texts)
		return err
	})
	return vectors, err
}

func (e *RetryingEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := Retry(ctx, e.maxRetries, func() error {
		var err error
		vector, err = e.Embedder.EmbedOne(ctx, text)
		return err
	})
	return vector, err
}

// RetryingGenerator retries failed generation requests.
type RetryingGenerator struct {
	Generator
	maxRetries int
}

// WithGenerateRetry wraps generator so every request is retried up to maxRetries times.
func WithGenerateRetry(generator Generator, maxRetries int) Generator {
	if maxRetries <= 0 {
		return generator
	}
	return &RetryingGenerator{Generator: generator, maxRetries: maxRetries}
}

func (g *RetryingGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var text string
	err := Retry(ctx, g.maxRetries, func() error {
		var err error
		text, err = g.Generator.Generate(ctx, prompt, opts)
		return err
	})
	return text, err
}
