package rag

import (
	"context"

	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/model"
)

// scriptedGenerator returns a fixed response and records the prompts.
type scriptedGenerator struct {
	response string
	err      error
	prompts  []string
	options  []provider.GenerateOptions
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, opts provider.GenerateOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.options = append(g.options, opts)
	return g.response, g.err
}

type staticRetriever struct {
	hits []model.SearchHit
	err  error
	k    int
}

func (r *staticRetriever) Query(ctx context.Context, text string, k int) ([]model.SearchHit, error) {
	r.k = k
	if r.err != nil {
		return nil, r.err
	}
	if len(r.hits) > k {
		return r.hits[:k], nil
	}
	return r.hits, nil
}
