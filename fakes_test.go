package paperqa

import (
	"context"
	"errors"
	"sync"

	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

const testSummaryResponse = `{"summary": "A survey of graph neural networks.", "keywords": ["graph networks", "message passing", ""]}`

// scriptedGenerator answers every prompt with the same response.
type scriptedGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, opts provider.GenerateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

// failingEmbedder fails every call like an unreachable provider.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, helper.Kind(helper.ErrProvider, errors.New("embedding service unavailable"))
}

func (failingEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return nil, helper.Kind(helper.ErrProvider, errors.New("embedding service unavailable"))
}

func (failingEmbedder) Dimension() int {
	return 64
}

func fourPassages(text string) ([]string, error) {
	return []string{
		"Graph networks learn from passage structure.",
		"Message passing aggregates neighbor passage features.",
		"Attention weights each passage differently.",
		"Pooling turns every passage into one vector.",
	}, nil
}

func keywordWeight(keywords []*model.Keyword, keyword string) (int, bool) {
	for _, k := range keywords {
		if k.Keyword == keyword {
			return k.Weight, true
		}
	}
	return 0, false
}
