package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// Retriever returns up to k passages nearest to text.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]model.SearchHit, error)
}

// AnswerSynthesizer answers questions from retrieved passages.
type AnswerSynthesizer struct {
	retriever     Retriever
	generator     provider.Generator
	snippetLength int
	temperature   float64
}

// NewAnswerSynthesizer creates an answer synthesizer with the limits of config.
func NewAnswerSynthesizer(retriever Retriever, generator provider.Generator, config model.PipelineConfig) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		retriever:     retriever,
		generator:     generator,
		snippetLength: config.SnippetLength,
		temperature:   config.AnswerTemperature,
	}
}

// Answer retrieves k passages, asks the generator to answer from them only
// and cites every passage that was offered as context, in retrieval order.
// With no passages the generator is still asked and is expected to say it
// cannot find the answer.
func (a *AnswerSynthesizer) Answer(ctx context.Context, question string, k int) (*model.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("answer: question is empty"))
	}
	if k <= 0 {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("answer: k must be positive, got %d", k))
	}

	hits, err := a.retriever.Query(ctx, question, k)
	if err != nil {
		return nil, helper.NewError("retrieve passages", err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	text, err := a.generator.Generate(ctx, AnswerPrompt(question, hits), provider.GenerateOptions{Temperature: a.temperature})
	if err != nil {
		return nil, helper.Kind(helper.ErrProvider, helper.NewError("generate answer", err))
	}

	return &model.Answer{
		Answer:    text,
		Citations: Citations(hits, a.snippetLength),
	}, nil
}

// Citations maps the 1-based context labels to the chunk ids and snippets.
func Citations(hits []model.SearchHit, snippetLength int) []model.Citation {
	citations := make([]model.Citation, len(hits))
	for i, hit := range hits {
		citations[i] = model.Citation{
			ID:      hit.ID,
			Index:   i + 1,
			Snippet: truncate(hit.Text, snippetLength),
		}
	}
	return citations
}
