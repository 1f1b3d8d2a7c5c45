package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/siherrmann/paperqa/core/pipeline"
	"github.com/siherrmann/paperqa/model"
)

const (
	defaultK            = 5
	defaultKeywordLimit = 25
	defaultTopN         = 12
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested papers"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages to use as context (default 5)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Citations []model.Citation `json:"citations"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar passages for"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []model.SearchHit `json:"results"`
	Count   int               `json:"count"`
}

// KeywordsInput is the input schema for the keyword_totals tool.
type KeywordsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of keywords to return (default 25)"`
}

// KeywordsOutput is the output schema for the keyword_totals and top_keywords tools.
type KeywordsOutput struct {
	Keywords []model.KeywordWeight `json:"keywords"`
}

// TopKeywordsInput is the input schema for the top_keywords tool.
type TopKeywordsInput struct {
	Texts []string `json:"texts" jsonschema:"the passages to rank the words of"`
	TopN  int      `json:"top_n,omitempty" jsonschema:"maximum number of keywords to return (default 12)"`
}

// PapersInput is the input schema for the list_papers tool.
type PapersInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of papers to return, newest first (default all)"`
}

// PaperOutput is a paper of the list_papers tool.
type PaperOutput struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at" jsonschema:"creation time in RFC 3339"`
}

// PapersOutput is the output schema for the list_papers tool.
type PapersOutput struct {
	Papers []PaperOutput `json:"papers"`
	Count  int           `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the ingested papers with numbered citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages most similar to a text",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_totals",
		Description: "List the heaviest keywords over all papers",
	}, s.handleKeywordTotals)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "top_keywords",
		Description: "Rank the most frequent words of the given passages, ignoring stop words",
	}, s.handleTopKeywords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_papers",
		Description: "List the ingested papers, newest first",
	}, s.handleListPapers)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultK
	}

	answer, err := s.service.Query(ctx, input.Question, k)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Answer: answer.Answer, Citations: answer.Citations}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultK
	}

	hits, err := s.service.Search(ctx, input.Query, k)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{Results: hits, Count: len(hits)}, nil
}

func (s *Server) handleKeywordTotals(ctx context.Context, _ *mcp.CallToolRequest, input KeywordsInput) (*mcp.CallToolResult, KeywordsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultKeywordLimit
	}

	keywords, err := s.service.KeywordTotals(ctx, limit)
	if err != nil {
		return nil, KeywordsOutput{}, err
	}

	return nil, KeywordsOutput{Keywords: keywords}, nil
}

func (s *Server) handleTopKeywords(_ context.Context, _ *mcp.CallToolRequest, input TopKeywordsInput) (*mcp.CallToolResult, KeywordsOutput, error) {
	topN := input.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	return nil, KeywordsOutput{Keywords: pipeline.ExtractKeywords(input.Texts, topN)}, nil
}

func (s *Server) handleListPapers(ctx context.Context, _ *mcp.CallToolRequest, input PapersInput) (*mcp.CallToolResult, PapersOutput, error) {
	papers, err := s.service.ListPapers(ctx, nil, input.Limit)
	if err != nil {
		return nil, PapersOutput{}, err
	}

	output := PapersOutput{
		Papers: make([]PaperOutput, len(papers)),
		Count:  len(papers),
	}
	for i, p := range papers {
		output.Papers[i] = PaperOutput{
			ID:        p.ID,
			Title:     p.Title,
			Source:    p.Source,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		}
	}

	return nil, output, nil
}
