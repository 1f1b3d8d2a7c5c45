package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

var (
	summaryPattern  = regexp.MustCompile(`(?s)"summary"\s*:\s*"(.+?)"`)
	keywordsPattern = regexp.MustCompile(`(?s)"keywords"\s*:\s*\[(.+?)\]`)
)

// SummaryResponse is a parsed generation response, either Structured or Unstructured.
type SummaryResponse interface {
	isSummaryResponse()
}

// Structured is a response with at least one recognizable field.
type Structured struct {
	Summary  string
	Keywords []string
}

// Unstructured is a response without any recognizable field.
type Unstructured struct {
	RawText string
}

func (Structured) isSummaryResponse()   {}
func (Unstructured) isSummaryResponse() {}

// ParseSummaryResponse reads the summary and keywords from a response that
// should be a JSON object but may be wrapped in prose, fenced or malformed.
func ParseSummaryResponse(raw string) SummaryResponse {
	if structured, ok := parseJSON(raw); ok {
		return structured
	}

	var structured Structured
	found := false
	if match := summaryPattern.FindStringSubmatch(raw); match != nil {
		structured.Summary = strings.TrimSpace(match[1])
		found = true
	}
	if match := keywordsPattern.FindStringSubmatch(raw); match != nil {
		structured.Keywords = splitKeywords(match[1])
		found = true
	}
	if !found {
		return Unstructured{RawText: raw}
	}
	return structured
}

// parseJSON decodes the outermost object of raw. Keywords may be a list or a
// comma separated string.
func parseJSON(raw string) (Structured, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Structured{}, false
	}

	var object struct {
		Summary  *string         `json:"summary"`
		Keywords json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &object); err != nil || object.Summary == nil {
		return Structured{}, false
	}

	structured := Structured{Summary: strings.TrimSpace(*object.Summary)}
	var list []string
	var joined string
	switch {
	case len(object.Keywords) == 0:
	case json.Unmarshal(object.Keywords, &list) == nil:
		structured.Keywords = cleanKeywords(list)
	case json.Unmarshal(object.Keywords, &joined) == nil:
		structured.Keywords = splitKeywords(joined)
	}
	return structured, true
}

func splitKeywords(raw string) []string {
	return cleanKeywords(strings.Split(raw, ","))
}

func cleanKeywords(raw []string) []string {
	keywords := []string{}
	for _, k := range raw {
		k = strings.TrimSpace(k)
		k = strings.Trim(k, `"`)
		k = strings.TrimSpace(strings.Trim(k, `'`))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// Summarizer generates a summary and keywords for a document.
type Summarizer struct {
	generator      provider.Generator
	prefixLength   int
	fallbackLength int
	maxKeywords    int
	temperature    float64
}

// NewSummarizer creates a summarizer with the limits of config.
func NewSummarizer(generator provider.Generator, config model.PipelineConfig) *Summarizer {
	return &Summarizer{
		generator:      generator,
		prefixLength:   config.SummaryPrefixLength,
		fallbackLength: config.SummaryFallbackLength,
		maxKeywords:    config.MaxKeywords,
		temperature:    config.SummaryTemperature,
	}
}

// Summarize sends a prefix of text to the generator. A response without
// recognizable fields becomes a summary made of its first characters and no
// keywords, only a failed generation call is an error.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*model.SummaryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("summarize: text is empty"))
	}

	prompt := SummaryPrompt(truncate(text, s.prefixLength), s.maxKeywords)
	raw, err := s.generator.Generate(ctx, prompt, provider.GenerateOptions{Temperature: s.temperature})
	if err != nil {
		return nil, helper.Kind(helper.ErrProvider, helper.NewError("generate summary", err))
	}

	return s.result(ParseSummaryResponse(raw), raw), nil
}

// result builds the summary result. The first characters of raw stand in
// for a missing summary.
func (s *Summarizer) result(response SummaryResponse, raw string) *model.SummaryResult {
	fallback := truncate(strings.TrimSpace(raw), s.fallbackLength)

	switch r := response.(type) {
	case Structured:
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		if len(keywords) > s.maxKeywords {
			keywords = keywords[:s.maxKeywords]
		}
		summary := r.Summary
		if summary == "" {
			summary = fallback
		}
		return &model.SummaryResult{Summary: summary, Keywords: keywords}
	case Unstructured:
		return &model.SummaryResult{Summary: truncate(strings.TrimSpace(r.RawText), s.fallbackLength), Keywords: []string{}}
	default:
		return &model.SummaryResult{Summary: fallback, Keywords: []string{}}
	}
}
