package model

import "fmt"

// PipelineConfig holds the constants of ingestion and retrieval.
type PipelineConfig struct {
	// Chunking
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// Summary and keywords
	SummaryPrefixLength   int     `json:"summary_prefix_length" yaml:"summary_prefix_length"`
	SummaryFallbackLength int     `json:"summary_fallback_length" yaml:"summary_fallback_length"`
	MaxKeywords           int     `json:"max_keywords" yaml:"max_keywords"`
	LexicalTopN           int     `json:"lexical_top_n" yaml:"lexical_top_n"`
	LLMKeywordWeight      int     `json:"llm_keyword_weight" yaml:"llm_keyword_weight"`
	SummaryTemperature    float64 `json:"summary_temperature" yaml:"summary_temperature"`

	// Answering
	TopK              int     `json:"top_k" yaml:"top_k"`
	SnippetLength     int     `json:"snippet_length" yaml:"snippet_length"`
	AnswerTemperature float64 `json:"answer_temperature" yaml:"answer_temperature"`
}

// DefaultPipelineConfig returns the default pipeline constants.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:             1000,
		ChunkOverlap:          120,
		SummaryPrefixLength:   8000,
		SummaryFallbackLength: 600,
		MaxKeywords:           12,
		LexicalTopN:           12,
		LLMKeywordWeight:      3,
		SummaryTemperature:    0.2,
		TopK:                  5,
		SnippetLength:         220,
		AnswerTemperature:     0.1,
	}
}

// Validate checks the chunking bounds.
func (c PipelineConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive, got %d", c.TopK)
	}
	return nil
}
