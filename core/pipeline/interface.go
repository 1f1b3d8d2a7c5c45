package pipeline

import (
	"fmt"

	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// ChunkFunc splits text into ordered passages.
type ChunkFunc func(text string) ([]string, error)

// KeywordFunc extracts up to topN weighted keywords from chunk texts.
type KeywordFunc func(chunks []string, topN int) []model.KeywordWeight

// EmbedFunc generates the embedding of a text.
type EmbedFunc func(text string) ([]float32, error)

// Pipeline turns document text into addressable chunks and lexical keywords.
type Pipeline struct {
	Chunker          ChunkFunc
	KeywordExtractor KeywordFunc
	TopN             int
}

// NewPipeline creates a pipeline with the frequency keyword extractor.
func NewPipeline(chunker ChunkFunc, topN int) *Pipeline {
	return &Pipeline{
		Chunker:          chunker,
		KeywordExtractor: ExtractKeywords,
		TopN:             topN,
	}
}

// DefaultPipeline creates the recursive chunking pipeline for a configuration.
func DefaultPipeline(config model.PipelineConfig) *Pipeline {
	return NewPipeline(RecursiveChunker(config.ChunkSize, config.ChunkOverlap), config.LexicalTopN)
}

// SetKeywordExtractor replaces the keyword extractor.
func (p *Pipeline) SetKeywordExtractor(extractor KeywordFunc) {
	p.KeywordExtractor = extractor
}

// ProcessingResult contains the chunks of a document and its lexical keywords.
type ProcessingResult struct {
	Chunks   []*model.Chunk
	Keywords []model.KeywordWeight
}

// Process splits text and assigns the chunk ids "{documentID}_{i}" in order.
func (p *Pipeline) Process(documentID string, text string) ([]*model.Chunk, error) {
	if documentID == "" {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("process text", fmt.Errorf("document id is required")))
	}

	passages, err := p.Chunker(text)
	if err != nil {
		return nil, helper.NewError("chunk text", err)
	}

	return model.NewChunks(documentID, passages), nil
}

// ProcessWithKeywords processes text and extracts the lexical keywords of its chunks.
func (p *Pipeline) ProcessWithKeywords(documentID string, text string) (*ProcessingResult, error) {
	chunks, err := p.Process(documentID, text)
	if err != nil {
		return nil, err
	}

	keywords := []model.KeywordWeight{}
	if p.KeywordExtractor != nil {
		keywords = p.KeywordExtractor(model.ChunkTexts(chunks), p.TopN)
	}

	return &ProcessingResult{
		Chunks:   chunks,
		Keywords: keywords,
	}, nil
}
