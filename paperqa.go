package paperqa

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/paperqa/core/extract"
	"github.com/siherrmann/paperqa/core/index"
	"github.com/siherrmann/paperqa/core/pipeline"
	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/core/rag"
	"github.com/siherrmann/paperqa/database"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"golang.org/x/sync/errgroup"
)

// Limits used by the analytics views.
const (
	DefaultKeywordLimit = 25
	chartLimit          = 5
)

// PaperQA ingests papers and answers questions about them.
type PaperQA struct {
	DB         *helper.Database
	Papers     database.PapersDBHandlerFunctions
	Index      *index.Index
	Pipeline   *pipeline.Pipeline
	Summarizer *rag.Summarizer
	Answerer   *rag.AnswerSynthesizer
	Config     model.PipelineConfig

	startedAt time.Time
	chats     atomic.Int64
	closers   []func() error
	log       *slog.Logger
}

// New creates a PaperQA from explicit components.
func New(papers database.PapersDBHandlerFunctions, idx *index.Index, generator provider.Generator, config model.PipelineConfig, logger *slog.Logger) (*PaperQA, error) {
	if papers == nil || idx == nil || generator == nil {
		return nil, helper.NewError("create paperqa", fmt.Errorf("paper store, index and generator are required"))
	}
	if err := config.Validate(); err != nil {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("validate pipeline config", err))
	}
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, "info")
	}

	return &PaperQA{
		Papers:     papers,
		Index:      idx,
		Pipeline:   pipeline.DefaultPipeline(config),
		Summarizer: rag.NewSummarizer(generator, config),
		Answerer:   rag.NewAnswerSynthesizer(idx, generator, config),
		Config:     config,
		startedAt:  time.Now(),
		log:        logger,
	}, nil
}

// Close releases the database connection and the vector store.
func (p *PaperQA) Close() error {
	var firstErr error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.closers = nil

	if p.DB != nil && p.DB.Instance != nil {
		if err := p.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SetPipeline replaces the chunking and keyword pipeline.
func (p *PaperQA) SetPipeline(pipeline *pipeline.Pipeline) {
	p.Pipeline = pipeline
}

// Ingest extracts, chunks, embeds and summarizes a document and stores it
// as a new paper. Embedding and summarizing run concurrently, the paper is
// only written after both succeeded.
func (p *PaperQA) Ingest(ctx context.Context, fileName string, data []byte) (*model.IngestManifest, error) {
	if !extract.IsSupported(fileName) {
		return nil, helper.Kind(helper.ErrUnsupportedInput, fmt.Errorf("unsupported file type %q", fileName))
	}

	text, err := extract.Text(fileName, data)
	if err != nil {
		return nil, helper.NewError("extract text", err)
	}

	documentID := uuid.NewString()
	processed, err := p.Pipeline.ProcessWithKeywords(documentID, text)
	if err != nil {
		return nil, helper.NewError("process text", err)
	}

	p.log.Info("Processed document into chunks", slog.String("document_id", documentID), slog.String("file_name", fileName), slog.Int("num_chunks", len(processed.Chunks)))

	var summary *model.SummaryResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Index.UpsertChunks(gctx, processed.Chunks)
	})
	g.Go(func() error {
		var err error
		summary, err = p.Summarizer.Summarize(gctx, text)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, helper.NewError("ingest document", err)
	}

	paper := model.NewPaper(fileName, documentID, summary.Summary)
	paper.AddChunks(processed.Chunks)
	paper.AddKeywords(model.WeightedKeywords(summary.Keywords, p.Config.LLMKeywordWeight))
	paper.AddKeywords(processed.Keywords)

	if err := p.Papers.InsertPaper(ctx, paper); err != nil {
		return nil, storageError("insert paper", err)
	}

	p.log.Info("Ingested paper", slog.Int64("paper_id", paper.ID), slog.String("document_id", documentID), slog.Int("num_keywords", len(paper.Keywords)))

	return &model.IngestManifest{
		DocumentID: documentID,
		PaperID:    paper.ID,
		FileName:   fileName,
		ChunkCount: len(processed.Chunks),
		Summary:    summary.Summary,
		Keywords:   summary.Keywords,
	}, nil
}

// IngestFile reads a file from disk and ingests it.
func (p *PaperQA) IngestFile(ctx context.Context, path string) (*model.IngestManifest, error) {
	doc, err := model.NewDocumentFromFile(path)
	if err != nil {
		return nil, helper.NewError("read document", err)
	}
	return p.Ingest(ctx, doc.FileName, doc.Data)
}

// EmbedExisting upserts already chunked texts under their chunk ids.
func (p *PaperQA) EmbedExisting(ctx context.Context, chunks []*model.Chunk) (*model.EmbedResult, error) {
	if len(chunks) == 0 {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("no chunks to embed"))
	}
	if err := p.Index.UpsertChunks(ctx, chunks); err != nil {
		return nil, helper.NewError("embed chunks", err)
	}
	return &model.EmbedResult{UpsertedCount: len(chunks)}, nil
}

// ReembedPaper rebuilds the embeddings of a stored paper from its chunks.
func (p *PaperQA) ReembedPaper(ctx context.Context, paperID int64) (*model.EmbedResult, error) {
	paper, err := p.Papers.SelectPaper(ctx, paperID)
	if err != nil {
		return nil, storageError("select paper", err)
	}

	paperChunks, err := p.Papers.SelectPaperChunks(ctx, paper.ID)
	if err != nil {
		return nil, storageError("select paper chunks", err)
	}

	chunks := make([]*model.Chunk, len(paperChunks))
	for i, c := range paperChunks {
		chunks[i] = &model.Chunk{ChunkID: c.ChunkID, DocumentID: paper.EmbeddingID, SequenceIndex: i, Text: c.Text}
	}

	result, err := p.EmbedExisting(ctx, chunks)
	if err != nil {
		return nil, err
	}
	result.PaperID = paper.ID

	p.log.Info("Rebuilt embeddings", slog.Int64("paper_id", paper.ID), slog.Int("num_chunks", len(chunks)))
	return result, nil
}

// Query answers a question from the k nearest passages. A k of 0 uses the
// configured default.
func (p *PaperQA) Query(ctx context.Context, question string, k int) (*model.Answer, error) {
	if k == 0 {
		k = p.Config.TopK
	}
	answer, err := p.Answerer.Answer(ctx, question, k)
	if err != nil {
		return nil, err
	}
	p.chats.Add(1)
	return answer, nil
}

// Search returns the k nearest passages to query.
func (p *PaperQA) Search(ctx context.Context, query string, k int) ([]model.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("search: query is empty"))
	}
	if k == 0 {
		k = p.Config.TopK
	}
	if k < 0 {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("search: k must be positive, got %d", k))
	}
	return p.Index.Query(ctx, query, k)
}

// TopKeywords runs the lexical keyword extractor over chunk texts.
func (p *PaperQA) TopKeywords(chunks []string, topN int) []model.KeywordWeight {
	return pipeline.ExtractKeywords(chunks, topN)
}

// KeywordTotals sums the keyword weights over all papers, heaviest first.
func (p *PaperQA) KeywordTotals(ctx context.Context, limit int) ([]model.KeywordWeight, error) {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	keywords, err := p.Papers.SelectKeywordTotals(ctx, limit)
	if err != nil {
		return nil, storageError("select keyword totals", err)
	}
	return keywords, nil
}

// ListPapers lists papers newest first, starting after lastCreatedAt if set.
func (p *PaperQA) ListPapers(ctx context.Context, lastCreatedAt *time.Time, limit int) ([]*model.PaperListItem, error) {
	papers, err := p.Papers.SelectAllPapers(ctx, lastCreatedAt, limit)
	if err != nil {
		return nil, storageError("select papers", err)
	}
	return papers, nil
}

// Paper returns a paper with its chunks and keywords.
func (p *PaperQA) Paper(ctx context.Context, paperID int64) (*model.Paper, error) {
	paper, err := p.Papers.SelectPaper(ctx, paperID)
	if err != nil {
		return nil, storageError("select paper", err)
	}

	paper.Chunks, err = p.Papers.SelectPaperChunks(ctx, paperID)
	if err != nil {
		return nil, storageError("select paper chunks", err)
	}
	paper.Keywords, err = p.Papers.SelectPaperKeywords(ctx, paperID)
	if err != nil {
		return nil, storageError("select paper keywords", err)
	}
	return paper, nil
}

// DeletePaper deletes a paper with its chunks, keywords and embeddings.
func (p *PaperQA) DeletePaper(ctx context.Context, paperID int64) error {
	documentID, err := p.Papers.DeletePaper(ctx, paperID)
	if err != nil {
		return storageError("delete paper", err)
	}

	if err := p.Index.DeleteDocument(ctx, documentID); err != nil {
		return helper.NewError("delete embeddings", err)
	}

	p.log.Info("Deleted paper", slog.Int64("paper_id", paperID), slog.String("document_id", documentID))
	return nil
}

// Analytics summarizes the library for dashboards.
func (p *PaperQA) Analytics(ctx context.Context) (*model.Analytics, error) {
	count, newest, err := p.Papers.SelectPaperStats(ctx)
	if err != nil {
		return nil, storageError("select paper stats", err)
	}

	topics, err := p.Papers.SelectKeywordTotals(ctx, chartLimit)
	if err != nil {
		return nil, storageError("select keyword totals", err)
	}

	sources, err := p.Papers.SelectSourceCounts(ctx, chartLimit)
	if err != nil {
		return nil, storageError("select source counts", err)
	}

	embeddings, err := p.Index.Count(ctx)
	if err != nil {
		return nil, err
	}

	analytics := &model.Analytics{
		LibrarySize:     count,
		EmbeddingsCount: embeddings,
		ChatCount:       int(p.chats.Load()),
		TopicChart:      make([]model.ChartEntry, 0, len(topics)),
		SourceChart:     sources,
	}
	if analytics.SourceChart == nil {
		analytics.SourceChart = []model.ChartEntry{}
	}
	for _, topic := range topics {
		analytics.TopicChart = append(analytics.TopicChart, model.ChartEntry{Label: topic.Keyword, Value: topic.Weight})
	}
	if len(topics) > 0 {
		top := topics[0].Keyword
		analytics.TopKeyword = &top
		analytics.MostQueried = &top
	}
	if newest != nil {
		label := model.MonthLabel(*newest)
		analytics.NewestPaper = &label
		analytics.LastImport = &label
	}

	return analytics, nil
}

// Stats returns the library counters and the process uptime.
func (p *PaperQA) Stats(ctx context.Context) (*model.Stats, error) {
	count, _, err := p.Papers.SelectPaperStats(ctx)
	if err != nil {
		return nil, storageError("select paper stats", err)
	}

	embeddings, err := p.Index.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &model.Stats{
		PapersUploaded:    count,
		EmbeddingsCreated: embeddings,
		Uptime:            model.FormatUptime(time.Since(p.startedAt)),
	}, nil
}

// indexChanger is implemented by vector stores with a configurable index.
type indexChanger interface {
	ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat.
func (p *PaperQA) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	changer, ok := p.Index.Store().(indexChanger)
	if !ok {
		return helper.Kind(helper.ErrPrecondition, fmt.Errorf("vector store does not support changing the index type"))
	}
	return changer.ChangeIndexType(ctx, indexType, params)
}

// storageError marks unclassified relational store errors as storage failures.
func storageError(operation string, err error) error {
	err = helper.NewError(operation, err)
	if helper.KindOf(err) != nil {
		return err
	}
	return helper.Kind(helper.ErrStorage, err)
}
