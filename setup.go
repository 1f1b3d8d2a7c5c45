package paperqa

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/paperqa/core/index"
	"github.com/siherrmann/paperqa/core/pipeline"
	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/core/provider/ollama"
	"github.com/siherrmann/paperqa/core/provider/openai"
	"github.com/siherrmann/paperqa/database"
	"github.com/siherrmann/paperqa/database/milvus"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	loadSql "github.com/siherrmann/paperqa/sql"
)

// NewPaperQA connects to the database, creates the providers and the vector
// store named by config and returns a ready PaperQA.
func NewPaperQA(ctx context.Context, config *helper.Configuration) (*PaperQA, error) {
	if config == nil {
		return nil, helper.NewError("create paperqa", fmt.Errorf("configuration is nil"))
	}
	logger := helper.NewLogger(os.Stderr, config.LogLevel)

	// Initialize database
	db, err := helper.NewDatabase("paperqa", config.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := loadSql.Init(db.Instance); err != nil {
		db.Close()
		return nil, helper.Kind(helper.ErrStorage, helper.NewError("initialize database extensions", err))
	}

	papers, err := database.NewPapersDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.Kind(helper.ErrStorage, helper.NewError("create papers handler", err))
	}

	embedder, err := NewEmbedder(config)
	if err != nil {
		db.Close()
		return nil, err
	}

	generator, err := NewGenerator(config)
	if err != nil {
		db.Close()
		return nil, err
	}

	store, closeStore, err := NewVectorStore(ctx, config, db, embedder.Dimension(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	p, err := New(papers, index.NewIndex(embedder, store), generator, model.DefaultPipelineConfig(), logger)
	if err != nil {
		closeStore()
		db.Close()
		return nil, err
	}
	p.DB = db
	p.closers = append(p.closers, closeStore)

	if config.KeywordExtractor == helper.KeywordExtractorNER {
		extractor, err := pipeline.EntityKeywordExtractor(config.ModelDir)
		if err != nil {
			p.Close()
			return nil, helper.NewError("create keyword extractor", err)
		}
		p.Pipeline.SetKeywordExtractor(extractor)
	}

	logger.Info("Initialized paperqa",
		slog.String("embedding_provider", config.EmbeddingProvider),
		slog.String("generation_provider", config.GenerationProvider),
		slog.String("vector_store", config.VectorStore),
		slog.Int("embedding_dim", embedder.Dimension()),
	)

	return p, nil
}

// NewEmbedder creates the embedding provider named by config, wrapped with
// the configured retries.
func NewEmbedder(config *helper.Configuration) (provider.Embedder, error) {
	var embedder provider.Embedder

	switch config.EmbeddingProvider {
	case helper.ProviderOpenAI:
		service, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     config.OpenAI.APIKey,
			BaseURL:    config.OpenAI.BaseURL,
			Model:      config.OpenAI.EmbeddingModel,
			Timeout:    config.ProviderTimeout,
			Dimensions: config.EmbeddingDim,
		})
		if err != nil {
			return nil, helper.NewError("create openai embedder", err)
		}
		embedder = service
	case helper.ProviderOllama:
		embedder = ollama.NewEmbeddingService(ollama.Config{
			BaseURL: config.Ollama.BaseURL,
			Model:   config.Ollama.EmbeddingModel,
			Timeout: config.ProviderTimeout,
		})
	case helper.ProviderHugot:
		embed, err := pipeline.DefaultEmbedder(config.ModelDir)
		if err != nil {
			return nil, helper.Kind(helper.ErrProvider, helper.NewError("create hugot embedder", err))
		}
		embedder = provider.NewFuncEmbedder(embed, pipeline.DefaultEmbeddingDimension)
	case helper.ProviderHash:
		embedder = provider.NewHashEmbedder(config.EmbeddingDim)
	default:
		return nil, helper.NewError("create embedder", fmt.Errorf("unknown embedding provider %q", config.EmbeddingProvider))
	}

	return provider.WithEmbedRetry(embedder, config.ProviderMaxRetries), nil
}

// NewGenerator creates the generation provider named by config, wrapped
// with the configured retries.
func NewGenerator(config *helper.Configuration) (provider.Generator, error) {
	var generator provider.Generator

	switch config.GenerationProvider {
	case helper.ProviderOpenAI:
		service, err := openai.NewLLMService(openai.Config{
			APIKey:  config.OpenAI.APIKey,
			BaseURL: config.OpenAI.BaseURL,
			Model:   config.OpenAI.ChatModel,
			Timeout: config.ProviderTimeout,
		})
		if err != nil {
			return nil, helper.NewError("create openai generator", err)
		}
		generator = service
	case helper.ProviderOllama:
		generator = ollama.NewLLMService(ollama.Config{
			BaseURL: config.Ollama.BaseURL,
			Model:   config.Ollama.ChatModel,
			Timeout: config.ProviderTimeout,
		})
	default:
		return nil, helper.NewError("create generator", fmt.Errorf("unknown generation provider %q", config.GenerationProvider))
	}

	return provider.WithGenerateRetry(generator, config.ProviderMaxRetries), nil
}

// NewVectorStore creates the vector store named by config. The returned
// function releases the store.
func NewVectorStore(ctx context.Context, config *helper.Configuration, db *helper.Database, dimension int, logger *slog.Logger) (index.VectorStore, func() error, error) {
	noop := func() error { return nil }

	switch config.VectorStore {
	case helper.VectorStorePgvector:
		store, err := database.NewEmbeddingsDBHandler(db, dimension, false)
		if err != nil {
			return nil, noop, helper.Kind(helper.ErrStorage, helper.NewError("create embeddings handler", err))
		}
		return store, noop, nil
	case helper.VectorStoreMilvus:
		store, err := milvus.NewStore(ctx, config.Milvus.Address, config.Milvus.Collection, dimension, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, func() error { return store.Close(context.Background()) }, nil
	case helper.VectorStoreMemory:
		return index.NewMemoryStore(dimension), noop, nil
	default:
		return nil, noop, helper.NewError("create vector store", fmt.Errorf("unknown vector store %q", config.VectorStore))
	}
}
