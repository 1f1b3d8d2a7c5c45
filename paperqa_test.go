package paperqa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/siherrmann/paperqa/core/index"
	"github.com/siherrmann/paperqa/core/pipeline"
	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/database"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	loadSql "github.com/siherrmann/paperqa/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 64

func initPapers(t *testing.T) *database.PapersDBHandler {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	db := helper.NewTestDatabase(dbConfig)
	t.Cleanup(func() { _ = db.Close() })

	err = loadSql.Init(db.Instance)
	require.NoError(t, err, "failed to initialize database")

	papers, err := database.NewPapersDBHandler(db, false)
	require.NoError(t, err, "failed to create papers handler")
	return papers
}

func initPaperQA(t *testing.T, embedder provider.Embedder, generator provider.Generator) *PaperQA {
	idx := index.NewIndex(embedder, index.NewMemoryStore(embedder.Dimension()))
	p, err := New(initPapers(t), idx, generator, model.DefaultPipelineConfig(), helper.NewLogger(io.Discard, "warn"))
	require.NoError(t, err, "failed to create paperqa")
	p.SetPipeline(pipeline.NewPipeline(fourPassages, p.Config.LexicalTopN))
	return p
}

func TestNew(t *testing.T) {
	t.Run("Missing components", func(t *testing.T) {
		_, err := New(nil, nil, nil, model.DefaultPipelineConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("Invalid pipeline config", func(t *testing.T) {
		config := model.DefaultPipelineConfig()
		config.ChunkOverlap = config.ChunkSize

		idx := index.NewIndex(provider.NewHashEmbedder(testDimension), index.NewMemoryStore(testDimension))
		_, err := New(initPapers(t), idx, &scriptedGenerator{}, config, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})

	t.Run("PaperQA with nil database handles Close gracefully", func(t *testing.T) {
		p := &PaperQA{}
		assert.NoError(t, p.Close())
	})
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("Ingest stores chunks, embeddings and merged keywords", func(t *testing.T) {
		p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{response: testSummaryResponse})

		manifest, err := p.Ingest(ctx, "gnn.txt", []byte("Graph neural networks and message passing."))
		require.NoError(t, err, "Expected Ingest to not return an error")
		assert.Equal(t, 4, manifest.ChunkCount)
		assert.Equal(t, "gnn.txt", manifest.FileName)
		assert.Equal(t, "A survey of graph neural networks.", manifest.Summary)
		assert.Equal(t, []string{"graph networks", "message passing"}, manifest.Keywords)

		count, err := p.Index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, count, "Expected one index record per chunk")

		hits, err := p.Index.Query(ctx, "graph passage", 10)
		require.NoError(t, err)
		indexedIDs := make([]string, len(hits))
		for i, hit := range hits {
			indexedIDs[i] = hit.ID
		}
		expectedIDs := []string{manifest.DocumentID + "_0", manifest.DocumentID + "_1", manifest.DocumentID + "_2", manifest.DocumentID + "_3"}
		assert.ElementsMatch(t, expectedIDs, indexedIDs, "Expected index ids to be exactly {document_id}_0..3")

		passages, err := fourPassages("")
		require.NoError(t, err)
		for i, passage := range passages {
			nearest, err := p.Index.Query(ctx, passage, 1)
			require.NoError(t, err)
			require.Len(t, nearest, 1)
			assert.Equal(t, expectedIDs[i], nearest[0].ID, "Expected passage %d to be stored under its sequence id", i)
			assert.Equal(t, passage, nearest[0].Text)
		}

		paper, err := p.Paper(ctx, manifest.PaperID)
		require.NoError(t, err)
		assert.Equal(t, "gnn.txt", paper.Title)
		assert.Equal(t, model.DefaultAuthor, paper.Author)
		assert.Equal(t, model.DefaultSource, paper.Source)
		assert.Equal(t, manifest.DocumentID, paper.EmbeddingID)

		require.Len(t, paper.Chunks, 4)
		for i, c := range paper.Chunks {
			assert.Equal(t, model.NewChunkID(manifest.DocumentID, i), c.ChunkID)
		}

		weight, ok := keywordWeight(paper.Keywords, "graph networks")
		assert.True(t, ok, "Expected language model keyword to be stored")
		assert.Equal(t, 3, weight)
		weight, ok = keywordWeight(paper.Keywords, "passage")
		assert.True(t, ok, "Expected lexical keyword to be stored")
		assert.Equal(t, 4, weight)
		_, ok = keywordWeight(paper.Keywords, "")
		assert.False(t, ok, "Expected empty keywords to be skipped")
	})

	t.Run("Unsupported file type", func(t *testing.T) {
		p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{response: testSummaryResponse})

		_, err := p.Ingest(ctx, "slides.pptx", []byte("content"))
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrUnsupportedInput)
	})

	t.Run("Whitespace document is rejected", func(t *testing.T) {
		p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{response: testSummaryResponse})

		_, err := p.Ingest(ctx, "empty.txt", []byte("  \n\t "))
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrUnsupportedInput)
	})

	t.Run("Embedding failure stores no paper", func(t *testing.T) {
		p := initPaperQA(t, failingEmbedder{}, &scriptedGenerator{response: testSummaryResponse})
		before, _, err := p.Papers.SelectPaperStats(ctx)
		require.NoError(t, err)

		_, err = p.Ingest(ctx, "gnn.txt", []byte("Graph neural networks."))
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrProvider)

		after, _, err := p.Papers.SelectPaperStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after, "Expected no paper after a failed ingest")
	})

	t.Run("Summary failure is a provider error", func(t *testing.T) {
		p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{err: errors.New("model overloaded")})

		_, err := p.Ingest(ctx, "gnn.txt", []byte("Graph neural networks."))
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrProvider)
	})

	t.Run("Unstructured summary falls back to raw text", func(t *testing.T) {
		p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{response: "This paper is about graphs."})

		manifest, err := p.Ingest(ctx, "gnn.md", []byte("# Graphs\n\nGraph neural networks."))
		require.NoError(t, err)
		assert.Equal(t, "This paper is about graphs.", manifest.Summary)
		assert.Empty(t, manifest.Keywords)
	})
}

func TestReembedPaper(t *testing.T) {
	ctx := context.Background()
	p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{response: testSummaryResponse})

	manifest, err := p.Ingest(ctx, "gnn.txt", []byte("Graph neural networks."))
	require.NoError(t, err)

	t.Run("Reembed restores deleted embeddings", func(t *testing.T) {
		require.NoError(t, p.Index.DeleteDocument(ctx, manifest.DocumentID))

		result, err := p.ReembedPaper(ctx, manifest.PaperID)
		require.NoError(t, err)
		assert.Equal(t, manifest.PaperID, result.PaperID)
		assert.Equal(t, 4, result.UpsertedCount)

		count, err := p.Index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})

	t.Run("Unknown paper", func(t *testing.T) {
		_, err := p.ReembedPaper(ctx, 987654321)
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})

	t.Run("No chunks to embed", func(t *testing.T) {
		_, err := p.EmbedExisting(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})
}

func TestQueryAndSearch(t *testing.T) {
	ctx := context.Background()
	generator := &scriptedGenerator{response: testSummaryResponse}
	p := initPaperQA(t, provider.NewHashEmbedder(testDimension), generator)

	_, err := p.Ingest(ctx, "gnn.txt", []byte("Graph neural networks."))
	require.NoError(t, err)

	t.Run("Search returns the nearest passage first", func(t *testing.T) {
		hits, err := p.Search(ctx, "attention weights each passage", 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "Attention weights each passage differently.", hits[0].Text)
		assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
	})

	t.Run("Empty search query", func(t *testing.T) {
		_, err := p.Search(ctx, " ", 5)
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})

	t.Run("Query answers with citations and counts chats", func(t *testing.T) {
		generator.response = "Message passing aggregates features [2]."

		answer, err := p.Query(ctx, "What does message passing do?", 0)
		require.NoError(t, err)
		assert.Equal(t, "Message passing aggregates features [2].", answer.Answer)
		assert.Len(t, answer.Citations, 4, "Expected all passages when k exceeds the index size")
		assert.Equal(t, 1, answer.Citations[0].Index)

		analytics, err := p.Analytics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, analytics.ChatCount)
	})

	t.Run("Empty question", func(t *testing.T) {
		_, err := p.Query(ctx, "", 5)
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})
}

func TestLibrary(t *testing.T) {
	ctx := context.Background()
	p := initPaperQA(t, provider.NewHashEmbedder(testDimension), &scriptedGenerator{response: testSummaryResponse})

	manifest, err := p.Ingest(ctx, "library.txt", []byte("Graph neural networks."))
	require.NoError(t, err)

	t.Run("Listing contains the new paper", func(t *testing.T) {
		papers, err := p.ListPapers(ctx, nil, 100)
		require.NoError(t, err)

		found := false
		for _, paper := range papers {
			if paper.ID == manifest.PaperID {
				found = true
				assert.Equal(t, "library.txt", paper.Title)
			}
		}
		assert.True(t, found, "Expected the ingested paper in the listing")
	})

	t.Run("Keyword totals and analytics", func(t *testing.T) {
		totals, err := p.KeywordTotals(ctx, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, totals)
		assert.LessOrEqual(t, len(totals), DefaultKeywordLimit)

		analytics, err := p.Analytics(ctx)
		require.NoError(t, err)
		require.NotNil(t, analytics.TopKeyword)
		assert.Equal(t, totals[0].Keyword, *analytics.TopKeyword)
		assert.Equal(t, analytics.TopKeyword, analytics.MostQueried)
		assert.NotNil(t, analytics.NewestPaper)
		assert.LessOrEqual(t, len(analytics.TopicChart), 5)
		assert.Equal(t, 4, analytics.EmbeddingsCount)

		stats, err := p.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, analytics.LibrarySize, stats.PapersUploaded)
		assert.Equal(t, 4, stats.EmbeddingsCreated)
		assert.NotEmpty(t, stats.Uptime)
	})

	t.Run("Lexical top keywords", func(t *testing.T) {
		keywords := p.TopKeywords([]string{"graph graph graph network"}, 1)
		assert.Equal(t, []model.KeywordWeight{{Keyword: "graph", Weight: 3}}, keywords)
	})

	t.Run("Memory store has no index type", func(t *testing.T) {
		err := p.ChangeIndexType(ctx, "hnsw", nil)
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})

	t.Run("Delete removes paper and embeddings", func(t *testing.T) {
		require.NoError(t, p.DeletePaper(ctx, manifest.PaperID))

		_, err := p.Paper(ctx, manifest.PaperID)
		assert.ErrorIs(t, err, helper.ErrNotFound)

		count, err := p.Index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		err = p.DeletePaper(ctx, manifest.PaperID)
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})
}

func TestNewPaperQA(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": testSummaryResponse}}},
		})
	}))
	defer server.Close()

	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	t.Setenv("EMBEDDING_PROVIDER", helper.ProviderHash)
	t.Setenv("GENERATION_PROVIDER", helper.ProviderOpenAI)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", server.URL)
	t.Setenv("VECTOR_STORE", helper.VectorStorePgvector)
	t.Setenv("EMBEDDING_DIM", "32")
	t.Setenv("LOG_LEVEL", "warn")

	config, err := helper.NewConfiguration("")
	require.NoError(t, err)

	t.Run("Valid call NewPaperQA", func(t *testing.T) {
		p, err := NewPaperQA(context.Background(), config)
		require.NoError(t, err, "Expected NewPaperQA to not return an error")
		defer p.Close()

		assert.NotNil(t, p.DB, "Expected paperqa to have a database instance")
		assert.NotNil(t, p.Papers)
		assert.IsType(t, &database.EmbeddingsDBHandler{}, p.Index.Store())

		manifest, err := p.Ingest(context.Background(), "setup.txt", []byte("Graph neural networks pass messages between nodes."))
		require.NoError(t, err)
		assert.Equal(t, "A survey of graph neural networks.", manifest.Summary)

		result, err := p.ReembedPaper(context.Background(), manifest.PaperID)
		require.NoError(t, err)
		assert.Equal(t, manifest.ChunkCount, result.UpsertedCount)

		require.NoError(t, p.DeletePaper(context.Background(), manifest.PaperID))
	})

	t.Run("Nil configuration", func(t *testing.T) {
		_, err := NewPaperQA(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestNewProviders(t *testing.T) {
	t.Run("Hash embedder uses the configured dimension", func(t *testing.T) {
		config := helper.DefaultConfiguration()
		config.EmbeddingProvider = helper.ProviderHash
		config.EmbeddingDim = 48

		embedder, err := NewEmbedder(config)
		require.NoError(t, err)
		assert.Equal(t, 48, embedder.Dimension())
	})

	t.Run("OpenAI requires an api key", func(t *testing.T) {
		config := helper.DefaultConfiguration()
		config.OpenAI.APIKey = ""

		_, err := NewEmbedder(config)
		assert.Error(t, err)
		_, err = NewGenerator(config)
		assert.Error(t, err)
	})

	t.Run("Ollama dimension follows the model", func(t *testing.T) {
		config := helper.DefaultConfiguration()
		config.EmbeddingProvider = helper.ProviderOllama
		config.Ollama.EmbeddingModel = "mxbai-embed-large"
		config.ProviderMaxRetries = 2

		embedder, err := NewEmbedder(config)
		require.NoError(t, err)
		assert.Equal(t, 1024, embedder.Dimension())

		config.GenerationProvider = helper.ProviderOllama
		generator, err := NewGenerator(config)
		require.NoError(t, err)
		assert.NotNil(t, generator)
	})

	t.Run("Memory vector store", func(t *testing.T) {
		config := helper.DefaultConfiguration()
		config.VectorStore = helper.VectorStoreMemory

		store, closeStore, err := NewVectorStore(context.Background(), config, nil, 8, nil)
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &index.MemoryStore{}, store)
	})
}
