package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaper(title string, chunks int, keywords ...model.KeywordWeight) *model.Paper {
	documentID := uuid.NewString()
	passages := make([]string, chunks)
	for i := range passages {
		passages[i] = fmt.Sprintf("passage %d of %s", i, title)
	}

	paper := model.NewPaper(title, documentID, "Summary of "+title)
	paper.AddChunks(model.NewChunks(documentID, passages))
	paper.AddKeywords(keywords)
	return paper
}

func TestNewPapersDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewPapersDBHandler", func(t *testing.T) {
		papersDbHandler, err := NewPapersDBHandler(database, true)
		assert.NoError(t, err, "Expected NewPapersDBHandler to not return an error")
		require.NotNil(t, papersDbHandler, "Expected NewPapersDBHandler to return a non-nil instance")
		require.NotNil(t, papersDbHandler.db.Instance, "Expected a non-nil database connection instance")
	})

	t.Run("Invalid call NewPapersDBHandler with nil database", func(t *testing.T) {
		_, err := NewPapersDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating PapersDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestPapersInsertAndSelect(t *testing.T) {
	database := initDB(t)
	papersDbHandler, err := NewPapersDBHandler(database, true)
	require.NoError(t, err, "Expected NewPapersDBHandler to not return an error")

	ctx := context.Background()

	t.Run("Insert paper with chunks and keywords", func(t *testing.T) {
		paper := newTestPaper("attention.pdf", 4,
			model.KeywordWeight{Keyword: "attention", Weight: 3},
			model.KeywordWeight{Keyword: "attention", Weight: 5},
			model.KeywordWeight{Keyword: "encoder", Weight: 2},
		)
		paper.Metadata = model.Metadata{"pages": 12}

		err := papersDbHandler.InsertPaper(ctx, paper)
		require.NoError(t, err, "Expected InsertPaper to not return an error")
		assert.NotZero(t, paper.ID, "Expected inserted paper to have an ID")
		assert.WithinDuration(t, time.Now(), paper.CreatedAt, 5*time.Second, "Expected CreatedAt to be set")
		assert.Equal(t, paper.ID, paper.Chunks[0].PaperID, "Expected chunks to reference the paper")

		selected, err := papersDbHandler.SelectPaper(ctx, paper.ID)
		require.NoError(t, err, "Expected SelectPaper to not return an error")
		assert.Equal(t, "attention.pdf", selected.Title)
		assert.Equal(t, "Unknown", selected.Author)
		assert.Equal(t, "PDF Upload", selected.Source)
		assert.Equal(t, paper.EmbeddingID, selected.EmbeddingID)
		assert.Equal(t, float64(12), selected.Metadata["pages"])

		chunks, err := papersDbHandler.SelectPaperChunks(ctx, paper.ID)
		require.NoError(t, err, "Expected SelectPaperChunks to not return an error")
		require.Len(t, chunks, 4)
		for i, c := range chunks {
			assert.Equal(t, model.NewChunkID(paper.EmbeddingID, i), c.ChunkID, "Expected chunks in sequence order")
		}

		keywords, err := papersDbHandler.SelectPaperKeywords(ctx, paper.ID)
		require.NoError(t, err, "Expected SelectPaperKeywords to not return an error")
		require.Len(t, keywords, 3, "Expected duplicate keywords to be kept")
		assert.Equal(t, 5, keywords[1].Weight)
	})

	t.Run("Insert paper without children", func(t *testing.T) {
		paper := newTestPaper("empty.pdf", 0)

		err := papersDbHandler.InsertPaper(ctx, paper)
		require.NoError(t, err)

		chunks, err := papersDbHandler.SelectPaperChunks(ctx, paper.ID)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Failed insert leaves no paper behind", func(t *testing.T) {
		countBefore, _, err := papersDbHandler.SelectPaperStats(ctx)
		require.NoError(t, err)

		paper := newTestPaper("broken.pdf", 2)
		// A NUL byte is rejected by postgres text columns and fails the chunk insert.
		paper.Chunks[1].Text = "broken \x00 text"

		err = papersDbHandler.InsertPaper(ctx, paper)
		require.Error(t, err, "Expected InsertPaper to fail")

		countAfter, _, err := papersDbHandler.SelectPaperStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, countBefore, countAfter, "Expected no partial paper to be visible")
	})

	t.Run("Select missing paper", func(t *testing.T) {
		_, err := papersDbHandler.SelectPaper(ctx, 987654)
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrNotFound)
	})
}

func TestPapersListAndDelete(t *testing.T) {
	database := initDB(t)
	papersDbHandler, err := NewPapersDBHandler(database, true)
	require.NoError(t, err)

	ctx := context.Background()
	var inserted []*model.Paper
	for i := 0; i < 3; i++ {
		paper := newTestPaper(fmt.Sprintf("list-%d.pdf", i), 1)
		require.NoError(t, papersDbHandler.InsertPaper(ctx, paper))
		inserted = append(inserted, paper)
		time.Sleep(10 * time.Millisecond)
	}

	t.Run("List papers newest first", func(t *testing.T) {
		papers, err := papersDbHandler.SelectAllPapers(ctx, nil, 2)
		require.NoError(t, err)
		require.Len(t, papers, 2)
		assert.True(t, !papers[0].CreatedAt.Before(papers[1].CreatedAt), "Expected newest paper first")

		next, err := papersDbHandler.SelectAllPapers(ctx, &papers[1].CreatedAt, 0)
		require.NoError(t, err)
		for _, p := range next {
			assert.True(t, p.CreatedAt.Before(papers[1].CreatedAt), "Expected next page to be older")
		}
	})

	t.Run("Delete paper cascades to chunks", func(t *testing.T) {
		target := inserted[0]

		embeddingID, err := papersDbHandler.DeletePaper(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, target.EmbeddingID, embeddingID)

		chunks, err := papersDbHandler.SelectPaperChunks(ctx, target.ID)
		require.NoError(t, err)
		assert.Empty(t, chunks, "Expected chunks to be deleted with the paper")

		_, err = papersDbHandler.DeletePaper(ctx, target.ID)
		assert.ErrorIs(t, err, helper.ErrNotFound, "Expected second delete to report not found")
	})
}

func TestPapersAnalytics(t *testing.T) {
	database := initDB(t)
	papersDbHandler, err := NewPapersDBHandler(database, true)
	require.NoError(t, err)

	ctx := context.Background()
	// The container is shared between tests, compare against a baseline.
	baseline, err := papersDbHandler.SelectKeywordTotals(ctx, 0)
	require.NoError(t, err)
	baselineTotals := map[string]int{}
	for _, k := range baseline {
		baselineTotals[k.Keyword] = k.Weight
	}

	require.NoError(t, papersDbHandler.InsertPaper(ctx, newTestPaper("a.pdf", 1,
		model.KeywordWeight{Keyword: "zeta-analytics", Weight: 3},
		model.KeywordWeight{Keyword: "eta-analytics", Weight: 1},
	)))
	require.NoError(t, papersDbHandler.InsertPaper(ctx, newTestPaper("b.pdf", 1,
		model.KeywordWeight{Keyword: "zeta-analytics", Weight: 4},
	)))

	t.Run("Keyword totals sum weights", func(t *testing.T) {
		totals, err := papersDbHandler.SelectKeywordTotals(ctx, 0)
		require.NoError(t, err)

		byKeyword := map[string]int{}
		for _, k := range totals {
			byKeyword[k.Keyword] = k.Weight
		}
		assert.Equal(t, baselineTotals["zeta-analytics"]+7, byKeyword["zeta-analytics"])
		assert.Equal(t, baselineTotals["eta-analytics"]+1, byKeyword["eta-analytics"])

		for i := 1; i < len(totals); i++ {
			assert.GreaterOrEqual(t, totals[i-1].Weight, totals[i].Weight, "Expected descending totals")
		}
	})

	t.Run("Keyword totals respect the limit", func(t *testing.T) {
		totals, err := papersDbHandler.SelectKeywordTotals(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, totals, 1)
	})

	t.Run("Source counts and stats", func(t *testing.T) {
		sources, err := papersDbHandler.SelectSourceCounts(ctx, 5)
		require.NoError(t, err)
		require.NotEmpty(t, sources)
		assert.Equal(t, "PDF Upload", sources[0].Label)

		count, newest, err := papersDbHandler.SelectPaperStats(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 2)
		require.NotNil(t, newest)
		assert.WithinDuration(t, time.Now(), *newest, time.Minute)
	})
}
