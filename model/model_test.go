package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunks(t *testing.T) {
	t.Run("Ids are derived from document id and position", func(t *testing.T) {
		chunks := NewChunks("doc", []string{"a", "b", "c", "d"})

		assert.Equal(t, []string{"doc_0", "doc_1", "doc_2", "doc_3"}, ChunkIDs(chunks))
		assert.Equal(t, []string{"a", "b", "c", "d"}, ChunkTexts(chunks))
		for i, c := range chunks {
			assert.Equal(t, i, c.SequenceIndex)
			assert.Equal(t, "doc", c.DocumentID)
		}
	})

	t.Run("Same input yields the same ids", func(t *testing.T) {
		first := ChunkIDs(NewChunks("d1", []string{"x", "y"}))
		second := ChunkIDs(NewChunks("d1", []string{"x", "y"}))
		assert.Equal(t, first, second)
	})

	t.Run("No passages yield no chunks", func(t *testing.T) {
		assert.Empty(t, NewChunks("doc", nil))
	})
}

func TestNewPaper(t *testing.T) {
	t.Run("Paper gets upload defaults", func(t *testing.T) {
		paper := NewPaper("attention.pdf", "doc-1", "A summary.")

		assert.Equal(t, "attention.pdf", paper.Title)
		assert.Equal(t, "Unknown", paper.Author)
		assert.Equal(t, "PDF Upload", paper.Source)
		assert.Equal(t, "doc-1", paper.EmbeddingID)
		assert.Equal(t, "A summary.", paper.Summary)
	})

	t.Run("Keywords are appended without merging", func(t *testing.T) {
		paper := NewPaper("a.pdf", "doc", "")
		paper.AddKeywords(WeightedKeywords([]string{"transformer"}, 3))
		paper.AddKeywords([]KeywordWeight{{Keyword: "transformer", Weight: 7}})

		require.Len(t, paper.Keywords, 2)
		assert.Equal(t, 3, paper.Keywords[0].Weight)
		assert.Equal(t, 7, paper.Keywords[1].Weight)
	})

	t.Run("Chunks keep their ids", func(t *testing.T) {
		paper := NewPaper("a.pdf", "doc", "")
		paper.AddChunks(NewChunks("doc", []string{"one", "two"}))

		require.Len(t, paper.Chunks, 2)
		assert.Equal(t, "doc_1", paper.Chunks[1].ChunkID)
		assert.Equal(t, "two", paper.Chunks[1].Text)
	})
}

func TestNewDocumentFromFile(t *testing.T) {
	t.Run("Reads file and keeps base name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Paper.PDF")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0600))

		doc, err := NewDocumentFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Paper.PDF", doc.FileName)
		assert.Equal(t, ".pdf", doc.Extension())
		assert.Equal(t, []byte("%PDF-1.4"), doc.Data)
	})

	t.Run("Returns error for non-existent file", func(t *testing.T) {
		doc, err := NewDocumentFromFile("/non/existent/file.pdf")
		assert.Error(t, err)
		assert.Nil(t, doc)
	})
}

func TestFormatUptime(t *testing.T) {
	t.Run("Format hours, minutes and seconds", func(t *testing.T) {
		assert.Equal(t, "1h 2m", FormatUptime(time.Hour+2*time.Minute+3*time.Second))
		assert.Equal(t, "3m 4s", FormatUptime(3*time.Minute+4*time.Second))
		assert.Equal(t, "5s", FormatUptime(5*time.Second))
		assert.Equal(t, "0s", FormatUptime(-time.Second))
	})

	t.Run("Month label", func(t *testing.T) {
		assert.Equal(t, "Mar 2025", MonthLabel(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	})
}

func TestDefaultPipelineConfig(t *testing.T) {
	t.Run("Returns the default constants", func(t *testing.T) {
		config := DefaultPipelineConfig()

		assert.Equal(t, 1000, config.ChunkSize)
		assert.Equal(t, 120, config.ChunkOverlap)
		assert.Equal(t, 8000, config.SummaryPrefixLength)
		assert.Equal(t, 12, config.MaxKeywords)
		assert.Equal(t, 220, config.SnippetLength)
		assert.Equal(t, 5, config.TopK)
		assert.NoError(t, config.Validate())
	})

	t.Run("Overlap must be smaller than chunk size", func(t *testing.T) {
		config := DefaultPipelineConfig()
		config.ChunkOverlap = config.ChunkSize
		assert.Error(t, config.Validate())
	})
}
