package pipeline

import (
	"errors"
	"testing"

	"github.com/siherrmann/paperqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityKeywords(t *testing.T) {
	t.Run("Entity names are counted over all chunks", func(t *testing.T) {
		extract := func(chunks []string) ([][]string, error) {
			return [][]string{
				{"Berlin", "Max Planck"},
				{"max  planck", "EU", "Ber##lin"},
			}, nil
		}
		extractor := entityKeywords(extract, ExtractKeywords)

		keywords := extractor([]string{"chunk one", "chunk two"}, 5)

		assert.Equal(t, []model.KeywordWeight{
			{Keyword: "berlin", Weight: 2},
			{Keyword: "max planck", Weight: 2},
		}, keywords)
	})

	t.Run("Falls back when the model fails", func(t *testing.T) {
		extract := func(chunks []string) ([][]string, error) {
			return nil, errors.New("model error")
		}
		extractor := entityKeywords(extract, ExtractKeywords)

		keywords := extractor([]string{"alpha beta alpha"}, 5)

		assert.Equal(t, []model.KeywordWeight{
			{Keyword: "alpha", Weight: 2},
			{Keyword: "beta", Weight: 1},
		}, keywords)
	})

	t.Run("Non positive top n returns empty sequence", func(t *testing.T) {
		called := false
		extract := func(chunks []string) ([][]string, error) {
			called = true
			return nil, nil
		}

		assert.Empty(t, entityKeywords(extract, ExtractKeywords)([]string{"text"}, 0))
		assert.False(t, called)
	})
}

func TestEntityKeywordExtractor(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping EntityKeywordExtractor test in short mode (requires model download)")
	}

	extractor, err := EntityKeywordExtractor(t.TempDir())
	require.NoError(t, err)

	keywords := extractor([]string{"Angela Merkel met Emmanuel Macron in Berlin.", "Berlin is the capital of Germany."}, 5)
	assert.NotEmpty(t, keywords)
}
