package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func TestDefaultEmbedder(t *testing.T) {
	// DefaultEmbedder downloads the model on first use.
	if testing.Short() {
		t.Skip("Skipping DefaultEmbedder test in short mode (requires model download)")
	}

	modelDir := t.TempDir()
	embedder, err := DefaultEmbedder(modelDir)
	require.NoError(t, err)
	require.NotNil(t, embedder)

	t.Run("Generate embedding for text", func(t *testing.T) {
		embedding, err := embedder("This is a test sentence.")

		require.NoError(t, err)
		assert.Len(t, embedding, DefaultEmbeddingDimension)
	})

	t.Run("Same text produces same embedding", func(t *testing.T) {
		first, err := embedder("Deterministic embedding test")
		require.NoError(t, err)
		second, err := embedder("Deterministic embedding test")
		require.NoError(t, err)

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.InDelta(t, first[i], second[i], 0.0001)
		}
	})

	t.Run("Similar texts have similar embeddings", func(t *testing.T) {
		dog, err := embedder("The dog is happy")
		require.NoError(t, err)
		puppy, err := embedder("The puppy is joyful")
		require.NoError(t, err)
		physics, err := embedder("Quantum physics is complex")
		require.NoError(t, err)

		assert.Greater(t, cosineSimilarity(dog, puppy), cosineSimilarity(dog, physics))
	})
}
