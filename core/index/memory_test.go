package index

import (
	"context"
	"sync"
	"testing"

	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Nearest record comes first", func(t *testing.T) {
		store := NewMemoryStore(2)
		require.NoError(t, store.Upsert(ctx, []model.EmbeddingRecord{
			{ChunkID: "d_0", Text: "x", Vector: []float32{1, 0}},
			{ChunkID: "d_1", Text: "y", Vector: []float32{0, 1}},
		}))

		hits, err := store.Query(ctx, []float32{0.1, 1}, 2)

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "d_1", hits[0].ID)
		assert.Equal(t, "y", hits[0].Text)
		assert.Less(t, hits[0].Distance, hits[1].Distance)
	})

	t.Run("Dimension is taken from the first record when unset", func(t *testing.T) {
		store := NewMemoryStore(0)
		require.NoError(t, store.Upsert(ctx, []model.EmbeddingRecord{{ChunkID: "d_0", Vector: []float32{1, 0, 0}}}))

		err := store.Upsert(ctx, []model.EmbeddingRecord{{ChunkID: "d_1", Vector: []float32{1, 0}}})
		assert.ErrorIs(t, err, helper.ErrPrecondition)

		_, err = store.Query(ctx, []float32{1, 0}, 1)
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})

	t.Run("Stored vectors are copied", func(t *testing.T) {
		store := NewMemoryStore(2)
		vector := []float32{1, 0}
		require.NoError(t, store.Upsert(ctx, []model.EmbeddingRecord{{ChunkID: "d_0", Vector: vector}}))
		vector[0], vector[1] = 0, 1

		hits, err := store.Query(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	})

	t.Run("Delete document keeps other documents", func(t *testing.T) {
		store := NewMemoryStore(2)
		require.NoError(t, store.Upsert(ctx, []model.EmbeddingRecord{
			{ChunkID: "doc_0", Vector: []float32{1, 0}},
			{ChunkID: "doc_1", Vector: []float32{1, 0}},
			{ChunkID: "doc2_0", Vector: []float32{1, 0}},
		}))

		require.NoError(t, store.DeleteDocument(ctx, "doc"))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Concurrent upserts of different documents do not interfere", func(t *testing.T) {
		store := NewMemoryStore(2)
		var wg sync.WaitGroup
		for d := 0; d < 8; d++ {
			wg.Add(1)
			go func(d int) {
				defer wg.Done()
				documentID := string(rune('a' + d))
				records := []model.EmbeddingRecord{}
				for i := 0; i < 10; i++ {
					records = append(records, model.EmbeddingRecord{ChunkID: model.NewChunkID(documentID, i), Vector: []float32{1, float32(i)}})
				}
				assert.NoError(t, store.Upsert(ctx, records))
			}(d)
		}
		wg.Wait()

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 80, count)
	})
}

func TestCosineDistance(t *testing.T) {
	t.Run("Identical direction has distance zero", func(t *testing.T) {
		assert.InDelta(t, 0, CosineDistance([]float32{1, 2}, []float32{2, 4}), 1e-9)
	})

	t.Run("Orthogonal vectors have distance one", func(t *testing.T) {
		assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("Zero vector has distance one", func(t *testing.T) {
		assert.InDelta(t, 1, CosineDistance([]float32{0, 0}, []float32{0, 1}), 1e-9)
	})
}
