package milvus

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers(t *testing.T) {
	t.Run("Cosine similarity is converted to distance", func(t *testing.T) {
		assert.InDelta(t, 0, cosineDistance(1), 1e-9)
		assert.InDelta(t, 1, cosineDistance(0), 1e-9)
		assert.InDelta(t, 2, cosineDistance(-1), 1e-9)
	})

	t.Run("Only chunks of the document are selected", func(t *testing.T) {
		ids := []string{"doc_0", "doc_1", "doc2_0", "doc", "other_doc_0"}
		assert.Equal(t, []string{"doc_0", "doc_1"}, documentChunkIDs("doc", ids))
	})

	t.Run("Records outside the schema are rejected", func(t *testing.T) {
		store := &Store{dimension: 4}

		assert.NoError(t, store.validateRecord(model.EmbeddingRecord{ChunkID: "doc_0", Text: "short", Vector: []float32{1, 0, 0, 0}}))
		assert.Error(t, store.validateRecord(model.EmbeddingRecord{ChunkID: "doc_0", Text: "short", Vector: []float32{1, 0}}))
		assert.Error(t, store.validateRecord(model.EmbeddingRecord{ChunkID: strings.Repeat("x", maxIDLength+1), Vector: []float32{1, 0, 0, 0}}))

		err := store.validateRecord(model.EmbeddingRecord{ChunkID: "doc_0", Text: strings.Repeat("é", maxTextLength/2+1), Vector: []float32{1, 0, 0, 0}})
		assert.Error(t, err, "Expected oversized text to be rejected, not cut")
	})

	t.Run("Upsert of an oversized text is a precondition violation", func(t *testing.T) {
		store := &Store{dimension: 4}

		err := store.Upsert(context.Background(), []model.EmbeddingRecord{{ChunkID: "doc_0", Text: strings.Repeat("a", maxTextLength+1), Vector: []float32{1, 0, 0, 0}}})
		assert.ErrorIs(t, err, helper.ErrPrecondition)
	})
}

// Runs against a real Milvus when MILVUS_ADDRESS is set.
func TestStore(t *testing.T) {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" || testing.Short() {
		t.Skip("MILVUS_ADDRESS not set")
	}

	ctx := context.Background()
	collection := "test_" + uuid.NewString()[:8]
	store, err := NewStore(ctx, address, collection, 4, nil)
	require.NoError(t, err, "Expected NewStore to not return an error")
	defer store.Close(ctx)

	documentID := uuid.NewString()
	records := []model.EmbeddingRecord{
		{ChunkID: model.NewChunkID(documentID, 0), Text: "first", Vector: []float32{1, 0, 0, 0}},
		{ChunkID: model.NewChunkID(documentID, 1), Text: "second", Vector: []float32{0, 1, 0, 0}},
	}

	t.Run("Upsert is idempotent by chunk id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, records))
		require.NoError(t, store.Upsert(ctx, records))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Query returns nearest record first", func(t *testing.T) {
		hits, err := store.Query(ctx, []float32{0, 1, 0, 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, records[1].ChunkID, hits[0].ID)
		assert.Equal(t, "second", hits[0].Text)
		assert.InDelta(t, 0, hits[0].Distance, 1e-4)
	})

	t.Run("Delete document removes its records", func(t *testing.T) {
		require.NoError(t, store.DeleteDocument(ctx, documentID))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
