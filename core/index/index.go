package index

import (
	"context"
	"fmt"

	"github.com/siherrmann/paperqa/core/provider"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// VectorStore persists embedding records keyed by chunk id.
type VectorStore interface {
	// Upsert inserts or overwrites records by chunk id.
	Upsert(ctx context.Context, records []model.EmbeddingRecord) error
	// Query returns up to k records ordered by ascending distance to vector.
	Query(ctx context.Context, vector []float32, k int) ([]model.SearchHit, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	// DeleteDocument removes all records with ids "{documentID}_{n}".
	DeleteDocument(ctx context.Context, documentID string) error
}

// Index embeds texts and stores them in a vector store.
type Index struct {
	embedder provider.Embedder
	store    VectorStore
}

// NewIndex creates an index over store using embedder for texts and queries.
func NewIndex(embedder provider.Embedder, store VectorStore) *Index {
	return &Index{
		embedder: embedder,
		store:    store,
	}
}

// Store returns the underlying vector store.
func (i *Index) Store() VectorStore {
	return i.store
}

// Upsert embeds texts and stores them under ids. Upserting an id again
// overwrites its record.
func (i *Index) Upsert(ctx context.Context, ids []string, texts []string) error {
	if len(ids) == 0 {
		return helper.Kind(helper.ErrPrecondition, fmt.Errorf("upsert: no ids given"))
	}
	if len(ids) != len(texts) {
		return helper.Kind(helper.ErrPrecondition, fmt.Errorf("upsert: got %d ids and %d texts", len(ids), len(texts)))
	}
	for n, id := range ids {
		if id == "" {
			return helper.Kind(helper.ErrPrecondition, fmt.Errorf("upsert: id %d is empty", n))
		}
	}

	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return helper.Kind(helper.ErrProvider, helper.NewError("embed texts", err))
	}
	if len(vectors) != len(texts) {
		return helper.Kind(helper.ErrProvider, fmt.Errorf("embed texts: got %d vectors for %d texts", len(vectors), len(texts)))
	}

	records := make([]model.EmbeddingRecord, len(ids))
	for n := range ids {
		records[n] = model.EmbeddingRecord{
			ChunkID: ids[n],
			Vector:  vectors[n],
			Text:    texts[n],
		}
	}

	err = i.store.Upsert(ctx, records)
	if err != nil {
		return storageError("store embeddings", err)
	}
	return nil
}

// UpsertChunks stores the embeddings of chunks under their chunk ids.
func (i *Index) UpsertChunks(ctx context.Context, chunks []*model.Chunk) error {
	return i.Upsert(ctx, model.ChunkIDs(chunks), model.ChunkTexts(chunks))
}

// Query embeds text and returns up to k nearest records, nearest first.
// An empty index yields an empty result.
func (i *Index) Query(ctx context.Context, text string, k int) ([]model.SearchHit, error) {
	if k <= 0 {
		return []model.SearchHit{}, nil
	}

	vector, err := i.embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, helper.Kind(helper.ErrProvider, helper.NewError("embed query", err))
	}

	hits, err := i.store.Query(ctx, vector, k)
	if err != nil {
		return nil, storageError("query embeddings", err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored records.
func (i *Index) Count(ctx context.Context) (int, error) {
	count, err := i.store.Count(ctx)
	if err != nil {
		return 0, storageError("count embeddings", err)
	}
	return count, nil
}

// DeleteDocument removes the records of a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return helper.Kind(helper.ErrPrecondition, fmt.Errorf("delete embeddings: document id is empty"))
	}
	err := i.store.DeleteDocument(ctx, documentID)
	if err != nil {
		return storageError("delete embeddings", err)
	}
	return nil
}

// storageError marks unclassified store errors as storage failures.
func storageError(operation string, err error) error {
	err = helper.NewError(operation, err)
	if helper.KindOf(err) != nil {
		return err
	}
	return helper.Kind(helper.ErrStorage, err)
}
