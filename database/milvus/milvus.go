package milvus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// Field names of the chunk collection.
const (
	FieldID     = "id"
	FieldText   = "text"
	FieldVector = "vector"

	DefaultCollection = "paper_chunks"

	maxIDLength   = 255
	maxTextLength = 65535
)

// Store is an embedding index on a Milvus collection. Records are keyed by
// chunk id and compared by cosine distance.
type Store struct {
	client     *milvusclient.Client
	collection string
	dimension  int
	logger     *slog.Logger
}

// NewStore connects to Milvus and makes sure the collection exists and is loaded.
func NewStore(ctx context.Context, address string, collection string, dimension int, logger *slog.Logger) (*Store, error) {
	if dimension <= 0 {
		return nil, helper.NewError("milvus store", fmt.Errorf("dimension must be positive, got %d", dimension))
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: address})
	if err != nil {
		return nil, helper.Kind(helper.ErrStorage, helper.NewError("connect milvus", err))
	}

	s := &Store{
		client:     client,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}

	err = s.ensureCollection(ctx)
	if err != nil {
		client.Close(ctx)
		return nil, helper.Kind(helper.ErrStorage, err)
	}

	logger.Info("Initialized milvus store", slog.String("address", address), slog.String("collection", collection), slog.Int("dimension", dimension))
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return helper.NewError("check collection", err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Paper chunks with their embeddings",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": fmt.Sprintf("%d", maxIDLength),
					},
				},
				{
					Name:     FieldText,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": fmt.Sprintf("%d", maxTextLength),
					},
				},
				{
					Name:     FieldVector,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", s.dimension),
					},
				},
			},
		}

		err = s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema))
		if err != nil {
			return helper.NewError("create collection", err)
		}

		idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		_, err = s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.collection, FieldVector, idx))
		if err != nil {
			return helper.NewError("create index", err)
		}

		s.logger.Info("Created milvus collection", slog.String("collection", s.collection))
	}

	_, err = s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return helper.NewError("load collection", err)
	}
	return nil
}

// Dimension returns the vector dimension of the collection.
func (s *Store) Dimension() int {
	return s.dimension
}

// Upsert inserts or overwrites the records keyed by chunk id.
func (s *Store) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	texts := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	for _, r := range records {
		if err := s.validateRecord(r); err != nil {
			return helper.Kind(helper.ErrPrecondition, helper.NewError("upsert embeddings", err))
		}
		ids = append(ids, r.ChunkID)
		texts = append(texts, r.Text)
		vectors = append(vectors, r.Vector)
	}

	option := milvusclient.NewColumnBasedInsertOption(s.collection).
		WithVarcharColumn(FieldID, ids).
		WithVarcharColumn(FieldText, texts).
		WithFloatVectorColumn(FieldVector, s.dimension, vectors)

	_, err := s.client.Upsert(ctx, option)
	if err != nil {
		return helper.NewError("upsert", err)
	}
	return nil
}

// validateRecord checks that a record fits the collection schema. Texts
// longer than the varchar field are rejected.
func (s *Store) validateRecord(r model.EmbeddingRecord) error {
	if len(r.Vector) != s.dimension {
		return fmt.Errorf("chunk %s has dimension %d, expected %d", r.ChunkID, len(r.Vector), s.dimension)
	}
	if len(r.ChunkID) > maxIDLength {
		return fmt.Errorf("chunk id %s is longer than %d bytes", r.ChunkID, maxIDLength)
	}
	if len(r.Text) > maxTextLength {
		return fmt.Errorf("chunk %s text has %d bytes, the collection stores at most %d", r.ChunkID, len(r.Text), maxTextLength)
	}
	return nil
}

// Query returns up to k records ordered by ascending cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]model.SearchHit, error) {
	if k <= 0 {
		return []model.SearchHit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("query embeddings", fmt.Errorf("query has dimension %d, expected %d", len(vector), s.dimension)))
	}

	option := milvusclient.NewSearchOption(s.collection, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector).
		WithOutputFields(FieldText).
		WithConsistencyLevel(entity.ClStrong)

	results, err := s.client.Search(ctx, option)
	if err != nil {
		return nil, helper.NewError("search", err)
	}

	hits := []model.SearchHit{}
	if len(results) == 0 {
		return hits, nil
	}

	result := results[0]
	textColumn := result.GetColumn(FieldText)
	for i := 0; i < result.ResultCount; i++ {
		id, err := result.IDs.GetAsString(i)
		if err != nil {
			return nil, helper.NewError("read id", err)
		}

		hit := model.SearchHit{ID: id, Distance: cosineDistance(result.Scores[i])}
		if textColumn != nil {
			hit.Text, err = textColumn.GetAsString(i)
			if err != nil {
				return nil, helper.NewError("read text", err)
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	option := milvusclient.NewQueryOption(s.collection).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong)

	result, err := s.client.Query(ctx, option)
	if err != nil {
		return 0, helper.NewError("count", err)
	}

	column := result.GetColumn("count(*)")
	if column == nil || column.Len() == 0 {
		return 0, nil
	}
	count, err := column.GetAsInt64(0)
	if err != nil {
		return 0, helper.NewError("read count", err)
	}
	return int(count), nil
}

// DeleteDocument removes all records of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	option := milvusclient.NewQueryOption(s.collection).
		WithFilter(fmt.Sprintf(`%s like "%s%%"`, FieldID, documentID)).
		WithOutputFields(FieldID).
		WithConsistencyLevel(entity.ClStrong)

	result, err := s.client.Query(ctx, option)
	if err != nil {
		return helper.NewError("query document chunks", err)
	}

	column := result.GetColumn(FieldID)
	if column == nil {
		return nil
	}
	candidates := make([]string, 0, column.Len())
	for i := 0; i < column.Len(); i++ {
		id, err := column.GetAsString(i)
		if err != nil {
			return helper.NewError("read id", err)
		}
		candidates = append(candidates, id)
	}

	ids := documentChunkIDs(documentID, candidates)
	if len(ids) == 0 {
		return nil
	}

	_, err = s.client.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithStringIDs(FieldID, ids))
	if err != nil {
		return helper.NewError("delete", err)
	}

	s.logger.Debug("Deleted embeddings", slog.String("document_id", documentID), slog.Int("count", len(ids)))
	return nil
}

// Close closes the client connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// cosineDistance converts a Milvus COSINE similarity to a distance where
// lower is more similar, like the pgvector <=> operator.
func cosineDistance(score float32) float64 {
	return 1 - float64(score)
}

// documentChunkIDs keeps the ids of the form "{documentID}_{n}".
func documentChunkIDs(documentID string, ids []string) []string {
	prefix := documentID + "_"
	matching := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matching = append(matching, id)
		}
	}
	return matching
}
