package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	loadSql "github.com/siherrmann/paperqa/sql"
)

// maxEfSearch is the largest hnsw.ef_search pgvector accepts.
const maxEfSearch = 1000

// EmbeddingsDBHandlerFunctions defines the interface for the pgvector embedding index.
type EmbeddingsDBHandlerFunctions interface {
	Upsert(ctx context.Context, records []model.EmbeddingRecord) error
	Query(ctx context.Context, vector []float32, k int) ([]model.SearchHit, error)
	Count(ctx context.Context) (int, error)
	DeleteDocument(ctx context.Context, documentID string) error
	SelectEmbedding(ctx context.Context, chunkID string) (*model.EmbeddingRecord, error)
	ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error
}

// EmbeddingsDBHandler stores chunk embeddings in postgres with pgvector.
type EmbeddingsDBHandler struct {
	db        *helper.Database
	dimension int
}

// NewEmbeddingsDBHandler loads the embedding functions and creates the table
// with a vector column of the given dimension.
func NewEmbeddingsDBHandler(db *helper.Database, dimension int, force bool) (*EmbeddingsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("dimension must be positive, got %d", dimension))
	}

	embeddingsDbHandler := &EmbeddingsDBHandler{
		db:        db,
		dimension: dimension,
	}

	err := loadSql.LoadEmbeddingsSql(embeddingsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load embeddings sql", err)
	}

	err = embeddingsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EmbeddingsDBHandler", slog.Int("dimension", dimension))

	return embeddingsDbHandler, nil
}

// CreateTable creates the embeddings table and its hnsw index if missing.
func (h *EmbeddingsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_embeddings($1);`, h.dimension)
	if err != nil {
		return err
	}

	h.db.Logger.Info("Checked/created table embeddings")

	return nil
}

// Dimension returns the vector dimension of the table.
func (h *EmbeddingsDBHandler) Dimension() int {
	return h.dimension
}

// Upsert inserts or overwrites the records keyed by chunk id.
func (h *EmbeddingsDBHandler) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	for _, r := range records {
		if len(r.Vector) != h.dimension {
			return helper.Kind(helper.ErrPrecondition, helper.NewError("upsert embeddings", fmt.Errorf("chunk %s has dimension %d, expected %d", r.ChunkID, len(r.Vector), h.dimension)))
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `SELECT upsert_embedding($1, $2, $3)`)
	if err != nil {
		return helper.NewError("prepare", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.ChunkID, r.Text, pgvector.NewVector(r.Vector))
		if err != nil {
			return helper.NewError(fmt.Sprintf("upsert chunk %s", r.ChunkID), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	return nil
}

// Query returns up to k records ordered by ascending cosine distance.
func (h *EmbeddingsDBHandler) Query(ctx context.Context, vector []float32, k int) ([]model.SearchHit, error) {
	if k <= 0 {
		return []model.SearchHit{}, nil
	}
	if len(vector) != h.dimension {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("query embeddings", fmt.Errorf("query has dimension %d, expected %d", len(vector), h.dimension)))
	}

	tx, err := h.db.Instance.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	// The hnsw candidate list has to be at least k long to return k rows.
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, min(max(k, 40), maxEfSearch)))
	if err != nil {
		return nil, helper.NewError("set ef_search", err)
	}

	rows, err := tx.QueryContext(
		ctx,
		`SELECT * FROM select_embeddings_by_distance($1, $2)`,
		pgvector.NewVector(vector),
		k,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	hits := []model.SearchHit{}
	for rows.Next() {
		var hit model.SearchHit
		err := rows.Scan(
			&hit.ID,
			&hit.Text,
			&hit.Distance,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		hits = append(hits, hit)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hits, nil
}

// SelectEmbedding retrieves the record of a chunk.
func (h *EmbeddingsDBHandler) SelectEmbedding(ctx context.Context, chunkID string) (*model.EmbeddingRecord, error) {
	record := &model.EmbeddingRecord{}
	var vector pgvector.Vector
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_embedding($1)`,
		chunkID,
	).Scan(
		&record.ChunkID,
		&record.Text,
		&vector,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.Kind(helper.ErrNotFound, helper.NewError("select embedding", fmt.Errorf("chunk %s not found", chunkID)))
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	record.Vector = vector.Slice()
	return record, nil
}

// Count returns the number of stored records.
func (h *EmbeddingsDBHandler) Count(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_embeddings()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DeleteDocument removes all records of a document.
func (h *EmbeddingsDBHandler) DeleteDocument(ctx context.Context, documentID string) error {
	var deleted int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_embeddings_by_document($1)`, documentID).Scan(&deleted)
	if err != nil {
		return helper.NewError("scan", err)
	}

	h.db.Logger.Debug("Deleted embeddings", slog.String("document_id", documentID), slog.Int64("count", deleted))
	return nil
}
