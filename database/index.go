package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/paperqa/helper"
)

// Supported vector index types.
const (
	IndexTypeHNSW    = "hnsw"
	IndexTypeIVFFlat = "ivfflat"
)

// ChangeIndexType rebuilds the embedding index as HNSW or IVFFlat.
// params:
//   - For HNSW: "m" (default 16), "ef_construction" (default 64)
//   - For IVFFlat: "lists" (default 100)
func (h *EmbeddingsDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	var createIndexSQL string

	switch indexType {
	case IndexTypeHNSW:
		m, err := intParam(params, "m", 16)
		if err != nil {
			return err
		}
		efConstruction, err := intParam(params, "ef_construction", 64)
		if err != nil {
			return err
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_embeddings_embedding ON embeddings USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case IndexTypeIVFFlat:
		lists, err := intParam(params, "lists", 100)
		if err != nil {
			return err
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_embeddings_embedding ON embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.Kind(helper.ErrPrecondition, helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType)))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_embeddings_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Changed vector index", slog.String("type", indexType), slog.Any("params", params))

	return nil
}

// intParam reads a positive integer parameter. Numbers decoded from json
// arrive as float64 and are accepted when they are whole.
func intParam(params map[string]interface{}, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	var value int
	switch v := raw.(type) {
	case int:
		value = v
	case int64:
		value = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, helper.Kind(helper.ErrPrecondition, fmt.Errorf("index parameter %s must be a whole number, got %v", key, v))
		}
		value = int(v)
	default:
		return 0, helper.Kind(helper.ErrPrecondition, fmt.Errorf("index parameter %s must be a number, got %T", key, raw))
	}

	if value <= 0 {
		return 0, helper.Kind(helper.ErrPrecondition, fmt.Errorf("index parameter %s must be positive, got %d", key, value))
	}
	return value, nil
}
