package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

var _ VectorStore = (*MemoryStore)(nil)

// MemoryStore is a VectorStore kept in process memory with exact cosine
// distance search. Its state is lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]model.EmbeddingRecord
}

// NewMemoryStore creates an empty store for vectors of the given dimension.
// A dimension of 0 accepts the dimension of the first record.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		records:   map[string]model.EmbeddingRecord{},
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := s.dimension
	for _, r := range records {
		if dimension == 0 {
			dimension = len(r.Vector)
		}
		if len(r.Vector) != dimension {
			return helper.Kind(helper.ErrPrecondition, fmt.Errorf("chunk %s has dimension %d, expected %d", r.ChunkID, len(r.Vector), dimension))
		}
	}

	s.dimension = dimension
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		s.records[r.ChunkID] = r
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]model.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.records) == 0 {
		return []model.SearchHit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("query has dimension %d, expected %d", len(vector), s.dimension))
	}

	hits := make([]model.SearchHit, 0, len(s.records))
	for _, r := range s.records {
		hits = append(hits, model.SearchHit{
			ID:       r.ChunkID,
			Text:     r.Text,
			Distance: CosineDistance(vector, r.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := documentID + "_"
	for id := range s.records {
		if strings.HasPrefix(id, prefix) {
			delete(s.records, id)
		}
	}
	return nil
}

// CosineDistance returns 1 - cosine similarity, the metric of the pgvector
// <=> operator. Zero vectors have distance 1.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
