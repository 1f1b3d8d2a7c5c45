package provider

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var hashTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder is an offline embedder that hashes lowercase word tokens into
// a fixed number of buckets and normalizes the counts. Texts sharing words
// get similar vectors, equal texts get equal vectors.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hashing embedder with dimension buckets.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.EmbedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (e *HashEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, e.dimension)
	tokens := hashTokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, token := range tokens {
		vector[e.bucket(token)]++
	}
	// Text without tokens falls into one bucket of its trimmed form, a zero
	// vector has no cosine distance.
	if len(tokens) == 0 {
		vector[e.bucket(strings.TrimSpace(text))] = 1
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector, nil
}

func (e *HashEmbedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}
