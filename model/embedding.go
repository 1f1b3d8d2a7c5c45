package model

// EmbeddingRecord is one entry of the embedding index.
type EmbeddingRecord struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector,omitempty"`
	Text    string    `json:"text"`
}

// SearchHit is a nearest neighbor result, lower distance is more similar.
type SearchHit struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}
