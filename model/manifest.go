package model

// IngestManifest is returned once per ingested document.
type IngestManifest struct {
	DocumentID string   `json:"document_id"`
	PaperID    int64    `json:"paper_id"`
	FileName   string   `json:"file_name"`
	ChunkCount int      `json:"chunk_count"`
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords,omitempty"`
}

// EmbedResult reports how many chunks were written to the index.
type EmbedResult struct {
	PaperID       int64 `json:"paper_id,omitempty"`
	UpsertedCount int   `json:"upserted_count"`
}
