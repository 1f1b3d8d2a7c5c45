package model

import "fmt"

// Chunk is a passage of a document's text. ChunkID is always
// "{DocumentID}_{SequenceIndex}".
type Chunk struct {
	ChunkID       string `json:"chunk_id"`
	DocumentID    string `json:"document_id"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
}

// NewChunkID derives the id of the chunk at index within a document.
func NewChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}

// NewChunks assigns ids to passages in sequence order.
func NewChunks(documentID string, passages []string) []*Chunk {
	chunks := make([]*Chunk, 0, len(passages))
	for i, text := range passages {
		chunks = append(chunks, &Chunk{
			ChunkID:       NewChunkID(documentID, i),
			DocumentID:    documentID,
			SequenceIndex: i,
			Text:          text,
		})
	}
	return chunks
}

// ChunkIDs returns the ids of chunks in order.
func ChunkIDs(chunks []*Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	return ids
}

// ChunkTexts returns the texts of chunks in order.
func ChunkTexts(chunks []*Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
