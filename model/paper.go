package model

import "time"

// Paper is the relational record of one ingested document.
type Paper struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Source      string        `json:"source"`
	EmbeddingID string        `json:"embedding_id"`
	Summary     string        `json:"summary"`
	Metadata    Metadata      `json:"metadata,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Chunks      []*PaperChunk `json:"chunks,omitempty"`
	Keywords    []*Keyword    `json:"keywords,omitempty"`
}

// PaperChunk is the relational record of a chunk. ChunkID is the key of
// the chunk in the embedding index.
type PaperChunk struct {
	ID      int64  `json:"id"`
	PaperID int64  `json:"paper_id"`
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`
}

// Keyword is a weighted keyword attached to a paper. The same keyword
// may appear more than once per paper.
type Keyword struct {
	ID      int64  `json:"id"`
	PaperID int64  `json:"paper_id"`
	Keyword string `json:"keyword"`
	Weight  int    `json:"weight"`
}

// Paper defaults for uploaded documents.
const (
	DefaultAuthor = "Unknown"
	DefaultSource = "PDF Upload"
)

// NewPaper creates the paper record for an ingested document.
func NewPaper(fileName string, documentID string, summary string) *Paper {
	return &Paper{
		Title:       fileName,
		Author:      DefaultAuthor,
		Source:      DefaultSource,
		EmbeddingID: documentID,
		Summary:     summary,
		Metadata:    Metadata{},
	}
}

// AddChunks attaches chunks in sequence order.
func (p *Paper) AddChunks(chunks []*Chunk) {
	for _, c := range chunks {
		p.Chunks = append(p.Chunks, &PaperChunk{ChunkID: c.ChunkID, Text: c.Text})
	}
}

// AddKeywords appends keywords without merging duplicates.
func (p *Paper) AddKeywords(keywords []KeywordWeight) {
	for _, k := range keywords {
		p.Keywords = append(p.Keywords, &Keyword{Keyword: k.Keyword, Weight: k.Weight})
	}
}
