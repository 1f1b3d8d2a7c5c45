package model

// Citation maps a numbered context passage back to its chunk.
type Citation struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Snippet string `json:"snippet"`
}

// Answer is a generated answer with the passages it was given as context.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}
