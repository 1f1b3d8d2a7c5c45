package model

// SummaryResult is the summary and keyword list generated for a document.
type SummaryResult struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}
