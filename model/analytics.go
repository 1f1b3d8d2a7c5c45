package model

import (
	"fmt"
	"time"
)

// ChartEntry is one bar of an analytics chart.
type ChartEntry struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// PaperListItem is a paper as shown in the library listing.
type PaperListItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Analytics summarizes the library. Pointers are nil for an empty library.
type Analytics struct {
	TopKeyword      *string      `json:"top_keyword"`
	NewestPaper     *string      `json:"newest_paper"`
	MostQueried     *string      `json:"most_queried"`
	LibrarySize     int          `json:"library_size"`
	EmbeddingsCount int          `json:"embeddings_count"`
	ChatCount       int          `json:"chat_count"`
	LastImport      *string      `json:"last_import"`
	TopicChart      []ChartEntry `json:"topic_chart"`
	SourceChart     []ChartEntry `json:"source_chart"`
}

// Stats are the counters of a running process.
type Stats struct {
	PapersUploaded    int    `json:"papers_uploaded"`
	EmbeddingsCreated int    `json:"embeddings_created"`
	Uptime            string `json:"uptime"`
}

// FormatUptime renders a duration as "1h 2m", "3m 4s" or "5s".
func FormatUptime(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	hours, remainder := total/3600, total%3600
	minutes, seconds := remainder/60, remainder%60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// MonthLabel formats a time like "Jan 2006".
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}
