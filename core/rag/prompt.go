package rag

import (
	"fmt"
	"strings"

	"github.com/siherrmann/paperqa/model"
)

const summaryPrompt = "You will receive the text of an academic paper. " +
	"Write a concise 4 sentence summary in plain English. " +
	"Then produce %d single or two word keywords, comma separated. " +
	"Return JSON with fields summary and keywords.\n\n" +
	"TEXT:\n%s"

const answerPrompt = "Answer the user's question using only the information in the numbered context. " +
	"Cite sources like [1], [2] that map to the passage numbers. " +
	"If the answer is unknown, say you cannot find it in the documents.\n\n" +
	"CONTEXT:\n%s\n\nQUESTION:\n%s"

// SummaryPrompt builds the summary request for the given text prefix.
func SummaryPrompt(text string, maxKeywords int) string {
	return fmt.Sprintf(summaryPrompt, maxKeywords, text)
}

// AnswerPrompt builds the answer request with the passages numbered from 1.
func AnswerPrompt(question string, hits []model.SearchHit) string {
	return fmt.Sprintf(answerPrompt, NumberedContext(hits), question)
}

// NumberedContext labels every passage with its 1-based position.
func NumberedContext(hits []model.SearchHit) string {
	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = fmt.Sprintf("[%d] %s", i+1, hit.Text)
	}
	return strings.Join(passages, "\n\n")
}

// truncate returns the first n characters of s.
func truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
