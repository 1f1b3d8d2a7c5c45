package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/paperqa/helper"
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word and
// finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveChunker creates a chunker that splits text into passages of at most
// chunkSize characters with chunkOverlap characters shared between neighbours.
// It prefers the first separator of separators that occurs in the text and
// recurses with the following separators into passages that are still too long.
// Separators stay attached to the start of the following passage.
func RecursiveChunker(chunkSize int, chunkOverlap int, separators ...string) ChunkFunc {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	return func(text string) ([]string, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive")
		}
		if chunkOverlap < 0 || chunkOverlap >= chunkSize {
			return nil, fmt.Errorf("chunk overlap must be smaller than chunk size")
		}
		if strings.TrimSpace(text) == "" {
			return nil, helper.Kind(helper.ErrPrecondition, fmt.Errorf("text is empty"))
		}

		s := splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
		return s.split(text, separators), nil
	}
}

type splitter struct {
	chunkSize    int
	chunkOverlap int
}

func (s splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var chunks []string
	var good []string
	for _, part := range splitKeepSeparator(text, separator) {
		if length(part) < s.chunkSize {
			good = append(good, part)
			continue
		}

		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
		} else {
			chunks = append(chunks, s.split(part, next)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}

	return chunks
}

// merge joins small parts into passages up to the chunk size and carries the
// trailing parts of a full passage over into the next one as overlap.
func (s splitter) merge(parts []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, part := range parts {
		l := length(part)
		if total+l > s.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.chunkOverlap || (total+l > s.chunkSize && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, part)
		total += l
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator splits text at separator and keeps every separator at
// the start of the part following it. Empty parts are dropped.
func splitKeepSeparator(text string, separator string) []string {
	var parts []string
	if separator == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	for i, part := range strings.Split(text, separator) {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
