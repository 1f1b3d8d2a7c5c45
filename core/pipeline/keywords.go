package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"github.com/siherrmann/paperqa/model"
)

var tokenPattern = regexp.MustCompile(`[a-z]{3,}`)

// StopWords are ignored by the keyword extractor. Besides English function
// words they contain terms every paper uses.
var StopWords = newStopWords(`
a an and or the of in for to from by on with without across about after among under over into out per as is are was were be being been this that these those it its their his her we you they i your our ours mine
introduction methods results discussion conclusion abstract figure table appendix references study paper research data model models system systems learning machine deep neural network networks ai ml nlp
`)

func newStopWords(words string) map[string]bool {
	stop := map[string]bool{}
	for _, w := range strings.Fields(words) {
		stop[w] = true
	}
	return stop
}

// ExtractKeywords counts the lowercase alphabetic tokens of at least three
// letters over all chunks and returns the topN most frequent ones. Ties keep
// the order in which the tokens were first seen.
func ExtractKeywords(chunks []string, topN int) []model.KeywordWeight {
	if topN <= 0 {
		return []model.KeywordWeight{}
	}

	counter := newKeywordCounter()
	for _, chunk := range chunks {
		for _, token := range tokenPattern.FindAllString(strings.ToLower(chunk), -1) {
			if StopWords[token] {
				continue
			}
			counter.add(token)
		}
	}

	return counter.top(topN)
}

// keywordCounter counts keywords and remembers their first occurrence.
type keywordCounter struct {
	counts map[string]int
	order  []string
}

func newKeywordCounter() *keywordCounter {
	return &keywordCounter{counts: map[string]int{}}
}

func (c *keywordCounter) add(keyword string) {
	if _, ok := c.counts[keyword]; !ok {
		c.order = append(c.order, keyword)
	}
	c.counts[keyword]++
}

func (c *keywordCounter) top(n int) []model.KeywordWeight {
	order := append([]string(nil), c.order...)
	sort.SliceStable(order, func(i, j int) bool {
		return c.counts[order[i]] > c.counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}

	keywords := make([]model.KeywordWeight, 0, len(order))
	for _, keyword := range order {
		keywords = append(keywords, model.KeywordWeight{Keyword: keyword, Weight: c.counts[keyword]})
	}
	return keywords
}
