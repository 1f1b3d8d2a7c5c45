package model

// KeywordWeight is a keyword with its weight, either a frequency or a
// fixed weight for language model keywords.
type KeywordWeight struct {
	Keyword string `json:"keyword"`
	Weight  int    `json:"weight"`
}

// WeightedKeywords gives every keyword the same weight.
func WeightedKeywords(keywords []string, weight int) []KeywordWeight {
	weighted := make([]KeywordWeight, 0, len(keywords))
	for _, k := range keywords {
		weighted = append(weighted, KeywordWeight{Keyword: k, Weight: weight})
	}
	return weighted
}
