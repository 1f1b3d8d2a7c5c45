package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// DefaultEntityModel is the NER model used by EntityKeywordExtractor.
const DefaultEntityModel = "KnightsAnalytics/distilbert-NER"

// EntityKeywordExtractor creates a keyword extractor that uses named entities
// (persons, organizations, locations and misc) as keywords. Entities are
// counted over all chunks and ranked like ExtractKeywords.
func EntityKeywordExtractor(modelDir string) (KeywordFunc, error) {
	modelPath, err := helper.PrepareModel(modelDir, DefaultEntityModel, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "paperqa-ner",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	extract := func(chunks []string) ([][]string, error) {
		result, err := nerPipeline.RunPipeline(chunks)
		if err != nil {
			return nil, err
		}

		names := make([][]string, len(result.Entities))
		for i, entities := range result.Entities {
			for _, entity := range entities {
				names[i] = append(names[i], entity.Word)
			}
		}
		return names, nil
	}

	return entityKeywords(extract, ExtractKeywords), nil
}

// entityKeywords ranks the entity names found by extract. If the model fails
// it falls back to the given extractor so keyword extraction never fails.
func entityKeywords(extract func(chunks []string) ([][]string, error), fallback KeywordFunc) KeywordFunc {
	return func(chunks []string, topN int) []model.KeywordWeight {
		if topN <= 0 || len(chunks) == 0 {
			return []model.KeywordWeight{}
		}

		names, err := extract(chunks)
		if err != nil {
			return fallback(chunks, topN)
		}

		counter := newKeywordCounter()
		for _, chunkNames := range names {
			for _, name := range chunkNames {
				keyword := normalizeEntityName(name)
				if len([]rune(keyword)) < 3 || StopWords[keyword] {
					continue
				}
				counter.add(keyword)
			}
		}
		return counter.top(topN)
	}
}

// normalizeEntityName lowercases a name and removes wordpiece markers.
func normalizeEntityName(name string) string {
	name = strings.ReplaceAll(name, "##", "")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
