package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/paperqa/helper"
)

// Local sentence transformer used by DefaultEmbedder.
const (
	DefaultEmbeddingModel     = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingDimension = 384
)

// DefaultEmbedder creates an embedder using a local sentence transformer model
// cached in modelDir. It produces 384-dimensional embeddings.
func DefaultEmbedder(modelDir string) (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(modelDir, DefaultEmbeddingModel, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "paperqa-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}
