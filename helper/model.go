package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// DefaultModelDir is where local embedding models are cached.
const DefaultModelDir = "./models"

// PrepareModel returns the local path of a huggingface model inside modelDir,
// downloading it first if it is not cached yet. Slashes in the model name are
// replaced by underscores for the directory name.
func PrepareModel(modelDir string, modelName string, onnxFilePath string) (string, error) {
	if modelDir == "" {
		modelDir = DefaultModelDir
	}
	if strings.TrimSpace(modelName) == "" {
		return "", fmt.Errorf("failed to prepare model: model name is empty")
	}

	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	downloadOptions := hugot.NewDownloadOptions()
	if onnxFilePath != "" {
		downloadOptions.OnnxFilePath = onnxFilePath
	}
	downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}

	return downloadedPath, nil
}
