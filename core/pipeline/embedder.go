package pipeline

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/medrag/helper"
)

const (
	// DefaultEmbeddingModel produces 384-dimensional sentence embeddings
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingOnnx  = "onnx/model.onnx"
	DefaultEmbeddingDim   = 384
)

// DefaultEmbedder creates an embedder with the default sentence transformer model
func DefaultEmbedder() (EmbedFunc, error) {
	return NewEmbedder(DefaultEmbeddingModel, DefaultEmbeddingOnnx)
}

// NewEmbedder creates an embedder from a Hugging Face sentence transformer model.
// The model is downloaded on first use.
func NewEmbedder(modelName string, onnxFilePath string) (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(modelName, onnxFilePath)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
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

// CachedEmbedder memoizes embed for the size most recently used texts.
// Cached vectors are shared and must not be modified by callers.
func CachedEmbedder(embed EmbedFunc, size int) (EmbedFunc, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return func(text string) ([]float32, error) {
		if embedding, ok := cache.Get(text); ok {
			return embedding, nil
		}

		embedding, err := embed(text)
		if err != nil {
			return nil, err
		}

		cache.Add(text, embedding)
		return embedding, nil
	}, nil
}
