package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModel(t *testing.T) {
	modelDir := t.TempDir()
	t.Setenv("MEDRAG_MODEL_DIR", modelDir)

	t.Run("Return existing model path when model exists", func(t *testing.T) {
		modelPath := filepath.Join(modelDir, "pritamdeka_S-BioBert-snli-multinli-stsb")
		err := os.MkdirAll(modelPath, 0750)
		require.NoError(t, err, "Expected directory creation to succeed")

		path, err := PrepareModel("pritamdeka/S-BioBert-snli-multinli-stsb", "")
		assert.NoError(t, err, "Expected PrepareModel to not return an error for existing model")
		assert.Equal(t, modelPath, path, "Expected path to use sanitized name")
	})

	t.Run("Handle model name without slash", func(t *testing.T) {
		expectedPath := filepath.Join(modelDir, "simple-model")
		err := os.MkdirAll(expectedPath, 0750)
		require.NoError(t, err, "Expected directory creation to succeed")

		path, err := PrepareModel("simple-model", "onnx/model.onnx")
		assert.NoError(t, err, "Expected PrepareModel to not return an error")
		assert.Equal(t, expectedPath, path, "Expected path to use model name directly")
	})
}

func TestModelDir(t *testing.T) {
	t.Run("Defaults to local models directory", func(t *testing.T) {
		t.Setenv("MEDRAG_MODEL_DIR", "")
		assert.Equal(t, "./models", ModelDir(), "Expected default model directory")
	})

	t.Run("Uses environment override", func(t *testing.T) {
		t.Setenv("MEDRAG_MODEL_DIR", "/tmp/medrag-models")
		assert.Equal(t, "/tmp/medrag-models", ModelDir(), "Expected model directory from environment")
	})
}
