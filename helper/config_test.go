package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Reads test container settings", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "55432")

		config, err := NewDatabaseConfiguration()
		require.NoError(t, err, "Expected configuration to load")
		assert.Equal(t, "55432", config.Port, "Expected port from environment")
		assert.Contains(t, config.ConnectionString(), "port=55432", "Expected port in connection string")
		assert.Contains(t, config.ConnectionString(), "sslmode=disable", "Expected sslmode in connection string")
	})

	t.Run("Reports missing variables", func(t *testing.T) {
		t.Setenv("MEDRAG_DB_HOST", "")
		t.Setenv("MEDRAG_DB_PORT", "")
		t.Setenv("MEDRAG_DB_DATABASE", "")
		t.Setenv("MEDRAG_DB_USERNAME", "")

		_, err := NewDatabaseConfiguration()
		require.Error(t, err, "Expected error for missing variables")
		assert.Contains(t, err.Error(), "MEDRAG_DB_HOST", "Expected missing host to be named")
	})
}

func TestNewLLMConfiguration(t *testing.T) {
	t.Run("Requires api key", func(t *testing.T) {
		t.Setenv("MEDRAG_LLM_API_KEY", "")

		_, err := NewLLMConfiguration()
		assert.Error(t, err, "Expected error without api key")
	})

	t.Run("Azure requires base url", func(t *testing.T) {
		t.Setenv("MEDRAG_LLM_API_KEY", "key")
		t.Setenv("MEDRAG_LLM_API_TYPE", "azure")
		t.Setenv("MEDRAG_LLM_BASE_URL", "")

		_, err := NewLLMConfiguration()
		assert.Error(t, err, "Expected error for azure without base url")
	})

	t.Run("Defaults model", func(t *testing.T) {
		t.Setenv("MEDRAG_LLM_API_KEY", "key")
		t.Setenv("MEDRAG_LLM_API_TYPE", "openai")
		t.Setenv("MEDRAG_LLM_MODEL", "")

		config, err := NewLLMConfiguration()
		require.NoError(t, err, "Expected configuration to load")
		assert.Equal(t, "gpt-4o-mini", config.Model, "Expected default model")
	})
}

func TestNewCacheConfiguration(t *testing.T) {
	t.Run("Defaults to postgres", func(t *testing.T) {
		t.Setenv("MEDRAG_CACHE_BACKEND", "")

		config, err := NewCacheConfiguration()
		require.NoError(t, err, "Expected configuration to load")
		assert.Equal(t, "postgres", config.Backend, "Expected postgres backend by default")
	})

	t.Run("Mongo requires uri", func(t *testing.T) {
		t.Setenv("MEDRAG_CACHE_BACKEND", "mongo")
		t.Setenv("MEDRAG_MONGO_URI", "")

		_, err := NewCacheConfiguration()
		assert.Error(t, err, "Expected error for mongo without uri")
	})

	t.Run("Rejects unknown backend", func(t *testing.T) {
		t.Setenv("MEDRAG_CACHE_BACKEND", "redis")

		_, err := NewCacheConfiguration()
		assert.Error(t, err, "Expected error for unknown backend")
	})
}
