package helper

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LLMConfiguration describes the chat-completion endpoint
type LLMConfiguration struct {
	BaseURL    string
	APIKey     string
	Model      string
	APIType    string // "openai" or "azure"
	APIVersion string
}

// NewLLMConfiguration reads the language-model configuration from the environment
func NewLLMConfiguration() (*LLMConfiguration, error) {
	_ = godotenv.Load()

	config := &LLMConfiguration{
		BaseURL:    os.Getenv("MEDRAG_LLM_BASE_URL"),
		APIKey:     os.Getenv("MEDRAG_LLM_API_KEY"),
		Model:      getEnvOrDefault("MEDRAG_LLM_MODEL", "gpt-4o-mini"),
		APIType:    getEnvOrDefault("MEDRAG_LLM_API_TYPE", "openai"),
		APIVersion: os.Getenv("MEDRAG_LLM_API_VERSION"),
	}

	if config.APIKey == "" {
		return nil, NewError("llm configuration", fmt.Errorf("missing environment variable MEDRAG_LLM_API_KEY"))
	}
	if config.APIType != "openai" && config.APIType != "azure" {
		return nil, NewError("llm configuration", fmt.Errorf("unsupported api type %q", config.APIType))
	}
	if config.APIType == "azure" && config.BaseURL == "" {
		return nil, NewError("llm configuration", fmt.Errorf("azure api type requires MEDRAG_LLM_BASE_URL"))
	}

	return config, nil
}

// CacheConfiguration selects the answer cache backend
type CacheConfiguration struct {
	Backend       string // "postgres" or "mongo"
	MongoURI      string
	MongoDatabase string
}

// NewCacheConfiguration reads the cache configuration from the environment
func NewCacheConfiguration() (*CacheConfiguration, error) {
	_ = godotenv.Load()

	config := &CacheConfiguration{
		Backend:       getEnvOrDefault("MEDRAG_CACHE_BACKEND", "postgres"),
		MongoURI:      os.Getenv("MEDRAG_MONGO_URI"),
		MongoDatabase: getEnvOrDefault("MEDRAG_MONGO_DATABASE", "medrag"),
	}

	switch config.Backend {
	case "postgres":
	case "mongo":
		if config.MongoURI == "" {
			return nil, NewError("cache configuration", fmt.Errorf("mongo backend requires MEDRAG_MONGO_URI"))
		}
	default:
		return nil, NewError("cache configuration", fmt.Errorf("unsupported cache backend %q", config.Backend))
	}

	return config, nil
}

// DebugEnabled reports whether MEDRAG_DEBUG is set to a true value
func DebugEnabled() bool {
	debug, err := strconv.ParseBool(os.Getenv("MEDRAG_DEBUG"))
	return err == nil && debug
}
