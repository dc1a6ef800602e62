package model

import "time"

// SearchMode selects between the indexed corpus and live deep search
type SearchMode string

const (
	SearchModeNormal SearchMode = "normal"
	SearchModeDeep   SearchMode = "deep"
)

// GraphSearchMethod selects how graph neighbors are collected from the seeds
type GraphSearchMethod string

const (
	GraphSearchOneHop GraphSearchMethod = "one_hop"
	GraphSearchTwoHop GraphSearchMethod = "two_hop"
)

// ModeConfig holds the retrieval and ranking depth for one search mode
type ModeConfig struct {
	RetrieveK int `json:"retrieve_k"`
	RankK     int `json:"rank_k"`
}

// SearchConfig represents the tunables of a search
type SearchConfig struct {
	Normal ModeConfig `json:"normal"`
	Deep   ModeConfig `json:"deep"`

	// Deep search
	DeepSources        int           `json:"deep_sources"`
	DeepChunks         int           `json:"deep_chunks"`
	SentencesPerWindow int           `json:"sentences_per_window"`
	DeepTimeout        time.Duration `json:"deep_timeout"`

	// Thresholds
	CacheThreshold   float64 `json:"cache_threshold"`   // Strictly exceeded for a cache hit
	RedraftThreshold float64 `json:"redraft_threshold"` // Overall below triggers one redraft

	Subqueries         int               `json:"subqueries"`
	GraphMethod        GraphSearchMethod `json:"graph_method"`
	PoolSize           int               `json:"pool_size"`
	EmbeddingCacheSize int               `json:"embedding_cache_size"`
}

// DefaultSearchConfig returns the default configuration
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Normal:             ModeConfig{RetrieveK: 15, RankK: 10},
		Deep:               ModeConfig{RetrieveK: 30, RankK: 3},
		DeepSources:        5,
		DeepChunks:         7,
		SentencesPerWindow: 50,
		DeepTimeout:        2 * time.Minute,
		CacheThreshold:     0.8,
		RedraftThreshold:   0.7,
		Subqueries:         3,
		GraphMethod:        GraphSearchOneHop,
		PoolSize:           8,
		EmbeddingCacheSize: 1024,
	}
}

// ForMode returns the retrieval depth for mode
func (c SearchConfig) ForMode(mode SearchMode) ModeConfig {
	if mode == SearchModeDeep {
		return c.Deep
	}
	return c.Normal
}

// WithDefaults replaces every non-positive or empty tunable by its default
func (c SearchConfig) WithDefaults() SearchConfig {
	d := DefaultSearchConfig()
	if c.Normal.RetrieveK <= 0 {
		c.Normal.RetrieveK = d.Normal.RetrieveK
	}
	if c.Normal.RankK <= 0 {
		c.Normal.RankK = d.Normal.RankK
	}
	if c.Deep.RetrieveK <= 0 {
		c.Deep.RetrieveK = d.Deep.RetrieveK
	}
	if c.Deep.RankK <= 0 {
		c.Deep.RankK = d.Deep.RankK
	}
	if c.DeepSources <= 0 {
		c.DeepSources = d.DeepSources
	}
	if c.DeepChunks <= 0 {
		c.DeepChunks = d.DeepChunks
	}
	if c.SentencesPerWindow <= 0 {
		c.SentencesPerWindow = d.SentencesPerWindow
	}
	if c.DeepTimeout <= 0 {
		c.DeepTimeout = d.DeepTimeout
	}
	if c.CacheThreshold <= 0 {
		c.CacheThreshold = d.CacheThreshold
	}
	if c.RedraftThreshold <= 0 {
		c.RedraftThreshold = d.RedraftThreshold
	}
	if c.Subqueries <= 0 {
		c.Subqueries = d.Subqueries
	}
	if c.GraphMethod == "" {
		c.GraphMethod = d.GraphMethod
	}
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	if c.EmbeddingCacheSize <= 0 {
		c.EmbeddingCacheSize = d.EmbeddingCacheSize
	}
	return c
}
