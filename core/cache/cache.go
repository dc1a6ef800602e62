// Package cache answers near duplicate queries from past answers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/core/similarity"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// DefaultThreshold is the similarity a stored query must exceed to be a hit
const DefaultThreshold = 0.8

// Store persists cache entries. Entries of a tag are returned oldest first.
type Store interface {
	InsertCacheEntry(ctx context.Context, entry *model.CacheEntry) error
	SelectCacheEntriesByTag(ctx context.Context, tag model.CacheTag) ([]*model.CacheEntry, error)
}

// Result is the outcome of a lookup. Found is false on a miss.
type Result struct {
	Answer     string
	Query      string
	Tag        model.CacheTag
	Similarity float64
	Found      bool
}

// Cache is a semantic answer cache over a Store
type Cache struct {
	store     Store
	embed     pipeline.EmbedFunc
	threshold float64
	pool      *pool.Pool
	logger    *slog.Logger
}

// NewCache creates a cache. A non-positive threshold uses DefaultThreshold.
// Stored queries are re-embedded on every lookup, so embed should be cached.
func NewCache(store Store, embed pipeline.EmbedFunc, threshold float64, p *pool.Pool, logger *slog.Logger) (*Cache, error) {
	if store == nil {
		return nil, helper.NewError("cache validation", fmt.Errorf("cache store is nil"))
	}
	if embed == nil {
		return nil, helper.NewError("cache validation", fmt.Errorf("embedder is nil"))
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if p == nil {
		p = pool.New(pool.DefaultSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		store:     store,
		embed:     embed,
		threshold: threshold,
		pool:      p,
		logger:    logger,
	}, nil
}

// Lookup searches deep answers first and normal answers second
func (c *Cache) Lookup(ctx context.Context, query string) (Result, error) {
	return c.LookupTags(ctx, query, model.CacheTagDeep, model.CacheTagNormal)
}

// LookupTags scans the pools of tags concurrently and returns the hit of the
// first tag in the given order that has one. Within a pool the oldest
// qualifying entry wins.
func (c *Cache) LookupTags(ctx context.Context, query string, tags ...model.CacheTag) (Result, error) {
	embedding, err := pool.Run(ctx, c.pool, func(ctx context.Context) ([]float32, error) {
		return c.embed(query)
	})
	if err != nil {
		return Result{}, helper.NewError("embed query", err)
	}

	results := make([]Result, len(tags))
	group, groupCtx := c.pool.Group(ctx)
	for i, tag := range tags {
		group.Go(func() error {
			result, err := c.scan(groupCtx, embedding, tag)
			if err != nil {
				return helper.NewError(fmt.Sprintf("scan %s cache", tag), err)
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	for _, result := range results {
		if result.Found {
			c.logger.Debug("Cache hit", slog.String("tag", string(result.Tag)), slog.Float64("similarity", result.Similarity))
			return result, nil
		}
	}
	return Result{}, nil
}

func (c *Cache) scan(ctx context.Context, embedding []float32, tag model.CacheTag) (Result, error) {
	entries, err := pool.Run(ctx, c.pool, func(ctx context.Context) ([]*model.CacheEntry, error) {
		return c.store.SelectCacheEntriesByTag(ctx, tag)
	})
	if err != nil {
		return Result{}, err
	}

	for _, entry := range entries {
		stored, err := pool.Run(ctx, c.pool, func(ctx context.Context) ([]float32, error) {
			return c.embed(entry.Query)
		})
		if err != nil {
			return Result{}, helper.NewError("embed stored query", err)
		}

		score, err := similarity.Cosine(embedding, stored)
		if errors.Is(err, similarity.ErrDegenerateVector) {
			continue
		}
		if err != nil {
			return Result{}, err
		}

		if score > c.threshold {
			return Result{
				Answer:     entry.Answer,
				Query:      entry.Query,
				Tag:        entry.Tag,
				Similarity: score,
				Found:      true,
			}, nil
		}
	}
	return Result{}, nil
}

// Store appends an answer under tag
func (c *Cache) Store(ctx context.Context, query string, answer string, tag model.CacheTag) error {
	if !tag.Valid() {
		return helper.NewError("cache tag validation", fmt.Errorf("invalid cache tag %q", tag))
	}

	// The store assigns CreatedAt and moves past entries with the same timestamp
	entry := &model.CacheEntry{
		Query:  query,
		Answer: answer,
		Tag:    tag,
	}
	err := c.pool.Do(ctx, func(ctx context.Context) error {
		return c.store.InsertCacheEntry(ctx, entry)
	})
	if err != nil {
		return helper.NewError("insert cache entry", err)
	}
	return nil
}
