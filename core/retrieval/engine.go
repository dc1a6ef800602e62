// Package retrieval combines vector search with knowledge graph matches and ranks the results.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/medrag/core/graph"
	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/core/similarity"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// FallbackDisclaimer is returned when no vector hit matched a graph tag
const FallbackDisclaimer = "Try using deep search for more accurate results."

// VectorIndex is a nearest neighbour index over chunk embeddings
type VectorIndex interface {
	Search(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error)
}

// TagSource returns groups of graph entity names related to a subquery
type TagSource interface {
	Tags(ctx context.Context, subquery string) ([][]string, error)
}

// Engine provides hybrid retrieval over a vector index and a knowledge graph
type Engine struct {
	index  VectorIndex
	tags   TagSource
	embed  pipeline.EmbedFunc
	pool   *pool.Pool
	logger *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(index VectorIndex, tags TagSource, embed pipeline.EmbedFunc, p *pool.Pool, logger *slog.Logger) (*Engine, error) {
	if index == nil {
		return nil, helper.NewError("retrieval engine validation", fmt.Errorf("vector index is nil"))
	}
	if tags == nil {
		return nil, helper.NewError("retrieval engine validation", fmt.Errorf("tag source is nil"))
	}
	if embed == nil {
		return nil, helper.NewError("retrieval engine validation", fmt.Errorf("embedder is nil"))
	}
	if p == nil {
		p = pool.New(pool.DefaultSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		index:  index,
		tags:   tags,
		embed:  embed,
		pool:   p,
		logger: logger,
	}, nil
}

// VectorRetrieve embeds the subquery and returns its k nearest chunks
func (e *Engine) VectorRetrieve(ctx context.Context, subquery string, k int) ([]*model.Chunk, error) {
	return pool.Run(ctx, e.pool, func(ctx context.Context) ([]*model.Chunk, error) {
		embedding, err := e.embed(subquery)
		if err != nil {
			return nil, helper.NewError("embed subquery", err)
		}
		normalized, err := similarity.Normalize(embedding)
		if err != nil {
			return nil, helper.NewError("normalize subquery", err)
		}

		chunks, err := e.index.Search(ctx, normalized, k)
		if err != nil {
			return nil, helper.NewError("vector search", err)
		}
		return chunks, nil
	})
}

// Retrieve runs vector search and graph lookup concurrently and keeps the hits
// whose entity tags match the graph neighbourhood of the subquery.
// If nothing matches, every vector hit is returned with a zero match count
// together with FallbackDisclaimer.
func (e *Engine) Retrieve(ctx context.Context, subquery string, k int) ([]model.RetrievedMatch, string, error) {
	var chunks []*model.Chunk
	var groups [][]string

	group, groupCtx := e.pool.Group(ctx)
	group.Go(func() error {
		var err error
		chunks, err = e.VectorRetrieve(groupCtx, subquery, k)
		return err
	})
	group.Go(func() error {
		var err error
		groups, err = pool.Run(groupCtx, e.pool, func(ctx context.Context) ([][]string, error) {
			return e.tags.Tags(ctx, subquery)
		})
		if err != nil {
			return helper.NewError("graph lookup", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, "", err
	}

	matches := MatchTags(chunks, graph.Flatten(groups))
	if len(matches) > 0 {
		e.logger.Debug("Retrieved matching chunks", slog.String("subquery", subquery), slog.Int("matches", len(matches)))
		return matches, "", nil
	}

	e.logger.Info("No graph match, using all vector hits", slog.String("subquery", subquery), slog.String("disclaimer", FallbackDisclaimer))
	fallback := make([]model.RetrievedMatch, 0, len(chunks))
	for _, chunk := range chunks {
		fallback = append(fallback, model.RetrievedMatch{Chunk: chunk})
	}
	return fallback, FallbackDisclaimer, nil
}

// MatchTags counts for each chunk how often the tags occur in its entity tags
// and keeps the chunks with at least one occurrence, in input order.
// Repeated tags count repeatedly.
func MatchTags(chunks []*model.Chunk, tags []string) []model.RetrievedMatch {
	var matches []model.RetrievedMatch
	if len(tags) == 0 {
		return matches
	}

	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}

		frequency := make(map[string]int, len(chunk.EntityTags))
		for _, tag := range chunk.EntityTags {
			frequency[tag]++
		}

		count := 0
		for _, tag := range tags {
			count += frequency[tag]
		}
		if count > 0 {
			matches = append(matches, model.RetrievedMatch{Chunk: chunk, MatchCount: count})
		}
	}
	return matches
}
