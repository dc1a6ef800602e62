package medrag

import (
	"context"
	"testing"

	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/database"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initResearcher(t *testing.T, completer *routedCompleter) (*Researcher, *database.CacheDBHandler) {
	db := initDB(t)

	chunks, err := database.NewChunksDBHandler(db, len(vocabulary)+1, true)
	require.NoError(t, err, "Expected chunks handler to be created")
	knowledgeGraph, err := database.NewKnowledgeGraph(db, true)
	require.NoError(t, err, "Expected knowledge graph to be created")
	cacheHandler, err := database.NewCacheDBHandler(db, true)
	require.NoError(t, err, "Expected cache handler to be created")

	components := testComponents(t, completer, nil, nil)
	components.Index = chunks
	components.Graph = knowledgeGraph
	components.Store = cacheHandler

	r, err := NewResearcherFromComponents(components, model.SearchConfig{})
	require.NoError(t, err, "Expected NewResearcherFromComponents to not return an error")

	r.DB = db
	r.Chunks = chunks
	r.Graph = knowledgeGraph
	r.Pipeline = pipeline.NewPipeline(pipeline.SentenceChunker(1), testEmbedder)
	r.Pipeline.SetEntityExtractor(testEntities)

	t.Cleanup(func() {
		r.Close(context.Background())
	})

	return r, cacheHandler
}

func TestResearcherWithDatabase(t *testing.T) {
	ctx := context.Background()
	completer := defaultCompleter()
	r, cacheHandler := initResearcher(t, completer)

	t.Run("Ingest stores tagged chunks", func(t *testing.T) {
		count, err := r.Ingest(ctx, "Pacemaker lead fracture rates were low. Insulin pump occlusion alarms were frequent.", model.Metadata{"title": "Device registry", "authors": []string{"Doe"}})
		require.NoError(t, err, "Expected Ingest to not return an error")
		assert.Equal(t, 2, count, "Expected one chunk per sentence")

		stored, err := r.Chunks.CountChunks(ctx)
		require.NoError(t, err, "Expected CountChunks to not return an error")
		assert.GreaterOrEqual(t, stored, 2, "Expected chunks in the database")
	})

	t.Run("Ingest rejects empty text", func(t *testing.T) {
		_, err := r.Ingest(ctx, " ", model.Metadata{})
		assert.Error(t, err, "Expected error for empty text")
	})

	t.Run("Add relation", func(t *testing.T) {
		edge, err := r.AddRelation(ctx, "pacemaker", "lead", "has_part", true)
		require.NoError(t, err, "Expected AddRelation to not return an error")
		assert.True(t, edge.Bidirectional, "Expected bidirectional edge")

		neighbors, err := r.Graph.Neighbors(ctx, "lead")
		require.NoError(t, err, "Expected Neighbors to not return an error")
		assert.Contains(t, neighbors, "pacemaker", "Expected pacemaker neighbor")
	})

	t.Run("Search over the stored corpus", func(t *testing.T) {
		answer, err := r.Search(ctx, "pacemaker lead", model.SearchModeNormal, 0.5)
		require.NoError(t, err, "Expected Search to not return an error")
		assert.Contains(t, answer, scholarLink, "Expected scholar link")

		prompts := completer.answerPrompts()
		require.NotEmpty(t, prompts, "Expected a generation call")
		assert.Contains(t, prompts[len(prompts)-1].User, "Device registry", "Expected ingested chunk in context")

		entries, err := cacheHandler.SelectCacheEntriesByTag(ctx, model.CacheTagNormal)
		require.NoError(t, err, "Expected SelectCacheEntriesByTag to not return an error")
		require.NotEmpty(t, entries, "Expected cached answer")
		assert.Equal(t, answer, entries[len(entries)-1].Answer, "Expected stored answer")
	})

	t.Run("Change index type", func(t *testing.T) {
		err := r.ChangeIndexType(ctx, "hnsw", map[string]interface{}{"m": 8})
		assert.NoError(t, err, "Expected ChangeIndexType to not return an error")

		err = r.ChangeIndexType(ctx, "flat", nil)
		assert.Error(t, err, "Expected error for unsupported index type")
	})
}
