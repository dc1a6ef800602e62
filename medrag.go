package medrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/siherrmann/medrag/core/cache"
	"github.com/siherrmann/medrag/core/deepsearch"
	"github.com/siherrmann/medrag/core/evaluation"
	"github.com/siherrmann/medrag/core/graph"
	"github.com/siherrmann/medrag/core/llm"
	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/core/retrieval"
	"github.com/siherrmann/medrag/database"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
	loadSql "github.com/siherrmann/medrag/sql"
)

// ingestSentences is the number of sentences per chunk when ingesting documents
const ingestSentences = 5

// Components are the collaborators of a Researcher
type Components struct {
	Index     retrieval.VectorIndex
	Graph     graph.Store
	Store     cache.Store
	Embed     pipeline.EmbedFunc
	Seeds     pipeline.SeedExtractFunc
	Completer llm.Completer
	// Optional, deep search runs without fresh papers if nil
	Source        deepsearch.Source
	Keywords      deepsearch.KeywordFunc
	TextExtractor deepsearch.TextExtractFunc
	Logger        *slog.Logger
}

// Researcher answers research questions over the indexed literature and,
// in deep mode, over freshly fetched papers
type Researcher struct {
	DB       *helper.Database
	Chunks   *database.ChunksDBHandler
	Graph    *database.KnowledgeGraph
	Pipeline *pipeline.Pipeline // Optional ingestion pipeline

	config    model.SearchConfig
	cache     *cache.Cache
	expander  *llm.Expander
	engine    *retrieval.Engine
	generator *llm.Generator
	evaluator *evaluation.Evaluator
	augmenter *deepsearch.Augmenter
	pool      *pool.Pool
	closers   []func(ctx context.Context) error
	// Logging
	log *slog.Logger
}

// NewResearcher creates a researcher backed by Postgres, the configured cache
// backend, local hugot models and the configured chat model
func NewResearcher(ctx context.Context, dbConfig *helper.DatabaseConfiguration, llmConfig *helper.LLMConfiguration, cacheConfig *helper.CacheConfiguration, config model.SearchConfig) (*Researcher, error) {
	logger := helper.NewLogger(os.Stdout, helper.DebugEnabled())

	// Initialize database
	db := helper.NewDatabase("medrag", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	chunks, err := database.NewChunksDBHandler(db, pipeline.DefaultEmbeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	knowledgeGraph, err := database.NewKnowledgeGraph(db, false)
	if err != nil {
		return nil, helper.NewError("create knowledge graph", err)
	}

	var store cache.Store
	var closers []func(ctx context.Context) error
	switch cacheConfig.Backend {
	case "mongo":
		mongoStore, err := cache.NewMongoStore(ctx, cacheConfig.MongoURI, cacheConfig.MongoDatabase)
		if err != nil {
			return nil, helper.NewError("create mongo cache store", err)
		}
		store = mongoStore
		closers = append(closers, mongoStore.Close)
	default:
		cacheHandler, err := database.NewCacheDBHandler(db, false)
		if err != nil {
			return nil, helper.NewError("create cache handler", err)
		}
		store = cacheHandler
	}

	embed, err := pipeline.DefaultEmbedder()
	if err != nil {
		return nil, helper.NewError("create default embedder", err)
	}

	// Noun phrases stand in for sentence subjects and objects, entity names catch the rest
	seeds := pipeline.SyntacticSeedExtractor()
	extractor, err := pipeline.DefaultEntityExtractor()
	if err != nil {
		logger.Warn("Entity extractor unavailable, using noun phrase seeds only", slog.String("error", err.Error()))
		extractor = nil
	} else {
		seeds = pipeline.FallbackSeedExtractor(seeds, pipeline.EntitySeedExtractor(extractor))
	}

	keywords, err := pipeline.NewKeywordExtractor()
	if err != nil {
		return nil, helper.NewError("create keyword extractor", err)
	}

	completer, err := llm.NewLangChainCompleter(llmConfig)
	if err != nil {
		return nil, helper.NewError("create completer", err)
	}

	r, err := NewResearcherFromComponents(Components{
		Index:     chunks,
		Graph:     knowledgeGraph,
		Store:     store,
		Embed:     embed,
		Seeds:     seeds,
		Completer: completer,
		Source:    deepsearch.NewArxivSource("", deepsearch.DefaultFetchTimeout),
		Keywords:  keywords.Keywords,
		Logger:    logger,
	}, config)
	if err != nil {
		return nil, err
	}

	r.DB = db
	r.Chunks = chunks
	r.Graph = knowledgeGraph
	r.closers = append(r.closers, closers...)

	r.Pipeline = pipeline.NewPipeline(pipeline.SentenceChunker(ingestSentences), embed)
	if extractor != nil {
		r.Pipeline.SetEntityExtractor(extractor)
	}

	return r, nil
}

// NewResearcherFromComponents wires a researcher from explicit collaborators.
// Zero values in config are replaced by defaults.
func NewResearcherFromComponents(c Components, config model.SearchConfig) (*Researcher, error) {
	if c.Embed == nil {
		return nil, helper.NewError("researcher validation", fmt.Errorf("embedder is nil"))
	}
	if c.Seeds == nil {
		return nil, helper.NewError("researcher validation", fmt.Errorf("seed extractor is nil"))
	}

	config = config.WithDefaults()
	logger := c.Logger
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, helper.DebugEnabled())
	}
	p := pool.New(config.PoolSize)

	embed, err := pipeline.CachedEmbedder(c.Embed, config.EmbeddingCacheSize)
	if err != nil {
		return nil, helper.NewError("create embedding cache", err)
	}

	answerCache, err := cache.NewCache(c.Store, embed, config.CacheThreshold, p, logger)
	if err != nil {
		return nil, err
	}

	expander, err := llm.NewExpander(c.Completer, config.Subqueries)
	if err != nil {
		return nil, err
	}

	lookup, err := graph.NewLookup(c.Graph, c.Seeds, config.GraphMethod)
	if err != nil {
		return nil, err
	}

	engine, err := retrieval.NewEngine(c.Index, lookup, embed, p, logger)
	if err != nil {
		return nil, err
	}

	generator, err := llm.NewGenerator(c.Completer)
	if err != nil {
		return nil, err
	}

	drafter, err := evaluation.NewDrafter(c.Completer, logger)
	if err != nil {
		return nil, err
	}

	evaluator, err := evaluation.NewEvaluator(embed, drafter, config.RedraftThreshold, p, logger)
	if err != nil {
		return nil, err
	}

	var augmenter *deepsearch.Augmenter
	if c.Source != nil {
		keywords := c.Keywords
		if keywords == nil {
			keywords = func(query string) string {
				return strings.Join(pipeline.ContentWords(strings.ToLower(query)), " ")
			}
		}

		augmenter, err = deepsearch.NewAugmenter(c.Source, keywords, embed, config.SentencesPerWindow, p, logger)
		if err != nil {
			return nil, err
		}
		if c.TextExtractor != nil {
			augmenter.SetTextExtractor(c.TextExtractor)
		}
	}

	return &Researcher{
		config:    config,
		cache:     answerCache,
		expander:  expander,
		engine:    engine,
		generator: generator,
		evaluator: evaluator,
		augmenter: augmenter,
		pool:      p,
		log:       logger,
	}, nil
}

// Close releases the cache backend and the database connection
func (r *Researcher) Close(ctx context.Context) error {
	for _, closer := range r.closers {
		if err := closer(ctx); err != nil {
			return helper.NewError("close", err)
		}
	}
	if r.DB != nil && r.DB.Instance != nil {
		return r.DB.Instance.Close()
	}
	return nil
}

// Search answers query. The answer carries scholar links for its sources and
// a quality assessment block, and is written to the cache.
func (r *Researcher) Search(ctx context.Context, query string, mode model.SearchMode, temperature float64) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", helper.NewError("search", fmt.Errorf("query is empty"))
	}

	switch mode {
	case model.SearchModeNormal, "":
		return r.normalSearch(ctx, query, temperature)
	case model.SearchModeDeep:
		return r.deepSearch(ctx, query, temperature)
	default:
		return "", helper.NewError("search", fmt.Errorf("unknown search mode %q", mode))
	}
}

func (r *Researcher) normalSearch(ctx context.Context, query string, temperature float64) (string, error) {
	hit, subqueries, err := r.lookupAndExpand(ctx, query, model.CacheTagDeep, model.CacheTagNormal)
	if err != nil || hit.Found {
		return hit.Answer, err
	}

	depth := r.config.ForMode(model.SearchModeNormal)
	matches, disclaimer, err := r.retrieveAll(ctx, subqueries, depth.RetrieveK)
	if err != nil {
		return "", err
	}
	ranked := retrieval.Rank(matches, depth.RankK)

	answer, err := r.generate(ctx, query, ranked, disclaimer, temperature)
	if err != nil {
		return "", err
	}

	return r.finish(ctx, query, ranked, answer, model.CacheTagNormal)
}

// deepSearch only reuses deep answers. Fresh papers come first in the context.
func (r *Researcher) deepSearch(ctx context.Context, query string, temperature float64) (string, error) {
	hit, subqueries, err := r.lookupAndExpand(ctx, query, model.CacheTagDeep)
	if err != nil || hit.Found {
		return hit.Answer, err
	}

	depth := r.config.ForMode(model.SearchModeDeep)
	var fresh []*model.Chunk
	var matches []model.RetrievedMatch

	group, groupCtx := r.pool.Group(ctx)
	group.Go(func() error {
		fresh = r.augment(groupCtx, query)
		return nil
	})
	group.Go(func() error {
		var err error
		matches, _, err = r.retrieveAll(groupCtx, subqueries, depth.RetrieveK)
		return err
	})
	if err := group.Wait(); err != nil {
		return "", err
	}

	ranked := retrieval.Rank(matches, depth.RankK)
	chunks := make([]model.RankedChunk, 0, len(fresh)+len(ranked))
	for _, chunk := range fresh {
		chunks = append(chunks, model.RankedChunk{Metadata: chunk.Metadata, Text: chunk.Text})
	}
	chunks = append(chunks, ranked...)

	answer, err := r.generate(ctx, query, chunks, "", temperature)
	if err != nil {
		return "", err
	}

	return r.finish(ctx, query, chunks, answer, model.CacheTagDeep)
}

// lookupAndExpand runs the cache lookup over tags next to query expansion.
// A failed lookup counts as a miss, a failed expansion only matters on a miss.
func (r *Researcher) lookupAndExpand(ctx context.Context, query string, tags ...model.CacheTag) (cache.Result, []string, error) {
	var hit cache.Result
	var subqueries []string
	var expandErr error

	group, groupCtx := r.pool.Group(ctx)
	group.Go(func() error {
		result, err := r.cache.LookupTags(groupCtx, query, tags...)
		if err != nil {
			r.log.Warn("Cache lookup failed, continuing without cache", slog.String("error", err.Error()))
			return nil
		}
		hit = result
		return nil
	})
	group.Go(func() error {
		subqueries, expandErr = pool.Run(groupCtx, r.pool, func(ctx context.Context) ([]string, error) {
			return r.expander.Expand(ctx, query)
		})
		return nil
	})
	if err := group.Wait(); err != nil {
		return cache.Result{}, nil, err
	}

	if hit.Found {
		r.log.Info("Answered from cache", slog.String("tag", string(hit.Tag)), slog.Float64("similarity", hit.Similarity))
		return hit, nil, nil
	}
	if expandErr != nil {
		return cache.Result{}, nil, expandErr
	}

	r.log.Debug("Expanded query", slog.String("query", query), slog.Int("subqueries", len(subqueries)))
	return hit, subqueries, nil
}

// retrieveAll retrieves every subquery concurrently. Matches are merged in
// subquery order and the first non-empty disclaimer is returned.
func (r *Researcher) retrieveAll(ctx context.Context, subqueries []string, k int) ([]model.RetrievedMatch, string, error) {
	results := make([][]model.RetrievedMatch, len(subqueries))
	disclaimers := make([]string, len(subqueries))

	group, groupCtx := r.pool.Group(ctx)
	for i, subquery := range subqueries {
		group.Go(func() error {
			matches, disclaimer, err := r.engine.Retrieve(groupCtx, subquery, k)
			if err != nil {
				return helper.NewError(fmt.Sprintf("retrieve subquery %d", i), err)
			}
			results[i] = matches
			disclaimers[i] = disclaimer
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, "", err
	}

	var merged []model.RetrievedMatch
	for _, matches := range results {
		merged = append(merged, matches...)
	}

	disclaimer := ""
	for _, d := range disclaimers {
		if d != "" {
			disclaimer = d
			break
		}
	}
	return merged, disclaimer, nil
}

// augment fetches fresh papers within the deep search timeout.
// Failures are logged and yield no chunks.
func (r *Researcher) augment(ctx context.Context, query string) []*model.Chunk {
	if r.augmenter == nil {
		r.log.Info("No document source configured, skipping deep augmentation")
		return nil
	}

	augmentCtx, cancel := context.WithTimeout(ctx, r.config.DeepTimeout)
	defer cancel()

	chunks, err := r.augmenter.Augment(augmentCtx, query, r.config.DeepSources, r.config.DeepChunks)
	if err != nil {
		r.log.Warn("Deep augmentation failed, continuing without fresh papers", slog.String("error", err.Error()))
		return nil
	}

	r.log.Info("Deep augmentation", slog.Int("chunks", len(chunks)))
	return chunks
}

func (r *Researcher) generate(ctx context.Context, query string, chunks []model.RankedChunk, disclaimer string, temperature float64) (string, error) {
	return pool.Run(ctx, r.pool, func(ctx context.Context) (string, error) {
		return r.generator.Generate(ctx, query, chunks, disclaimer, temperature)
	})
}

// finish evaluates and possibly redrafts the answer, appends source links and
// the assessment and writes the result to the cache under tag
func (r *Researcher) finish(ctx context.Context, query string, chunks []model.RankedChunk, answer string, tag model.CacheTag) (string, error) {
	revision, err := r.evaluator.EvaluateAndRevise(ctx, query, chunks, answer)
	if err != nil {
		return "", err
	}

	final := llm.AppendLinks(revision.Answer, llm.ScholarLinks(revision.Answer))
	final += evaluation.FormatScore(revision.Score)

	if err := r.cache.Store(ctx, query, final, tag); err != nil {
		r.log.Warn("Cache write failed", slog.String("error", err.Error()))
	}

	r.log.Info("Answered query", slog.String("tag", string(tag)), slog.Float64("overall", revision.Score.Overall), slog.Bool("revised", revision.Revised))
	return final, nil
}

// Ingest splits text into chunks, embeds and tags them and stores them in the index
func (r *Researcher) Ingest(ctx context.Context, text string, metadata model.Metadata) (int, error) {
	if r.Pipeline == nil || r.Chunks == nil {
		return 0, helper.NewError("ingest", fmt.Errorf("pipeline and chunk store are required"))
	}
	if strings.TrimSpace(text) == "" {
		return 0, helper.NewError("ingest", fmt.Errorf("text is empty"))
	}

	chunks, err := r.Pipeline.Process(text, metadata)
	if err != nil {
		return 0, helper.NewError("process text", err)
	}

	for i, chunk := range chunks {
		if err := r.Chunks.InsertChunk(ctx, chunk); err != nil {
			return i, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	r.log.Info("Ingested text", slog.String("title", metadata.Title()), slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// AddRelation connects two entities of the knowledge graph
func (r *Researcher) AddRelation(ctx context.Context, source string, target string, relation string, bidirectional bool) (*model.Edge, error) {
	if r.Graph == nil {
		return nil, helper.NewError("add relation", fmt.Errorf("knowledge graph not initialized"))
	}
	return r.Graph.AddRelation(ctx, source, target, relation, bidirectional)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (r *Researcher) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	if r.Chunks == nil {
		return helper.NewError("change index type", fmt.Errorf("chunk store not initialized"))
	}
	return r.Chunks.ChangeIndexType(ctx, indexType, params)
}
