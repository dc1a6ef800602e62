package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/medrag"
	"github.com/siherrmann/medrag/core/cache"
	"github.com/siherrmann/medrag/core/deepsearch"
	"github.com/siherrmann/medrag/core/graph"
	"github.com/siherrmann/medrag/core/llm"
	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/retrieval"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// Prebuilt chunk dictionary with precomputed embeddings and the knowledge graph
const (
	defaultChunksPath = "./data/chunks.json"
	defaultGraphPath  = "./data/knowledge_graph.gexf"
)

func main() {
	ctx := context.Background()

	chunksPath := defaultChunksPath
	graphPath := defaultGraphPath
	if len(os.Args) > 2 {
		chunksPath, graphPath = os.Args[1], os.Args[2]
	}
	query := "What is the best continuous glucose monitoring device?"
	if len(os.Args) > 3 {
		query = os.Args[3]
	}

	embed, err := pipeline.DefaultEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	fmt.Printf("Loading chunks from %s\n", chunksPath)
	index, err := retrieval.LoadFlatIndexFile(chunksPath, embed)
	if err != nil {
		log.Fatalf("Failed to load chunks: %v", err)
	}
	fmt.Printf("Loaded %d chunks\n", index.Len())

	fmt.Printf("Loading knowledge graph from %s\n", graphPath)
	knowledgeGraph, err := graph.LoadGEXFFile(graphPath)
	if err != nil {
		log.Fatalf("Failed to load knowledge graph: %v", err)
	}
	fmt.Printf("Loaded %d nodes\n", knowledgeGraph.NodeCount())

	// Cache answers in MongoDB, starting a container if no URI is configured
	mongoURI := os.Getenv("MEDRAG_MONGO_URI")
	if mongoURI == "" {
		teardown, uri, err := helper.MustStartMongoContainer()
		if err != nil {
			log.Fatalf("Failed to start mongo container: %v", err)
		}
		defer teardown(ctx)
		mongoURI = uri
	}
	store, err := cache.NewMongoStore(ctx, mongoURI, "medrag")
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer store.Close(ctx)

	llmConfig, err := helper.NewLLMConfiguration()
	if err != nil {
		log.Fatalf("Failed to read LLM configuration: %v", err)
	}
	completer, err := llm.NewLangChainCompleter(llmConfig)
	if err != nil {
		log.Fatalf("Failed to create completer: %v", err)
	}

	keywords, err := pipeline.NewKeywordExtractor()
	if err != nil {
		log.Fatalf("Failed to create keyword extractor: %v", err)
	}

	r, err := medrag.NewResearcherFromComponents(medrag.Components{
		Index:     index,
		Graph:     knowledgeGraph,
		Store:     store,
		Embed:     embed,
		Seeds:     pipeline.SyntacticSeedExtractor(),
		Completer: completer,
		Source:    deepsearch.NewArxivSource("", deepsearch.DefaultFetchTimeout),
		Keywords:  keywords.Keywords,
	}, model.DefaultSearchConfig())
	if err != nil {
		log.Fatalf("Failed to create researcher: %v", err)
	}

	for _, mode := range []model.SearchMode{model.SearchModeNormal, model.SearchModeDeep} {
		fmt.Printf("\n=== %s search: %s ===\n", mode, query)
		answer, err := r.Search(ctx, query, mode, 0.5)
		if err != nil {
			log.Fatalf("Failed to search: %v", err)
		}
		fmt.Println(answer)
	}
}
