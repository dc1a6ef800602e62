package pipeline

import (
	"errors"

	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// EmbedFunc maps text to a fixed length vector
type EmbedFunc func(text string) ([]float32, error)

// ChunkFunc splits text into passages
type ChunkFunc func(text string) ([]string, error)

// EntityExtractFunc extracts named entities from text
type EntityExtractFunc func(text string) ([]*model.Entity, error)

// SeedExtractFunc extracts the entity mentions of a query used to enter the knowledge graph
type SeedExtractFunc func(text string) ([]string, error)

// Pipeline turns raw text into embedded, tagged chunks
type Pipeline struct {
	Chunker         ChunkFunc
	Embedder        EmbedFunc
	EntityExtractor EntityExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetEntityExtractor sets the entity extraction function used for chunk entity tags
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// Process splits text, embeds every passage and tags it with extracted entity names.
// Every chunk gets a copy of metadata. Entity extraction errors leave the chunk untagged.
func (p *Pipeline) Process(text string, metadata model.Metadata) ([]*model.Chunk, error) {
	if p.Chunker == nil || p.Embedder == nil {
		return nil, helper.NewError("pipeline validation", errors.New("chunker and embedder are required"))
	}

	passages, err := p.Chunker(text)
	if err != nil {
		return nil, helper.NewError("chunk", err)
	}

	chunks := make([]*model.Chunk, 0, len(passages))
	for _, passage := range passages {
		embedding, err := p.Embedder(passage)
		if err != nil {
			return nil, helper.NewError("embed", err)
		}

		chunk := &model.Chunk{
			Text:      passage,
			Metadata:  copyMetadata(metadata),
			Embedding: embedding,
		}

		if p.EntityExtractor != nil {
			entities, err := p.EntityExtractor(passage)
			if err == nil {
				for _, entity := range entities {
					chunk.EntityTags = append(chunk.EntityTags, entity.Name)
				}
			}
		}

		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

func copyMetadata(metadata model.Metadata) model.Metadata {
	out := make(model.Metadata, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
