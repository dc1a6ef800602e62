package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/medrag/helper"
)

// Chunk is a stored passage of source text together with its provenance
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	EntityTags []string  `json:"entity_tags,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// Record key variants seen in prebuilt chunk dictionaries.
var (
	textKeys     = []string{"text", "chunk_text", "content"}
	entityKeys   = []string{"entity_tags", "entities"}
	embeddingKey = "embedding"
)

// ChunkFromRecord converts a loosely typed chunk record into a Chunk.
// Text may be stored under text, chunk_text or content, entity tags under
// entity_tags or entities. Records without any text are rejected.
func ChunkFromRecord(record map[string]interface{}) (*Chunk, error) {
	chunk := &Chunk{
		ID:       uuid.New(),
		Metadata: Metadata{},
	}

	for _, key := range textKeys {
		if text, ok := record[key].(string); ok && text != "" {
			chunk.Text = text
			break
		}
	}
	if chunk.Text == "" {
		return nil, helper.NewError("chunk record", errors.New("record has no text"))
	}

	for _, key := range entityKeys {
		if raw, ok := record[key]; ok {
			tags, err := toStrings(raw)
			if err != nil {
				return nil, helper.NewError("chunk record "+key, err)
			}
			chunk.EntityTags = tags
			break
		}
	}

	if raw, ok := record[embeddingKey]; ok {
		embedding, err := toFloat32s(raw)
		if err != nil {
			return nil, helper.NewError("chunk record embedding", err)
		}
		chunk.Embedding = embedding
	}

	if meta, ok := record["metadata"].(map[string]interface{}); ok {
		chunk.Metadata = Metadata(meta)
	}
	if id, ok := record["id"].(string); ok {
		if parsed, err := uuid.Parse(id); err == nil {
			chunk.ID = parsed
		}
	}

	return chunk, nil
}

func toStrings(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", raw)
	}
}

func toFloat32s(raw interface{}) ([]float32, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []float32:
		return v, nil
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, nil
	case []interface{}:
		out := make([]float32, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("expected number, got %T", item)
			}
			out = append(out, float32(f))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of numbers, got %T", raw)
	}
}
