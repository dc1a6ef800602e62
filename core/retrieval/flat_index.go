package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/similarity"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// FlatIndex is an exact in-memory index using inner product over unit vectors
type FlatIndex struct {
	chunks  []*model.Chunk
	vectors [][]float32
	dim     int
}

// NewFlatIndex indexes chunks by their embeddings. All embeddings must share one dimension.
func NewFlatIndex(chunks []*model.Chunk) (*FlatIndex, error) {
	index := &FlatIndex{}
	for _, chunk := range chunks {
		if err := index.Add(chunk); err != nil {
			return nil, err
		}
	}
	return index, nil
}

// Add indexes one chunk
func (f *FlatIndex) Add(chunk *model.Chunk) error {
	if chunk == nil || len(chunk.Embedding) == 0 {
		return helper.NewError("flat index add", fmt.Errorf("chunk has no embedding"))
	}
	if f.dim != 0 && len(chunk.Embedding) != f.dim {
		return helper.NewError("flat index add", fmt.Errorf("dimension mismatch: %d != %d", len(chunk.Embedding), f.dim))
	}

	normalized, err := similarity.Normalize(chunk.Embedding)
	if err != nil {
		return helper.NewError("flat index add", err)
	}

	f.dim = len(chunk.Embedding)
	f.chunks = append(f.chunks, chunk)
	f.vectors = append(f.vectors, normalized)
	return nil
}

// Len returns the number of indexed chunks
func (f *FlatIndex) Len() int {
	return len(f.chunks)
}

// Search returns the k chunks with the highest inner product to the normalized embedding.
// Returned chunks are copies with Similarity set.
func (f *FlatIndex) Search(ctx context.Context, embedding []float32, k int) ([]*model.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(f.chunks) == 0 {
		return []*model.Chunk{}, nil
	}
	if len(embedding) != f.dim {
		return nil, helper.NewError("flat index search", fmt.Errorf("dimension mismatch: %d != %d", len(embedding), f.dim))
	}

	query, err := similarity.Normalize(embedding)
	if err != nil {
		return nil, helper.NewError("flat index search", err)
	}

	order := make([]int, len(f.chunks))
	scores := make([]float64, len(f.chunks))
	for i, vector := range f.vectors {
		order[i] = i
		scores[i] = similarity.Dot(query, vector)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if len(order) > k {
		order = order[:k]
	}

	results := make([]*model.Chunk, 0, len(order))
	for _, i := range order {
		hit := *f.chunks[i]
		hit.Similarity = scores[i]
		results = append(results, &hit)
	}
	return results, nil
}

// LoadFlatIndexFile reads a JSON chunk list from path, see LoadFlatIndex
func LoadFlatIndexFile(path string, embed pipeline.EmbedFunc) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, helper.NewError("open chunk file", err)
	}
	defer file.Close()

	return LoadFlatIndex(file, embed)
}

// LoadFlatIndex reads a JSON list of chunk records. Records without an
// embedding are embedded with embed, which may be nil if every record has one.
func LoadFlatIndex(r io.Reader, embed pipeline.EmbedFunc) (*FlatIndex, error) {
	var records []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, helper.NewError("decode chunk records", err)
	}

	index := &FlatIndex{}
	for i, record := range records {
		chunk, err := model.ChunkFromRecord(record)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("chunk record %d", i), err)
		}

		if len(chunk.Embedding) == 0 {
			if embed == nil {
				return nil, helper.NewError(fmt.Sprintf("chunk record %d", i), fmt.Errorf("record has no embedding and no embedder is set"))
			}
			chunk.Embedding, err = embed(chunk.Text)
			if err != nil {
				return nil, helper.NewError(fmt.Sprintf("embed chunk record %d", i), err)
			}
		}

		if err := index.Add(chunk); err != nil {
			return nil, err
		}
	}
	return index, nil
}
