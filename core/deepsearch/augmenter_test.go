package deepsearch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves fixed articles with their bodies
type fakeSource struct {
	articles  []Article
	bodies    map[string]string
	searchErr error

	mu         sync.Mutex
	keyword    string
	maxResults int
}

func (f *fakeSource) Search(_ context.Context, keyword string, maxResults int) ([]Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyword = keyword
	f.maxResults = maxResults
	return f.articles, f.searchErr
}

func (f *fakeSource) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

// testEmbedder counts device words
func testEmbedder(text string) ([]float32, error) {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "pacemaker")),
		float32(strings.Count(lower, "pump")),
		float32(strings.Count(lower, "stent")),
		0.1,
	}, nil
}

func plainText(data []byte) (string, error) {
	return string(data), nil
}

func testArticles() *fakeSource {
	return &fakeSource{
		articles: []Article{
			{PDFURL: "pdf/pacemaker", Metadata: model.Metadata{"title": "Pacemaker failures"}},
			{PDFURL: "pdf/pump", Metadata: model.Metadata{"title": "Insulin pump alarms"}},
		},
		bodies: map[string]string{
			"pdf/pacemaker": "Pacemaker leads fracture.  Pacemaker batteries last long.",
			"pdf/pump":      "Insulin pump occlusion alarms.\fPump failures were rare.",
		},
	}
}

func newTestAugmenter(t *testing.T, source Source, keywords KeywordFunc) *Augmenter {
	augmenter, err := NewAugmenter(source, keywords, testEmbedder, 1, pool.New(4), nil)
	require.NoError(t, err, "Expected NewAugmenter to not return an error")
	augmenter.SetTextExtractor(plainText)
	return augmenter
}

func identityKeywords(query string) string {
	return query
}

func TestNewAugmenter(t *testing.T) {
	t.Run("Nil source", func(t *testing.T) {
		_, err := NewAugmenter(nil, identityKeywords, testEmbedder, 1, nil, nil)
		assert.Error(t, err, "Expected error for nil source")
	})

	t.Run("Nil keywords", func(t *testing.T) {
		_, err := NewAugmenter(testArticles(), nil, testEmbedder, 1, nil, nil)
		assert.Error(t, err, "Expected error for nil keyword extractor")
	})

	t.Run("Nil embedder", func(t *testing.T) {
		_, err := NewAugmenter(testArticles(), identityKeywords, nil, 1, nil, nil)
		assert.Error(t, err, "Expected error for nil embedder")
	})

	t.Run("Defaults", func(t *testing.T) {
		augmenter, err := NewAugmenter(testArticles(), identityKeywords, testEmbedder, 0, nil, nil)
		require.NoError(t, err, "Expected NewAugmenter to not return an error")
		assert.NotNil(t, augmenter.pool, "Expected default pool")
		assert.NotNil(t, augmenter.logger, "Expected default logger")
		assert.NotNil(t, augmenter.extract, "Expected default text extractor")
	})
}

func TestAugment(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns nearest windows with article metadata", func(t *testing.T) {
		source := testArticles()
		augmenter := newTestAugmenter(t, source, identityKeywords)

		chunks, err := augmenter.Augment(ctx, "pacemaker battery", 5, 2)
		require.NoError(t, err, "Expected Augment to not return an error")
		require.Len(t, chunks, 2, "Expected k chunks")
		for _, chunk := range chunks {
			assert.Equal(t, "Pacemaker failures", chunk.Metadata.Title(), "Expected pacemaker article metadata")
			assert.Contains(t, chunk.Text, "Pacemaker", "Expected pacemaker window")
			assert.Greater(t, chunk.Similarity, 0.9, "Expected high similarity")
		}
		assert.Equal(t, "pacemaker battery", source.keyword, "Expected keyword search")
		assert.Equal(t, 5, source.maxResults, "Expected number of sources")
	})

	t.Run("Cleans extracted text", func(t *testing.T) {
		augmenter := newTestAugmenter(t, testArticles(), identityKeywords)

		chunks, err := augmenter.Augment(ctx, "pump", 5, 1)
		require.NoError(t, err, "Expected Augment to not return an error")
		require.Len(t, chunks, 1, "Expected one chunk")
		assert.Equal(t, "Insulin pump alarms", chunks[0].Metadata.Title(), "Expected pump article")
		assert.NotContains(t, chunks[0].Text, "\f", "Expected page breaks removed")
	})

	t.Run("Fewer windows than k", func(t *testing.T) {
		augmenter := newTestAugmenter(t, testArticles(), identityKeywords)

		chunks, err := augmenter.Augment(ctx, "pacemaker", 5, 10)
		require.NoError(t, err, "Expected Augment to not return an error")
		assert.Len(t, chunks, 4, "Expected all windows")
	})

	t.Run("No articles", func(t *testing.T) {
		augmenter := newTestAugmenter(t, &fakeSource{}, identityKeywords)

		chunks, err := augmenter.Augment(ctx, "pacemaker", 5, 7)
		require.NoError(t, err, "Expected Augment to not return an error")
		assert.Empty(t, chunks, "Expected no chunks")
	})

	t.Run("Empty keywords", func(t *testing.T) {
		augmenter := newTestAugmenter(t, testArticles(), func(string) string { return "" })

		_, err := augmenter.Augment(ctx, "the and of", 5, 7)
		assert.Error(t, err, "Expected error without keywords")
	})

	t.Run("Search error", func(t *testing.T) {
		source := testArticles()
		source.searchErr = errors.New("unavailable")
		augmenter := newTestAugmenter(t, source, identityKeywords)

		_, err := augmenter.Augment(ctx, "pacemaker", 5, 7)
		assert.Error(t, err, "Expected search error")
	})

	t.Run("Fetch error", func(t *testing.T) {
		source := testArticles()
		delete(source.bodies, "pdf/pump")
		augmenter := newTestAugmenter(t, source, identityKeywords)

		_, err := augmenter.Augment(ctx, "pacemaker", 5, 7)
		assert.Error(t, err, "Expected fetch error")
	})

	t.Run("Extraction error", func(t *testing.T) {
		augmenter := newTestAugmenter(t, testArticles(), identityKeywords)
		augmenter.SetTextExtractor(func([]byte) (string, error) {
			return "", errors.New("broken pdf")
		})

		_, err := augmenter.Augment(ctx, "pacemaker", 5, 7)
		assert.Error(t, err, "Expected extraction error")
	})
}
