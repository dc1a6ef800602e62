package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	entries []*model.CacheEntry
	err     error
}

func (s *memoryStore) InsertCacheEntry(_ context.Context, entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryStore) SelectCacheEntriesByTag(_ context.Context, tag model.CacheTag) ([]*model.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.CacheEntry
	for _, entry := range s.entries {
		if entry.Tag == tag {
			out = append(out, entry)
		}
	}
	return out, nil
}

var testVectors = map[string][]float32{
	"pacemaker battery life":          {1, 0, 0},
	"how long do pacemaker batteries": {0.95, 0.3, 0},
	"insulin pump occlusion":          {0, 1, 0},
	"zero":                            {0, 0, 0},
	"glucose monitor":                 {1, 0, 0},
	"glucose monitoring device":       {0.85, 0.526783, 0},
	"glucose test strips":             {0.5, 0.866025, 0},
}

func testEmbed(text string) ([]float32, error) {
	if v, ok := testVectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func newTestCache(t *testing.T, store Store, threshold float64) *Cache {
	c, err := NewCache(store, testEmbed, threshold, pool.New(4), nil)
	require.NoError(t, err, "Expected NewCache to not return an error")
	return c
}

func TestNewCache(t *testing.T) {
	t.Run("Default threshold", func(t *testing.T) {
		c := newTestCache(t, &memoryStore{}, 0)
		assert.Equal(t, DefaultThreshold, c.threshold, "Expected default threshold")
	})

	t.Run("Missing collaborators", func(t *testing.T) {
		_, err := NewCache(nil, testEmbed, 0, nil, nil)
		assert.Error(t, err, "Expected error for nil store")

		_, err = NewCache(&memoryStore{}, nil, 0, nil, nil)
		assert.Error(t, err, "Expected error for nil embedder")
	})
}

func TestLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("Miss on empty cache", func(t *testing.T) {
		c := newTestCache(t, &memoryStore{}, 0)
		result, err := c.Lookup(ctx, "pacemaker battery life")
		require.NoError(t, err, "Expected no error on miss")
		assert.False(t, result.Found, "Expected miss")
	})

	t.Run("Hit on similar query", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "how long do pacemaker batteries", "About ten years.", model.CacheTagNormal), "Expected Store to succeed")

		result, err := c.Lookup(ctx, "pacemaker battery life")
		require.NoError(t, err, "Expected no error")
		assert.True(t, result.Found, "Expected hit")
		assert.Equal(t, "About ten years.", result.Answer, "Expected stored answer")
		assert.Greater(t, result.Similarity, DefaultThreshold, "Expected similarity above threshold")
	})

	t.Run("Unrelated query misses", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "insulin pump occlusion", "Check the infusion set.", model.CacheTagNormal), "Expected Store to succeed")

		result, err := c.Lookup(ctx, "pacemaker battery life")
		require.NoError(t, err, "Expected no error")
		assert.False(t, result.Found, "Expected miss")
	})

	t.Run("Default threshold separates 0.85 from 0.5", func(t *testing.T) {
		near := newTestCache(t, &memoryStore{}, 0)
		require.NoError(t, near.Store(ctx, "glucose monitoring device", "answerX", model.CacheTagNormal), "Expected Store to succeed")

		result, err := near.Lookup(ctx, "glucose monitor")
		require.NoError(t, err, "Expected no error")
		assert.True(t, result.Found, "Expected hit at similarity 0.85")
		assert.Equal(t, "answerX", result.Answer, "Expected stored answer")
		assert.InDelta(t, 0.85, result.Similarity, 1e-4, "Expected similarity of 0.85")

		far := newTestCache(t, &memoryStore{}, 0)
		require.NoError(t, far.Store(ctx, "glucose test strips", "answerY", model.CacheTagNormal), "Expected Store to succeed")

		result, err = far.Lookup(ctx, "glucose monitor")
		require.NoError(t, err, "Expected no error")
		assert.False(t, result.Found, "Expected miss at similarity 0.5")
	})

	t.Run("Threshold is exclusive", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 1.0)
		require.NoError(t, c.Store(ctx, "pacemaker battery life", "About ten years.", model.CacheTagNormal), "Expected Store to succeed")

		result, err := c.Lookup(ctx, "pacemaker battery life")
		require.NoError(t, err, "Expected no error")
		assert.False(t, result.Found, "Expected similarity equal to threshold to miss")
	})

	t.Run("Deep wins over normal", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "pacemaker battery life", "normal answer", model.CacheTagNormal), "Expected Store to succeed")
		require.NoError(t, c.Store(ctx, "how long do pacemaker batteries", "deep answer", model.CacheTagDeep), "Expected Store to succeed")

		for i := 0; i < 20; i++ {
			result, err := c.Lookup(ctx, "pacemaker battery life")
			require.NoError(t, err, "Expected no error")
			require.True(t, result.Found, "Expected hit")
			assert.Equal(t, "deep answer", result.Answer, "Expected deep answer regardless of scheduling")
			assert.Equal(t, model.CacheTagDeep, result.Tag, "Expected deep tag")
		}
	})

	t.Run("Oldest qualifying entry wins", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "how long do pacemaker batteries", "first", model.CacheTagNormal), "Expected Store to succeed")
		require.NoError(t, c.Store(ctx, "pacemaker battery life", "second", model.CacheTagNormal), "Expected Store to succeed")

		result, err := c.Lookup(ctx, "pacemaker battery life")
		require.NoError(t, err, "Expected no error")
		assert.Equal(t, "first", result.Answer, "Expected first qualifying entry, not the most similar")
	})

	t.Run("Lookup restricted to deep tag", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "pacemaker battery life", "normal answer", model.CacheTagNormal), "Expected Store to succeed")

		result, err := c.LookupTags(ctx, "pacemaker battery life", model.CacheTagDeep)
		require.NoError(t, err, "Expected no error")
		assert.False(t, result.Found, "Expected normal entries to be ignored")
	})

	t.Run("Degenerate stored queries are skipped", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "zero", "ignored", model.CacheTagNormal), "Expected Store to succeed")
		require.NoError(t, c.Store(ctx, "pacemaker battery life", "answer", model.CacheTagNormal), "Expected Store to succeed")

		result, err := c.Lookup(ctx, "pacemaker battery life")
		require.NoError(t, err, "Expected no error")
		assert.Equal(t, "answer", result.Answer, "Expected degenerate entry to be skipped")
	})

	t.Run("Store errors propagate", func(t *testing.T) {
		c := newTestCache(t, &memoryStore{err: errors.New("connection refused")}, 0)
		_, err := c.Lookup(ctx, "pacemaker battery life")
		assert.Error(t, err, "Expected store error")
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Appends entries", func(t *testing.T) {
		store := &memoryStore{}
		c := newTestCache(t, store, 0)
		require.NoError(t, c.Store(ctx, "q", "a", model.CacheTagNormal), "Expected Store to succeed")
		require.NoError(t, c.Store(ctx, "q", "a", model.CacheTagNormal), "Expected Store to succeed")

		require.Len(t, store.entries, 2, "Expected append only writes")
		assert.True(t, store.entries[0].CreatedAt.IsZero(), "Expected the store to assign the timestamp")
	})

	t.Run("Invalid tag", func(t *testing.T) {
		c := newTestCache(t, &memoryStore{}, 0)
		assert.Error(t, c.Store(ctx, "q", "a", model.CacheTag("shallow")), "Expected invalid tag error")
	})
}
