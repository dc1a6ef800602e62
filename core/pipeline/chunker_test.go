package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	t.Run("Splits on sentence punctuation", func(t *testing.T) {
		sentences := SplitSentences("Implants fail. Why? Infection is common! Revision follows.")
		assert.Equal(t, []string{"Implants fail.", "Why?", "Infection is common!", "Revision follows."}, sentences, "Expected four sentences")
	})

	t.Run("Keeps abbreviations and decimals", func(t *testing.T) {
		sentences := SplitSentences("Smith et al. reported a 2.5 fold risk, e.g. in older patients. See Fig. 3 for details.")
		assert.Equal(t, []string{
			"Smith et al. reported a 2.5 fold risk, e.g. in older patients.",
			"See Fig. 3 for details.",
		}, sentences, "Expected abbreviations to stay inside the sentence")
	})

	t.Run("Keeps trailing text without punctuation", func(t *testing.T) {
		assert.Equal(t, []string{"One.", "two"}, SplitSentences("One. two"), "Expected trailing fragment")
	})

	t.Run("Empty text has no sentences", func(t *testing.T) {
		assert.Empty(t, SplitSentences("   "), "Expected no sentences")
	})
}

func TestSentenceChunker(t *testing.T) {
	t.Run("Groups sentences into windows", func(t *testing.T) {
		chunks, err := SentenceChunker(2)("A one. B two. C three. D four. E five.")

		require.NoError(t, err, "Expected chunker to not return an error")
		assert.Equal(t, []string{"A one. B two.", "C three. D four.", "E five."}, chunks, "Expected windows of two sentences")
	})

	t.Run("Rejects non positive window", func(t *testing.T) {
		_, err := SentenceChunker(0)("A.")
		assert.Error(t, err, "Expected error for zero window")
	})
}
