package pipeline

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// SyntacticSeedExtractor uses the noun phrases of a text as graph seeds.
// Subjects and objects are noun phrases, so verbs, adjectives and function
// words never become seeds. Text without nouns gives no seeds.
func SyntacticSeedExtractor() SeedExtractFunc {
	return func(text string) ([]string, error) {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}

		doc, err := prose.NewDocument(
			text,
			prose.WithSegmentation(false),
			prose.WithExtraction(false),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to tag text: %w", err)
		}

		return NounPhraseSeeds(doc.Tokens()), nil
	}
}

// NounPhraseSeeds groups consecutive nouns of tagged tokens into phrases.
// A compound phrase yields the full phrase followed by its head noun, a single
// noun yields itself. Seeds keep their case and are returned once.
func NounPhraseSeeds(tokens []prose.Token) []string {
	var seeds []string
	seen := make(map[string]bool)
	add := func(seed string) {
		if !seen[seed] {
			seen[seed] = true
			seeds = append(seeds, seed)
		}
	}

	var phrase []string
	flush := func() {
		if len(phrase) > 1 {
			add(strings.Join(phrase, " "))
		}
		if len(phrase) > 0 {
			add(phrase[len(phrase)-1])
		}
		phrase = phrase[:0]
	}

	for _, token := range tokens {
		if strings.HasPrefix(token.Tag, "NN") && !IsStopword(token.Text) {
			phrase = append(phrase, token.Text)
			continue
		}
		flush()
	}
	flush()

	return seeds
}
