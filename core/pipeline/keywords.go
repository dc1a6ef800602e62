package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// KeywordExtractor reduces free text to content words
type KeywordExtractor struct {
	lemmatizer *golem.Lemmatizer
}

// NewKeywordExtractor loads the English lemmatization dictionary
func NewKeywordExtractor() (*KeywordExtractor, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load lemmatizer: %w", err)
	}
	return &KeywordExtractor{lemmatizer: lemmatizer}, nil
}

// Keywords lowercases text, strips punctuation, drops stopwords and lemmatizes
// the remaining words. The result is joined with single spaces.
func (k *KeywordExtractor) Keywords(text string) string {
	words := ContentWords(strings.ToLower(text))
	for i, word := range words {
		if k.lemmatizer != nil {
			words[i] = k.lemmatizer.Lemma(word)
		}
	}
	return strings.Join(words, " ")
}

// ContentWords splits text on whitespace, strips every non word character
// and drops empty tokens and English stopwords. Case is preserved.
func ContentWords(text string) []string {
	var words []string
	for _, field := range strings.Fields(text) {
		word := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				return r
			}
			return -1
		}, field)
		if word == "" || IsStopword(word) {
			continue
		}
		words = append(words, word)
	}
	return words
}

// IsStopword reports whether word is an English stopword, ignoring case
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}
