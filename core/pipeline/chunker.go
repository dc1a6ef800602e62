package pipeline

import (
	"fmt"
	"strings"
	"unicode"
)

// abbreviations that end with a period without ending the sentence
var abbreviations = map[string]struct{}{
	"e.g.": {}, "i.e.": {}, "et al.": {}, "al.": {}, "fig.": {}, "figs.": {}, "eq.": {},
	"vs.": {}, "dr.": {}, "no.": {}, "approx.": {}, "ref.": {}, "refs.": {}, "cf.": {},
}

// SentenceChunker groups consecutive sentences into windows of sentencesPerWindow.
// The last window holds the remaining sentences.
func SentenceChunker(sentencesPerWindow int) ChunkFunc {
	return func(text string) ([]string, error) {
		if sentencesPerWindow <= 0 {
			return nil, fmt.Errorf("sentences per window must be positive")
		}

		sentences := SplitSentences(text)

		var windows []string
		for start := 0; start < len(sentences); start += sentencesPerWindow {
			end := min(start+sentencesPerWindow, len(sentences))
			windows = append(windows, strings.Join(sentences[start:end], " "))
		}
		return windows, nil
	}
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// Common abbreviations and decimal numbers do not end a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(current.String()) {
			continue
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(sentence string) bool {
	lower := strings.ToLower(sentence)
	for abbreviation := range abbreviations {
		if !strings.HasSuffix(lower, abbreviation) {
			continue
		}
		start := len(lower) - len(abbreviation)
		if start == 0 || unicode.IsSpace(rune(lower[start-1])) || lower[start-1] == '(' {
			return true
		}
	}
	return false
}
