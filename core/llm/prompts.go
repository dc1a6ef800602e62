package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/medrag/model"
)

const (
	// ExpertSystemPrompt is the system prompt of answer generation
	ExpertSystemPrompt = "You are an expert in literature review for medical diagnostics devices."
	// ExpansionSystemPrompt is the system prompt of query expansion
	ExpansionSystemPrompt = "You are an expert in breaking down complex medical device queries into simpler subqueries."

	expansionTemperature = 0.5
)

// ExpansionPrompt asks for count search subqueries, one per line
func ExpansionPrompt(query string, count int) string {
	return fmt.Sprintf(`You are a helpful assistant specialized in medical diagnostic devices.
Given the following question, generate %[1]d diverse, search-optimized subqueries that could be used independently to retrieve
relevant information from a database of articles full of medical research.
The retrieved information will then be searched for intersecting information and then summarized to answer the original question.
Do not include years in the generated subqueries.
Stay relevant to the question itself.

The question to create subqueries based off of is:
%[2]s

Return the output as a list of %[1]d subqueries only with no punctuation or numbering. Just have the questions in separate lines.`, count, query)
}

// FormatContext numbers chunks from 1 with their metadata, most relevant first
func FormatContext(chunks []model.RankedChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] Metadata: %s\nContent: %s\n\n", i+1, inlineMetadata(chunk.Metadata), chunk.Text)
	}
	return b.String()
}

func inlineMetadata(metadata model.Metadata) string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+metadata.String(key))
	}
	return strings.Join(parts, ", ")
}

// AnswerPrompt asks for a cited answer to query from the chunks.
// A non-empty disclaimer is passed on and must be mentioned before the sources.
func AnswerPrompt(query string, chunks []model.RankedChunk, disclaimer string) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant. Use the provided context to answer the user's question accurately and comprehensively.\n\n")
	fmt.Fprintf(&b, "Context:\n%s\n", FormatContext(chunks))
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	if disclaimer != "" {
		fmt.Fprintf(&b, "Disclaimer: %s\n\n", disclaimer)
	}

	b.WriteString(`Instructions:
- Base your answer primarily on the provided context
- Prioritize the most relevant and recent information. The context is sorted by relevance where the most relevant information appears first.
- When using information from the context, cite the source based on the metadata provided like author, year, title, etc. In the text you can use author and year. But then at the end of the answer, provide a list of sources with full metadata after saying 'Sources'.
- If the context doesn't contain enough information, state this clearly
- Provide a clear, well-structured answer
`)
	if disclaimer != "" {
		b.WriteString("- Mention the disclaimer in your answer. Put the disclaimer before the sources.\n")
	}
	b.WriteString("\nAnswer:")
	return b.String()
}
