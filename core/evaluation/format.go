package evaluation

import (
	"fmt"
	"strings"

	"github.com/siherrmann/medrag/model"
)

// Label names the tier of a similarity score
func Label(score float64) string {
	switch {
	case score >= 0.8:
		return "Excellent"
	case score >= 0.5:
		return "Good"
	case score >= 0.3:
		return "Fair"
	default:
		return "Poor"
	}
}

// FormatScore renders the quality assessment block appended to an answer
func FormatScore(score model.EvaluationScore) string {
	var b strings.Builder
	b.WriteString("\n\n---\n**Answer Quality Assessment:**\n\n")
	fmt.Fprintf(&b, "**Overall Quality:** %s (%.1f%%)\n\n", Label(score.Overall), score.Overall*100)
	b.WriteString("**Detailed Metrics:**\n")
	writeMetric(&b, "Answer-Source Alignment", score.ChunkTopSimilarity, "How well the answer is grounded in the most relevant research")
	writeMetric(&b, "Source Relevance", score.QueryTopSimilarity, "How well the best source matches your question")
	writeMetric(&b, "Answer Relevance", score.QueryAnswerSimilarity, "How directly the answer addresses your question")
	return strings.TrimRight(b.String(), "\n")
}

func writeMetric(b *strings.Builder, name string, value float64, description string) {
	fmt.Fprintf(b, "• **%s:** %s (%.1f%%)\n  *%s*\n\n", name, Label(value), value*100, description)
}
