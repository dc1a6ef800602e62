package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/medrag/core/llm"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

const (
	assessSystemPrompt = "You are an expert evaluator. Return only valid JSON."
	draftSystemPrompt  = "You are an expert in medical diagnostic devices. Provide clear, well-grounded answers."

	// DefaultDraftTemperature is used for assessment and redrafting
	DefaultDraftTemperature = 0.1

	assessPreviewLength = 200
)

// Assessment is the model's critique of an answer
type Assessment struct {
	NeedsGrounding      bool   `json:"needs_grounding"`
	NeedsQueryFocus     bool   `json:"needs_query_focus"`
	InsufficientContext bool   `json:"insufficient_context"`
	Summary             string `json:"assessment_summary"`
}

// NeedsRevision reports whether any improvement was requested
func (a Assessment) NeedsRevision() bool {
	return a.NeedsGrounding || a.NeedsQueryFocus || a.InsufficientContext
}

// Drafter critiques and rewrites answers with the language model
type Drafter struct {
	completer   llm.Completer
	temperature float64
	logger      *slog.Logger
}

// NewDrafter creates a drafter
func NewDrafter(completer llm.Completer, logger *slog.Logger) (*Drafter, error) {
	if completer == nil {
		return nil, helper.NewError("drafter validation", fmt.Errorf("completer is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Drafter{completer: completer, temperature: DefaultDraftTemperature, logger: logger}, nil
}

// Assess asks the model which improvements the answer needs.
// A reply that is not a JSON assessment yields the zero Assessment.
func (d *Drafter) Assess(ctx context.Context, query string, chunks []model.RankedChunk, answer string) (Assessment, error) {
	previews := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		previews = append(previews, "- "+preview(chunk.Text, assessPreviewLength)+"...")
	}

	prompt := fmt.Sprintf(`Analyze this Q&A and determine what improvements are needed. Respond with a JSON object containing boolean flags:

Query: %s
Answer: %s
Available Context: %s

Assess:
1. Is the answer well-grounded in the provided context?
2. Does the answer directly address the query?
3. Is the context sufficient to answer the query?
4. Any other brief suggestions for improvement?

Respond ONLY with JSON:
{
    "needs_grounding": true/false,
    "needs_query_focus": true/false,
    "insufficient_context": true/false,
    "assessment_summary": "brief explanation"
}`, query, answer, strings.Join(previews, "\n"))

	reply, err := d.completer.Complete(ctx, llm.Prompt{
		System:      assessSystemPrompt,
		User:        prompt,
		Temperature: d.temperature,
		JSON:        true,
	})
	if err != nil {
		return Assessment{}, helper.NewError("assess answer", err)
	}

	assessment, err := ParseAssessment(reply)
	if err != nil {
		d.logger.Warn("Malformed assessment, skipping redraft", slog.String("error", err.Error()))
		return Assessment{}, nil
	}
	return assessment, nil
}

// ParseAssessment decodes a JSON assessment, tolerating a markdown code fence
func ParseAssessment(reply string) (Assessment, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var assessment Assessment
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &assessment); err != nil {
		return Assessment{}, err
	}
	return assessment, nil
}

// Draft rewrites the answer according to the assessment.
// Without requested improvements the answer is returned unchanged and the model is not called.
func (d *Drafter) Draft(ctx context.Context, query string, chunks []model.RankedChunk, answer string, assessment Assessment) (string, error) {
	if !assessment.NeedsRevision() {
		return answer, nil
	}

	var focus []string
	if assessment.NeedsGrounding {
		focus = append(focus, "Better ground the answer in the provided context")
	}
	if assessment.NeedsQueryFocus {
		focus = append(focus, "Make the answer more directly responsive to the query")
	}
	if assessment.InsufficientContext {
		focus = append(focus, "State clearly where the context is insufficient")
	}
	if assessment.Summary != "" {
		focus = append(focus, assessment.Summary)
	}

	contextLines := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		source := chunk.Metadata.Title()
		if source == "" {
			source = "Unknown"
		}
		contextLines = append(contextLines, fmt.Sprintf("- %s\nSource: %s", chunk.Text, source))
	}

	prompt := fmt.Sprintf(`Improve this answer focusing on: %s

Query: %s
Current Answer: %s

Available Context:
%s

Guidelines:
- Base your answer primarily on the provided context
- Prioritize the most relevant and recent information. The context is sorted by relevance where the most relevant information appears first.
- When using information from the context, cite the source based on the metadata provided like author, year, title, etc. In the text you can use author and year. But then at the end of the answer, provide a list of sources with full metadata after saying 'Sources'.
- If the context doesn't contain enough information, state this clearly
- Provide a clear, well-structured answer

Improved Answer:`, strings.Join(focus, ", "), query, answer, strings.Join(contextLines, "\n"))

	revised, err := d.completer.Complete(ctx, llm.Prompt{
		System:      draftSystemPrompt,
		User:        prompt,
		Temperature: d.temperature,
	})
	if err != nil {
		return "", helper.NewError("draft answer", err)
	}
	return revised, nil
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
