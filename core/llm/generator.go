package llm

import (
	"context"
	"fmt"

	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// Generator writes cited answers from ranked context
type Generator struct {
	completer Completer
}

// NewGenerator creates a generator
func NewGenerator(completer Completer) (*Generator, error) {
	if completer == nil {
		return nil, helper.NewError("generator validation", fmt.Errorf("completer is nil"))
	}
	return &Generator{completer: completer}, nil
}

// Generate answers query from chunks, passing on a non-empty disclaimer
func (g *Generator) Generate(ctx context.Context, query string, chunks []model.RankedChunk, disclaimer string, temperature float64) (string, error) {
	answer, err := g.completer.Complete(ctx, Prompt{
		System:      ExpertSystemPrompt,
		User:        AnswerPrompt(query, chunks, disclaimer),
		Temperature: temperature,
	})
	if err != nil {
		return "", helper.NewError("generate answer", err)
	}
	return answer, nil
}
