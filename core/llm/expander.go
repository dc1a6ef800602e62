package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/medrag/helper"
)

// DefaultSubqueries is the number of subqueries requested per query
const DefaultSubqueries = 3

// Expander splits a query into search subqueries
type Expander struct {
	completer Completer
	count     int
}

// NewExpander creates an expander asking for count subqueries
func NewExpander(completer Completer, count int) (*Expander, error) {
	if completer == nil {
		return nil, helper.NewError("expander validation", fmt.Errorf("completer is nil"))
	}
	if count <= 0 {
		count = DefaultSubqueries
	}
	return &Expander{completer: completer, count: count}, nil
}

// Expand returns one subquery per non-blank line of the model reply.
// List markers are stripped. If no line remains, the query itself is the only subquery.
func (e *Expander) Expand(ctx context.Context, query string) ([]string, error) {
	reply, err := e.completer.Complete(ctx, Prompt{
		System:      ExpansionSystemPrompt,
		User:        ExpansionPrompt(query, e.count),
		Temperature: expansionTemperature,
	})
	if err != nil {
		return nil, helper.NewError("expand query", err)
	}

	subqueries := ParseSubqueries(reply)
	if len(subqueries) == 0 {
		return []string{query}, nil
	}
	return subqueries, nil
}

// ParseSubqueries splits a reply into trimmed non-blank lines
func ParseSubqueries(reply string) []string {
	var subqueries []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(stripListMarker(strings.TrimSpace(line)))
		if line != "" {
			subqueries = append(subqueries, line)
		}
	}
	return subqueries
}

func stripListMarker(line string) string {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return line[len(marker):]
		}
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits+1 < len(line) && (line[digits] == '.' || line[digits] == ')') && line[digits+1] == ' ' {
		return line[digits+2:]
	}
	return line
}
