// Package llm talks to the chat completion model: query expansion, answer generation and source links.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/medrag/helper"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Prompt is a single chat completion request
type Prompt struct {
	System      string
	User        string
	Temperature float64
	JSON        bool // Ask the model for a JSON object
}

// Completer returns the model's reply to a prompt
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LangChainCompleter is a Completer over a langchaingo model
type LangChainCompleter struct {
	model llms.Model
}

// NewLangChainCompleter creates an OpenAI or Azure OpenAI completer from config
func NewLangChainCompleter(config *helper.LLMConfiguration) (*LangChainCompleter, error) {
	if config == nil {
		return nil, helper.NewError("llm validation", fmt.Errorf("llm configuration is nil"))
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIType == "azure" {
		opts = append(opts, openai.WithAPIType(openai.APITypeAzure))
		if config.APIVersion != "" {
			opts = append(opts, openai.WithAPIVersion(config.APIVersion))
		}
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, helper.NewError("create llm", err)
	}

	return NewModelCompleter(model), nil
}

// NewModelCompleter wraps an existing langchaingo model
func NewModelCompleter(model llms.Model) *LangChainCompleter {
	return &LangChainCompleter{model: model}
}

// Complete sends the prompt and returns the trimmed content of the first choice
func (c *LangChainCompleter) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if prompt.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, prompt.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt.User))

	options := []llms.CallOption{llms.WithTemperature(prompt.Temperature)}
	if prompt.JSON {
		options = append(options, llms.WithJSONMode())
	}

	response, err := c.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", helper.NewError("generate content", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", helper.NewError("generate content", fmt.Errorf("model returned no choices"))
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
