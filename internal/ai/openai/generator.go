package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

const (
	DefaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.3
)

// Generator requests JSON-object chat completions.
type Generator struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewGenerator creates a Generator. A negative temperature keeps the default.
func NewGenerator(client openai.Client, model string, temperature float64) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if temperature < 0 {
		temperature = defaultTemperature
	}
	return &Generator{client: client, model: model, temperature: temperature}
}

func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(g.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", classifyError(err))
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ai.ErrEmptyResponse)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai: %w", ai.ErrEmptyResponse)
	}

	return content, nil
}

func (g *Generator) Provider() string {
	return ai.ProviderOpenAI
}

func (g *Generator) Model() string {
	return g.model
}
