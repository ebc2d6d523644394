package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = 0.3
	jsonMIMEType       = "application/json"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Generator wraps the Google GenAI client for single-shot JSON completions.
type Generator struct {
	models      modelsAPI
	modelName   string
	temperature float32
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) GeneratorOption {
	return func(g *Generator) {
		if t >= 0 {
			g.temperature = t
		}
	}
}

// NewClient creates a GenAI client for the Gemini API backend using an explicit key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// NewGenerator creates a Generator bound to the given client and model.
func NewGenerator(client *genai.Client, model string, opts ...GeneratorOption) (*Generator, error) {
	if client == nil || client.Models == nil {
		return nil, errors.New("gemini client is required")
	}
	return newGenerator(client.Models, model, opts...), nil
}

func newGenerator(models modelsAPI, model string, opts ...GeneratorOption) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	g := &Generator{models: models, modelName: model, temperature: defaultTemperature}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateContent sends one request and returns the concatenated text parts.
// No retries are made; quota errors wrap ai.ErrQuotaExhausted.
func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: jsonMIMEType,
	}
	if system = strings.TrimSpace(system); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", classifyError(err))
	}
	if resp == nil {
		return "", ai.ErrEmptyResponse
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("gemini: %w", ai.ErrEmptyResponse)
	}

	return output, nil
}

func (g *Generator) Provider() string {
	return ai.ProviderGemini
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
