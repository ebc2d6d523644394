package ai

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	// ErrQuotaExhausted is wrapped by providers when the backend reports
	// resource exhaustion (HTTP 429, RESOURCE_EXHAUSTED, insufficient_quota).
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned empty response")
)

// Assessment is the structured judgement of one resume against a job description.
type Assessment struct {
	Score          int      `json:"score"`
	Summary        string   `json:"summary"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
}

// Generator produces a single text completion for a system instruction and a user prompt.
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
	Provider() string
	Model() string
}

// Embedder turns texts into vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	// Dimensions is the requested output size, 0 for the model default.
	Dimensions() int
}

// CheckEmbeddings verifies that a provider returned one non-empty vector per input.
func CheckEmbeddings(inputs int, vectors [][]float32) error {
	if len(vectors) != inputs {
		return fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", inputs, len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
	}
	return nil
}
