package pipeline

import (
	"errors"
	"math"
)

// Weights blend the judge score with embedding similarity.
type Weights struct {
	LLM        float64 `mapstructure:"llm-weight" validate:"gte=0,lte=1"`
	Similarity float64 `mapstructure:"similarity-weight" validate:"gte=0,lte=1"`
}

// DefaultWeights is the 60/40 judge/similarity policy.
var DefaultWeights = Weights{LLM: 0.6, Similarity: 0.4}

func (w Weights) Validate() error {
	if w.LLM < 0 || w.Similarity < 0 {
		return errors.New("score weights must not be negative")
	}
	if math.Abs(w.LLM+w.Similarity-1) > 1e-9 {
		return errors.New("score weights must sum to 1")
	}
	return nil
}

// Fuse computes round(llm*LLM + similarity*100*Similarity) clamped to [0, 100].
// Similarity is clamped to [0, 1] first. Rounding is half away from zero.
func Fuse(w Weights, llmScore int, similarity float64) int {
	sim := clampUnit(similarity)
	score := math.Round(w.LLM*float64(llmScore) + w.Similarity*(sim*100))
	return int(math.Max(0, math.Min(100, score)))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
