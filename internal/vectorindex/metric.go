package vectorindex

import (
	"fmt"
	"math"
)

// Metric names the distance function a store ranks by. The conversion from
// distance to similarity is fixed per metric so that fused scores stay
// comparable across backends.
type Metric string

const (
	// MetricCosine is 1 - cos(a, b), in [0, 2]. Similarity = 1 - distance.
	MetricCosine Metric = "cosine"
	// MetricL2 is the euclidean distance. Similarity = 1 / (1 + distance).
	MetricL2 Metric = "l2"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}

// Distance computes the metric between two vectors of equal dimension.
func (m Metric) Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vector")
	}

	switch m {
	case MetricL2:
		var sum float64
		for i := range a {
			diff := float64(a[i]) - float64(b[i])
			sum += diff * diff
		}
		return math.Sqrt(sum), nil
	default:
		var dot, normA, normB float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			normA += float64(a[i]) * float64(a[i])
			normB += float64(b[i]) * float64(b[i])
		}
		if normA == 0 || normB == 0 {
			return 1, nil
		}
		return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
	}
}

// Similarity converts a distance into a similarity clamped to [-1, 1].
// Non-finite distances map to 0.
func (m Metric) Similarity(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}

	var sim float64
	switch m {
	case MetricL2:
		if distance < 0 {
			distance = 0
		}
		sim = 1 / (1 + distance)
	default:
		sim = 1 - distance
	}

	return math.Max(-1, math.Min(1, sim))
}
