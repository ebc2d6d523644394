package vectorindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2}, b: []float32{2, 4}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MetricCosine.Distance(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDistanceDimensionMismatch(t *testing.T) {
	_, err := MetricCosine.Distance([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
	_, err = MetricL2.Distance(nil, nil)
	assert.Error(t, err)
}

func TestL2Distance(t *testing.T) {
	got, err := MetricL2.Distance([]float32{0, 0}, []float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5, got, 1e-9)
}

func TestSimilarityConversion(t *testing.T) {
	tests := []struct {
		name     string
		metric   Metric
		distance float64
		want     float64
	}{
		{name: "cosine identical", metric: MetricCosine, distance: 0, want: 1},
		{name: "cosine typical", metric: MetricCosine, distance: 0.2, want: 0.8},
		{name: "cosine opposite", metric: MetricCosine, distance: 2, want: -1},
		{name: "cosine clamps below", metric: MetricCosine, distance: 3.5, want: -1},
		{name: "cosine clamps above", metric: MetricCosine, distance: -0.5, want: 1},
		{name: "l2 zero", metric: MetricL2, distance: 0, want: 1},
		{name: "l2 far", metric: MetricL2, distance: 3, want: 0.25},
		{name: "nan", metric: MetricCosine, distance: math.NaN(), want: 0},
		{name: "inf", metric: MetricL2, distance: math.Inf(1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.metric.Similarity(tt.distance), 1e-9)
		})
	}
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	m, err = ParseMetric("l2")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, m)

	_, err = ParseMetric("dot")
	assert.Error(t, err)
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
