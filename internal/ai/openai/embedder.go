package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/openai/openai-go/v3"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	// maxBatchSize mirrors the API limit on inputs per request.
	maxBatchSize = 100
)

type embedderOptions struct {
	model     string
	dimension int
}

// EmbedderOption customizes an Embedder.
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		if model = strings.TrimSpace(model); model != "" {
			o.model = model
		}
	}
}

// WithEmbeddingDimension requests shortened vectors. Zero keeps the model default.
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// Embedder turns texts into vectors with the embeddings endpoint.
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
}

func NewEmbedder(client openai.Client, opts ...EmbedderOption) *Embedder {
	options := embedderOptions{model: DefaultEmbeddingModel}
	for _, opt := range opts {
		opt(&options)
	}

	return &Embedder{client: client, model: options.model, dimension: options.dimension}
}

// Embed splits the input into API-sized batches and keeps input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	if err := ai.CheckEmbeddings(len(texts), vectors); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	return vectors, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", classifyError(err))
	}

	// The API reports an index per item; place vectors by it rather than by arrival.
	out := make([][]float32, len(texts))
	for pos, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) {
			idx = pos
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		out[idx] = vector
	}

	return out, nil
}

func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) Dimensions() int {
	return e.dimension
}
