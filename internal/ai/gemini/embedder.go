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
	defaultEmbeddingModel = "gemini-embedding-001"
	taskSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// Embedder produces embeddings through the Gemini batchEmbedContents endpoint.
type Embedder struct {
	models     modelsAPI
	modelName  string
	dimensions int32
}

// NewEmbedder creates an Embedder. dimensions <= 0 keeps the model default.
func NewEmbedder(client *genai.Client, model string, dimensions int) (*Embedder, error) {
	if client == nil || client.Models == nil {
		return nil, errors.New("gemini client is required")
	}
	return newEmbedder(client.Models, model, dimensions), nil
}

func newEmbedder(models modelsAPI, model string, dimensions int) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	if dimensions < 0 {
		dimensions = 0
	}
	return &Embedder{models: models, modelName: model, dimensions: int32(dimensions)}
}

// Embed returns one vector per text in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: taskSemanticSimilarity}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(e.dimensions)
	}

	resp, err := e.models.EmbedContent(ctx, e.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", classifyError(err))
	}
	if resp == nil {
		return nil, fmt.Errorf("embed content: %w", ai.ErrEmptyResponse)
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			vectors = append(vectors, nil)
			continue
		}
		vectors = append(vectors, emb.Values)
	}

	if err := ai.CheckEmbeddings(len(texts), vectors); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return vectors, nil
}

func (e *Embedder) Model() string {
	return e.modelName
}

func (e *Embedder) Dimensions() int {
	return int(e.dimensions)
}
