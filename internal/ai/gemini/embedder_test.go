package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"google.golang.org/genai"
)

func TestEmbedderEmbed(t *testing.T) {
	stub := &stubModels{embedResp: &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{
		{Values: []float32{1, 0}},
		{Values: []float32{0, 1}},
	}}}
	emb := newEmbedder(stub, "", 768)

	vectors, err := emb.Embed(context.Background(), []string{"job", "resume"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
	if stub.lastModel != defaultEmbeddingModel {
		t.Fatalf("expected default embedding model, got %q", stub.lastModel)
	}
	if stub.embedInputs != 2 {
		t.Fatalf("expected both texts in one request, got %d", stub.embedInputs)
	}
	if got := *stub.lastEmbedCfg.OutputDimensionality; got != 768 {
		t.Fatalf("expected dimensionality 768, got %d", got)
	}
	if emb.Dimensions() != 768 {
		t.Fatalf("expected Dimensions 768, got %d", emb.Dimensions())
	}
}

func TestEmbedderCountMismatch(t *testing.T) {
	stub := &stubModels{embedResp: &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}}}}
	emb := newEmbedder(stub, "m", 0)

	if _, err := emb.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if stub.lastEmbedCfg.OutputDimensionality != nil {
		t.Fatalf("dimensionality must stay unset when not configured")
	}
}

func TestEmbedderQuota(t *testing.T) {
	emb := newEmbedder(&stubModels{err: genai.APIError{Code: 429}}, "m", 0)

	_, err := emb.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, ai.ErrQuotaExhausted) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestEmbedderNoInput(t *testing.T) {
	stub := &stubModels{}
	vectors, err := newEmbedder(stub, "m", 0).Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil result for empty input, got %v, %v", vectors, err)
	}
	if stub.lastModel != "" {
		t.Fatalf("backend must not be called without input")
	}
}
