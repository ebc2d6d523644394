package vectorindex

import (
	"context"
	"fmt"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/anuragparashar26/skillscreen/internal/tokens"
	"go.uber.org/zap"
)

// DefaultTopK bounds similarity queries when the caller passes zero.
const DefaultTopK = 10

// SimilarityRecord is one ranked hit with its converted similarity.
type SimilarityRecord struct {
	ID         string
	Distance   float64
	Similarity float64
	Metadata   map[string]string
	Document   string
}

// Index embeds text and answers nearest-neighbour similarity queries
// within named collections.
type Index struct {
	embedder ai.Embedder
	store    Store
	cache    Cache
	logger   *zap.Logger

	counter   *tokens.Counter
	maxTokens int
}

// Option customizes an Index.
type Option func(*Index)

// WithCache enables embedding caching.
func WithCache(c Cache) Option {
	return func(ix *Index) {
		ix.cache = c
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithTruncation cuts texts to maxTokens before embedding. Zero disables it.
func WithTruncation(counter *tokens.Counter, maxTokens int) Option {
	return func(ix *Index) {
		ix.counter = counter
		ix.maxTokens = maxTokens
	}
}

func New(embedder ai.Embedder, store Store, opts ...Option) *Index {
	ix := &Index{embedder: embedder, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Metric reports the distance metric of the underlying store.
func (ix *Index) Metric() Metric {
	return ix.store.Metric()
}

// Embed returns one vector per text, same order. Cached vectors are reused and
// only misses are sent to the embedding service, in a single request.
func (ix *Index) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if ix.maxTokens > 0 {
		cut := make([]string, len(texts))
		for i, text := range texts {
			cut[i] = ix.counter.Truncate(text, ix.maxTokens)
		}
		texts = cut
	}

	if ix.cache == nil {
		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := ai.CheckEmbeddings(len(texts), vectors); err != nil {
			return nil, err
		}
		return vectors, nil
	}

	model, dimensions := ix.embedder.Model(), ix.embedder.Dimensions()
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int

	for i, text := range texts {
		keys[i] = CacheKey(model, dimensions, text)
		vec, ok, err := ix.cache.Get(ctx, keys[i])
		if err != nil {
			ix.logger.Warn("embedding cache lookup failed", zap.Error(err))
		}
		if ok && len(vec) > 0 && (dimensions <= 0 || len(vec) == dimensions) {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}

	vectors, err := ix.embedder.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if err := ai.CheckEmbeddings(len(pending), vectors); err != nil {
		return nil, err
	}

	for j, i := range missing {
		out[i] = vectors[j]
		if err := ix.cache.Set(ctx, keys[i], vectors[j]); err != nil {
			ix.logger.Warn("embedding cache store failed", zap.Error(err))
		}
	}

	return out, nil
}

// Upsert stores or overwrites the vector for id.
func (ix *Index) Upsert(ctx context.Context, collection, id, document string, metadata map[string]string, vector []float32) error {
	return ix.store.Upsert(ctx, collection, Record{
		ID:       id,
		Document: document,
		Metadata: metadata,
		Vector:   vector,
	})
}

// QuerySimilarity returns up to topK records ordered by ascending distance.
// When ids are given only those records are considered.
func (ix *Index) QuerySimilarity(ctx context.Context, collection string, vector []float32, topK int, ids ...string) ([]SimilarityRecord, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	matches, err := ix.store.Query(ctx, collection, Query{Vector: vector, TopK: topK, IDs: ids})
	if err != nil {
		return nil, err
	}

	metric := ix.store.Metric()
	records := make([]SimilarityRecord, len(matches))
	for i, m := range matches {
		records[i] = SimilarityRecord{
			ID:         m.ID,
			Distance:   m.Distance,
			Similarity: metric.Similarity(m.Distance),
			Metadata:   m.Metadata,
			Document:   m.Document,
		}
	}
	return records, nil
}

// Similarity compares two in-hand vectors with the store's metric.
func (ix *Index) Similarity(a, b []float32) (float64, error) {
	metric := ix.store.Metric()
	dist, err := metric.Distance(a, b)
	if err != nil {
		return 0, fmt.Errorf("compare vectors: %w", err)
	}
	return metric.Similarity(dist), nil
}

// Drop removes every record of a collection.
func (ix *Index) Drop(ctx context.Context, collection string) error {
	return ix.store.DropCollection(ctx, collection)
}
