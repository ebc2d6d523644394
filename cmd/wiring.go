package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/anuragparashar26/skillscreen/internal/ai/gemini"
	"github.com/anuragparashar26/skillscreen/internal/ai/judge"
	aiopenai "github.com/anuragparashar26/skillscreen/internal/ai/openai"
	"github.com/anuragparashar26/skillscreen/internal/logger"
	"github.com/anuragparashar26/skillscreen/internal/metrics"
	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/anuragparashar26/skillscreen/internal/secrets"
	"github.com/anuragparashar26/skillscreen/internal/store"
	"github.com/anuragparashar26/skillscreen/internal/tokens"
	"github.com/anuragparashar26/skillscreen/internal/vectorindex"

	"github.com/openai/openai-go/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// application holds everything a command needs to evaluate resumes.
type application struct {
	evaluator *pipeline.Evaluator
	judge     *judge.Judge
	registry  *prometheus.Registry
	closers   []func() error
}

func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// providers creates SDK clients lazily so the generator and embedder share one.
type providers struct {
	cfg    AIConfig
	gemini *genai.Client
	openai *openai.Client
}

func (p *providers) geminiClient(ctx context.Context) (*genai.Client, error) {
	if p.gemini != nil {
		return p.gemini, nil
	}
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: p.cfg.Gemini.APIKey,
		File:  p.cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}
	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	p.gemini = client
	return client, nil
}

func (p *providers) openaiClient() (openai.Client, error) {
	if p.openai != nil {
		return *p.openai, nil
	}
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: p.cfg.OpenAI.APIKey,
		File:  p.cfg.OpenAI.APIKeyFile,
	})
	if err != nil {
		return openai.Client{}, fmt.Errorf("%w (set ai.openai.api-key-file, OPENAI_API_KEY_FILE or OPENAI_API_KEY)", err)
	}
	client, err := aiopenai.NewClient(aiopenai.Options{APIKey: apiKey, BaseURL: p.cfg.OpenAI.BaseURL})
	if err != nil {
		return openai.Client{}, err
	}
	p.openai = &client
	return client, nil
}

func (p *providers) generator(ctx context.Context) (ai.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(p.cfg.Provider)) {
	case ai.ProviderGemini, "":
		client, err := p.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		generator, err := gemini.NewGenerator(client, p.cfg.Gemini.Model, gemini.WithTemperature(float32(p.cfg.Temperature)))
		if err != nil {
			return nil, err
		}
		return generator, nil
	case ai.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, err
		}
		return aiopenai.NewGenerator(client, p.cfg.OpenAI.Model, p.cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", p.cfg.Provider)
	}
}

func (p *providers) embedder(ctx context.Context, cfg EmbeddingConfig) (ai.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ai.ProviderGemini, "":
		client, err := p.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		embedder, err := gemini.NewEmbedder(client, cfg.Model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case ai.ProviderOpenAI:
		client, err := p.openaiClient()
		if err != nil {
			return nil, err
		}
		return aiopenai.NewEmbedder(client,
			aiopenai.WithEmbeddingModel(cfg.Model),
			aiopenai.WithEmbeddingDimension(cfg.Dimensions),
		), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// newTokenCounter loads the BPE table only when a budget is configured.
func newTokenCounter(config *Config, log *zap.Logger) *tokens.Counter {
	if config.Pipeline.MaxResumeTokens <= 0 && config.Embedding.MaxTokens <= 0 {
		return tokens.Approximate()
	}
	counter, err := tokens.NewCounter(config.Pipeline.TokenEncoding)
	if err != nil {
		log.Warn("falling back to approximate token counting", zap.Error(err))
		return tokens.Approximate()
	}
	return counter
}

func newVectorStore(ctx context.Context, cfg IndexConfig) (vectorindex.Store, error) {
	metric, err := vectorindex.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "memory", "":
		return vectorindex.NewMemoryStore(metric), nil
	case "sqlite":
		return vectorindex.OpenSQLite(cfg.SQLitePath, metric)
	case "pgvector":
		if metric != vectorindex.MetricCosine {
			return nil, fmt.Errorf("pgvector backend ranks by cosine distance, got metric %q", metric)
		}
		dsn, err := secrets.Load(secrets.Source{
			Name:  "index database url",
			Value: cfg.DatabaseURL,
			File:  cfg.DatabaseURLFile,
		})
		if err != nil {
			return nil, err
		}
		return vectorindex.OpenPGVector(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

func newEmbeddingCache(ctx context.Context, cfg CacheConfig) (vectorindex.Cache, func() error, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil, nil
	case "memory":
		return vectorindex.NewMemoryCache(), nil, nil
	case "redis":
		password, err := secrets.LoadOptional(secrets.Source{
			Name:  "redis password",
			Value: cfg.RedisPassword,
			File:  cfg.RedisPasswordFile,
		})
		if err != nil {
			return nil, nil, err
		}
		client, err := vectorindex.DialRedis(ctx, cfg.RedisAddr, password)
		if err != nil {
			return nil, nil, err
		}
		return vectorindex.NewRedisCache(client, cfg.TTL), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported embedding cache: %s", cfg.Backend)
	}
}

// newApplication wires providers, index, judge and pipeline from config.
func newApplication(ctx context.Context, config *Config, log *zap.Logger, opts ...pipeline.Option) (*application, error) {
	built := &application{registry: prometheus.NewRegistry()}
	built.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	fail := func(err error) (*application, error) {
		_ = built.Close()
		return nil, err
	}

	p := &providers{cfg: config.AI}
	generator, err := p.generator(ctx)
	if err != nil {
		return fail(fmt.Errorf("building generator: %w", err))
	}
	embedder, err := p.embedder(ctx, config.Embedding)
	if err != nil {
		return fail(fmt.Errorf("building embedder: %w", err))
	}

	counter := newTokenCounter(config, log)

	vectors, err := newVectorStore(ctx, config.Index)
	if err != nil {
		return fail(fmt.Errorf("opening vector index: %w", err))
	}
	built.closers = append(built.closers, vectors.Close)

	cache, closeCache, err := newEmbeddingCache(ctx, config.Embedding.Cache)
	if err != nil {
		return fail(fmt.Errorf("opening embedding cache: %w", err))
	}
	if closeCache != nil {
		built.closers = append(built.closers, closeCache)
	}

	indexLogger := logger.WithCommonFields(log, config.Embedding.Provider, embedder.Model())
	indexOpts := []vectorindex.Option{
		vectorindex.WithLogger(indexLogger),
		vectorindex.WithTruncation(counter, config.Embedding.MaxTokens),
	}
	if cache != nil {
		indexOpts = append(indexOpts, vectorindex.WithCache(cache))
	}
	index := vectorindex.New(embedder, vectors, indexOpts...)

	built.judge = judge.New(generator, log, judge.Options{
		MaxLogLength:    config.AI.MaxLogLength,
		MaxResumeTokens: config.Pipeline.MaxResumeTokens,
		Counter:         counter,
	})

	opts = append([]pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics.New(built.registry)),
	}, opts...)

	built.evaluator = pipeline.New(index, built.judge, pipeline.Config{
		Weights:     config.Scoring,
		Concurrency: config.Pipeline.Concurrency,
		CallTimeout: config.Pipeline.CallTimeout,
		TopK:        config.Index.TopK,
		Collection:  config.Index.Collection,
		Retain:      config.Index.Retain,
	}, opts...)

	weights := built.evaluator.Weights()
	log.Info("evaluation pipeline ready",
		zap.String("ai_provider", generator.Provider()),
		zap.String("ai_model", generator.Model()),
		zap.String("embedding_model", embedder.Model()),
		zap.String("index_backend", config.Index.Backend),
		zap.String("metric", string(index.Metric())),
		zap.Bool("exact_tokens", counter.Exact()),
		zap.Float64("llm_weight", weights.LLM),
		zap.Float64("similarity_weight", weights.Similarity),
	)

	return built, nil
}

// openStore returns nil when history is disabled.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case store.BackendMemory:
		return store.NewMemory(), nil
	case store.BackendSQLite, "":
		return store.OpenSQLite(cfg.SQLitePath)
	case store.BackendPostgres:
		dsn, err := secrets.Load(secrets.Source{
			Name:  "store database url",
			Value: cfg.DatabaseURL,
			File:  cfg.DatabaseURLFile,
		})
		if err != nil {
			return nil, err
		}
		return store.OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
