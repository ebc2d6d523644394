package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/ai/judge"
	"github.com/anuragparashar26/skillscreen/internal/logger"
	"github.com/anuragparashar26/skillscreen/internal/metrics"
	"github.com/anuragparashar26/skillscreen/internal/vectorindex"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StageEmbed    = "embed"
	StageIndex    = "index"
	StageRetrieve = "retrieve"
	StageJudge    = "judge"

	// DegradedJobEmbedding marks candidates scored without similarity because
	// the job description could not be embedded.
	DegradedJobEmbedding = StageEmbed + ":job"

	defaultConcurrency = 4
	defaultCallTimeout = 60 * time.Second
	dropTimeout        = 10 * time.Second
)

// VectorIndex is the subset of *vectorindex.Index the pipeline relies on.
type VectorIndex interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Upsert(ctx context.Context, collection, id, document string, metadata map[string]string, vector []float32) error
	QuerySimilarity(ctx context.Context, collection string, vector []float32, topK int, ids ...string) ([]vectorindex.SimilarityRecord, error)
	Similarity(a, b []float32) (float64, error)
	Drop(ctx context.Context, collection string) error
}

// Judge assesses one resume. Implementations never fail; failures are in the Verdict.
type Judge interface {
	Assess(ctx context.Context, jobDescription, resumeText string, similarity float64) judge.Verdict
}

// Progress receives per-resume completion events.
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}

// Config holds the tunables of an Evaluator.
type Config struct {
	Weights     Weights
	Concurrency int
	// CallTimeout bounds every external call (embed, upsert, query, judge).
	CallTimeout time.Duration
	TopK        int
	// Collection is the base name; each batch writes to "<Collection>-<uuid>".
	Collection string
	// Retain keeps batch collections instead of dropping them afterwards.
	Retain bool
}

// Evaluator runs EMBED -> INDEX -> RETRIEVE -> JUDGE -> FUSE for every resume
// of a batch and returns the candidates ranked by fused score.
type Evaluator struct {
	index    VectorIndex
	judge    Judge
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	progress Progress
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

func WithProgress(p Progress) Option {
	return func(e *Evaluator) {
		e.progress = p
	}
}

func New(index VectorIndex, j Judge, cfg Config, opts ...Option) *Evaluator {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = vectorindex.DefaultTopK
	}
	if cfg.Collection == "" {
		cfg.Collection = "resumes"
	}

	e := &Evaluator{index: index, judge: j, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the fusion weights in effect.
func (e *Evaluator) Weights() Weights {
	return e.cfg.Weights
}

// Evaluate scores every resume against the job description. Only batch
// preconditions (and caller cancellation) return an error; per-resume failures
// are folded into that resume's CandidateResult.
func (e *Evaluator) Evaluate(ctx context.Context, jobDescription string, resumes []ResumeInput) (*Result, error) {
	if err := validateBatch(jobDescription, resumes); err != nil {
		e.metrics.Batch("rejected")
		return nil, err
	}

	batchID := uuid.NewString()
	collection := e.cfg.Collection + "-" + batchID
	log := logger.WithFields(e.logger, zap.String(logger.FieldBatch, batchID))
	log.Info("evaluation started", zap.Int("resumes", len(resumes)), zap.String("collection", collection))

	if !e.cfg.Retain {
		defer e.dropCollection(ctx, log, collection)
	}

	jdVector := e.embedJobDescription(ctx, log, jobDescription)
	stats := Stats{JudgeFailures: map[string]int{}, JobEmbedFailed: jdVector == nil}

	if e.progress != nil {
		e.progress.Start(len(resumes))
		defer e.progress.Finish()
	}

	b := &batch{
		Evaluator:  e,
		batchID:    batchID,
		collection: collection,
		jd:         jobDescription,
		jdVector:   jdVector,
		stats:      stats,
	}

	results := make([]CandidateResult, len(resumes))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := range resumes {
		g.Go(func() error {
			results[i] = b.evaluateOne(gCtx, resumes[i])
			if e.progress != nil {
				e.progress.Increment()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		e.metrics.Batch("cancelled")
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	e.metrics.Batch("ok")
	log.Info("evaluation finished",
		zap.Int("candidates", len(results)),
		zap.Int("embed_failures", b.stats.EmbedFailures),
		zap.Int("index_failures", b.stats.IndexFailures),
		zap.Int("query_failures", b.stats.QueryFailures),
		zap.Any("judge_failures", b.stats.JudgeFailures),
	)

	return &Result{
		BatchID:    batchID,
		Collection: collection,
		Candidates: results,
		Stats:      b.stats,
	}, nil
}

func (e *Evaluator) embedJobDescription(ctx context.Context, log *zap.Logger, jobDescription string) []float32 {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	started := time.Now()
	vectors, err := e.index.Embed(callCtx, []string{jobDescription})
	if err == nil && (len(vectors) != 1 || len(vectors[0]) == 0) {
		err = fmt.Errorf("expected one job description vector, got %d", len(vectors))
	}
	e.metrics.ObserveStage(StageEmbed, started, err)
	if err != nil {
		log.Warn("job description embedding failed, similarity disabled for this batch",
			zap.String(logger.FieldStage, StageEmbed), zap.Error(err))
		return nil
	}
	return vectors[0]
}

func (e *Evaluator) dropCollection(ctx context.Context, log *zap.Logger, collection string) {
	dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dropTimeout)
	defer cancel()
	if err := e.index.Drop(dropCtx, collection); err != nil {
		log.Warn("dropping batch collection failed", zap.String("collection", collection), zap.Error(err))
	}
}

// batch carries the state shared read-only by all resumes of one run,
// plus the mutex-guarded failure counters.
type batch struct {
	*Evaluator
	batchID    string
	collection string
	jd         string
	jdVector   []float32

	mu    sync.Mutex
	stats Stats
}

func (b *batch) count(fn func(*Stats)) {
	b.mu.Lock()
	fn(&b.stats)
	b.mu.Unlock()
}

func (b *batch) evaluateOne(ctx context.Context, r ResumeInput) CandidateResult {
	log := logger.WithResume(b.logger, b.batchID, r.ID)
	b.metrics.ResumeStarted()

	var degraded []string
	similarity := 0.0

	if b.jdVector == nil {
		degraded = append(degraded, DegradedJobEmbedding)
	} else {
		sim, failedStage := b.similarity(ctx, log, r)
		similarity = sim
		if failedStage != "" {
			degraded = append(degraded, failedStage)
		}
	}

	judgeCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	started := time.Now()
	verdict := b.judge.Assess(judgeCtx, b.jd, r.Text, similarity)
	cancel()

	var judgeErr error
	if verdict.Failed() {
		judgeErr = verdict.Failure
		degraded = append(degraded, StageJudge+":"+string(verdict.Failure.Kind))
		b.count(func(s *Stats) { s.JudgeFailures[string(verdict.Failure.Kind)]++ })
	}
	b.metrics.ObserveStage(StageJudge, started, judgeErr)
	b.metrics.JudgeOutcome(verdict.Outcome())

	a := verdict.Assessment
	score := Fuse(b.cfg.Weights, a.Score, similarity)

	log.Debug("candidate scored",
		zap.Int("score", score),
		zap.Int("llm_score", a.Score),
		zap.Float64("similarity", similarity),
		zap.Strings("degraded", degraded),
	)
	b.metrics.ResumeFinished(score)

	return CandidateResult{
		CandidateName:   r.DisplayName(),
		ID:              r.ID,
		Score:           score,
		LLMScore:        a.Score,
		SimilarityScore: clampUnit(similarity),
		Summary:         a.Summary,
		MatchingSkills:  nonNil(a.MatchingSkills),
		MissingSkills:   nonNil(a.MissingSkills),
		Degraded:        degraded,
	}
}

// similarity runs the best-effort EMBED, INDEX and RETRIEVE stages. Any
// failure yields 0 and the name of the failed stage.
func (b *batch) similarity(ctx context.Context, log *zap.Logger, r ResumeInput) (float64, string) {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	started := time.Now()
	vectors, err := b.index.Embed(callCtx, []string{r.Text})
	cancel()
	if err == nil && (len(vectors) != 1 || len(vectors[0]) == 0) {
		err = fmt.Errorf("expected one resume vector, got %d", len(vectors))
	}
	b.metrics.ObserveStage(StageEmbed, started, err)
	if err != nil {
		log.Warn("resume embedding failed", zap.String(logger.FieldStage, StageEmbed), zap.Error(err))
		b.count(func(s *Stats) { s.EmbedFailures++ })
		return 0, StageEmbed
	}
	vector := vectors[0]

	callCtx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
	started = time.Now()
	err = b.index.Upsert(callCtx, b.collection, r.ID, r.Text, map[string]string{
		"filename": r.Filename,
		"batch_id": b.batchID,
	}, vector)
	cancel()
	b.metrics.ObserveStage(StageIndex, started, err)
	if err != nil {
		log.Warn("indexing resume failed", zap.String(logger.FieldStage, StageIndex), zap.Error(err))
		b.count(func(s *Stats) { s.IndexFailures++ })
		return 0, StageIndex
	}

	callCtx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
	started = time.Now()
	records, err := b.index.QuerySimilarity(callCtx, b.collection, b.jdVector, b.cfg.TopK, r.ID)
	cancel()
	b.metrics.ObserveStage(StageRetrieve, started, err)
	if err != nil {
		log.Warn("similarity query failed", zap.String(logger.FieldStage, StageRetrieve), zap.Error(err))
		b.count(func(s *Stats) { s.QueryFailures++ })
		return 0, StageRetrieve
	}

	for _, rec := range records {
		if rec.ID == r.ID {
			return rec.Similarity, ""
		}
	}

	// The query may not observe our own write yet; compare the vectors we hold.
	sim, err := b.index.Similarity(b.jdVector, vector)
	if err != nil {
		log.Warn("direct similarity failed", zap.String(logger.FieldStage, StageRetrieve), zap.Error(err))
		b.count(func(s *Stats) { s.QueryFailures++ })
		return 0, StageRetrieve
	}
	log.Debug("own vector not visible to query, using direct similarity")
	b.count(func(s *Stats) { s.DirectFallback++ })
	return sim, ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
