package judge

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/anuragparashar26/skillscreen/internal/logger"
	"github.com/anuragparashar26/skillscreen/internal/tokens"
	"github.com/anuragparashar26/skillscreen/internal/utils"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// Options tune prompt construction and logging.
type Options struct {
	MaxLogLength int
	// MaxResumeTokens truncates resume text before prompting. Zero disables it.
	MaxResumeTokens int
	Counter         *tokens.Counter
}

// Judge obtains one structured assessment per resume from a generative model.
type Judge struct {
	generator       ai.Generator
	logger          *zap.Logger
	maxLogLen       int
	maxResumeTokens int
	counter         *tokens.Counter
}

func New(generator ai.Generator, log *zap.Logger, opts Options) *Judge {
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if opts.Counter == nil {
		opts.Counter = tokens.Approximate()
	}

	return &Judge{
		generator:       generator,
		logger:          logger.WithCommonFields(log, generator.Provider(), generator.Model()),
		maxLogLen:       opts.MaxLogLength,
		maxResumeTokens: opts.MaxResumeTokens,
		counter:         opts.Counter,
	}
}

// Model returns the model name used for failure summaries.
func (j *Judge) Model() string {
	return j.generator.Model()
}

// Assess makes exactly one backend request. It never returns an error:
// failures are encoded into the Verdict with a zero score.
func (j *Judge) Assess(ctx context.Context, jobDescription, resumeText string, similarity float64) Verdict {
	resumeText = j.counter.Truncate(utils.SanitizeUTF8(resumeText), j.maxResumeTokens)
	system, prompt := buildPrompt(utils.SanitizeUTF8(jobDescription), resumeText, similarity)

	j.logger.Debug("judge request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.Int("prompt_tokens", j.counter.Count(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, j.maxLogLen)),
	)

	raw, err := j.generator.GenerateContent(ctx, system, prompt)
	if err != nil {
		kind := FailureBackend
		if errors.Is(err, ai.ErrQuotaExhausted) {
			kind = FailureQuota
		}
		j.logger.Warn("judge request failed", zap.String("failure", string(kind)), zap.Error(err))
		return failed(kind, err, j.Model())
	}

	j.logger.Debug("judge response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, j.maxLogLen)),
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		j.logger.Warn("judge response rejected", zap.Error(err))
		return failed(FailureParse, err, j.Model())
	}

	return Verdict{Assessment: assessment}
}
