package judge

import (
	"fmt"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/anuragparashar26/skillscreen/internal/utils"
)

// DiagnosticLimit caps how much backend detail reaches a user-facing summary.
const DiagnosticLimit = 150

// FailureKind tags why an assessment could not be obtained.
type FailureKind string

const (
	FailureQuota   FailureKind = "quota"
	FailureBackend FailureKind = "backend"
	FailureParse   FailureKind = "parse"
)

// Failure carries the kind and the underlying cause.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Verdict is the outcome of one Assess call. On failure the assessment is
// zero-scored with empty skill lists and a summary describing the failure.
type Verdict struct {
	Assessment ai.Assessment
	Failure    *Failure
}

func (v Verdict) Failed() bool {
	return v.Failure != nil
}

// Outcome is "ok" or the failure kind, used as a metric label.
func (v Verdict) Outcome() string {
	if v.Failure == nil {
		return "ok"
	}
	return string(v.Failure.Kind)
}

func failed(kind FailureKind, err error, model string) Verdict {
	return Verdict{
		Assessment: ai.Assessment{
			Score:          0,
			Summary:        failureSummary(kind, err, model),
			MatchingSkills: []string{},
			MissingSkills:  []string{},
		},
		Failure: &Failure{Kind: kind, Err: err},
	}
}

func failureSummary(kind FailureKind, err error, model string) string {
	detail := ""
	if err != nil {
		detail = utils.Clip(err.Error(), DiagnosticLimit)
	}

	switch kind {
	case FailureQuota:
		return fmt.Sprintf("API quota exhausted for model '%s'. Use a new API key or try a different model.", model)
	case FailureParse:
		return fmt.Sprintf("(LLM returned an invalid assessment: %s)", detail)
	default:
		return fmt.Sprintf("(LLM failed: %s)", detail)
	}
}
