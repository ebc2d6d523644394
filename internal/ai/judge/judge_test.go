package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	system   string
	prompt   string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	s.calls++
	s.system = system
	s.prompt = prompt
	return s.response, s.err
}

func (s *stubGenerator) Provider() string { return "stub" }
func (s *stubGenerator) Model() string    { return "stub-model" }

func TestAssessSuccess(t *testing.T) {
	gen := &stubGenerator{response: "```json\n{\"score\": 85, \"summary\": \" Strong Go background. \", \"matching_skills\": [\"Go\", \" \"], \"missing_skills\": []}\n```"}
	j := New(gen, zap.NewNop(), Options{})

	verdict := j.Assess(context.Background(), "Looking for a Go engineer", "5 years of Go", 0.7812)

	if verdict.Failed() {
		t.Fatalf("unexpected failure: %v", verdict.Failure)
	}
	if verdict.Assessment.Score != 85 {
		t.Fatalf("expected score 85, got %d", verdict.Assessment.Score)
	}
	if verdict.Assessment.Summary != "Strong Go background." {
		t.Fatalf("unexpected summary %q", verdict.Assessment.Summary)
	}
	if len(verdict.Assessment.MatchingSkills) != 1 || verdict.Assessment.MatchingSkills[0] != "Go" {
		t.Fatalf("unexpected matching skills %v", verdict.Assessment.MatchingSkills)
	}
	if verdict.Assessment.MissingSkills == nil {
		t.Fatalf("missing skills must be an empty slice, not nil")
	}
	if verdict.Outcome() != "ok" {
		t.Fatalf("unexpected outcome %q", verdict.Outcome())
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one backend call, got %d", gen.calls)
	}
	if !strings.Contains(gen.prompt, "Embedding Similarity Score: 0.7812") {
		t.Fatalf("similarity not rendered into prompt: %s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, `"matching_skills"`) {
		t.Fatalf("format instructions missing from prompt")
	}
	if !strings.Contains(gen.system, "expert recruiter assistant") {
		t.Fatalf("system instruction missing: %q", gen.system)
	}
}

func TestAssessClampsScore(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  int
	}{
		{name: "above range", score: "140", want: 100},
		{name: "below range", score: "-5", want: 0},
		{name: "integral float", score: "72.0", want: 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{response: fmt.Sprintf(`{"score": %s, "summary": "s", "matching_skills": [], "missing_skills": []}`, tt.score)}
			verdict := New(gen, zap.NewNop(), Options{}).Assess(context.Background(), "jd", "cv", 0)
			if verdict.Failed() {
				t.Fatalf("unexpected failure: %v", verdict.Failure)
			}
			if verdict.Assessment.Score != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, verdict.Assessment.Score)
			}
		})
	}
}

func TestAssessFailClosed(t *testing.T) {
	tests := []struct {
		name        string
		gen         *stubGenerator
		wantKind    FailureKind
		wantSummary string
	}{
		{
			name:        "quota",
			gen:         &stubGenerator{err: fmt.Errorf("generate content: %w: too many requests", ai.ErrQuotaExhausted)},
			wantKind:    FailureQuota,
			wantSummary: "API quota exhausted for model 'stub-model'",
		},
		{
			name:        "backend",
			gen:         &stubGenerator{err: errors.New("dial tcp: connection refused")},
			wantKind:    FailureBackend,
			wantSummary: "(LLM failed: dial tcp: connection refused)",
		},
		{
			name:        "timeout",
			gen:         &stubGenerator{err: context.DeadlineExceeded},
			wantKind:    FailureBackend,
			wantSummary: "(LLM failed: context deadline exceeded)",
		},
		{
			name:        "not json",
			gen:         &stubGenerator{response: "I think the candidate is great"},
			wantKind:    FailureParse,
			wantSummary: "(LLM returned an invalid assessment:",
		},
		{
			name:        "missing field",
			gen:         &stubGenerator{response: `{"score": 90, "summary": "s", "matching_skills": ["Go"]}`},
			wantKind:    FailureParse,
			wantSummary: "missing_skills",
		},
		{
			name:        "wrong type",
			gen:         &stubGenerator{response: `{"score": "ninety", "summary": "s", "matching_skills": [], "missing_skills": []}`},
			wantKind:    FailureParse,
			wantSummary: "score",
		},
		{
			name:        "fractional score",
			gen:         &stubGenerator{response: `{"score": 88.5, "summary": "s", "matching_skills": [], "missing_skills": []}`},
			wantKind:    FailureParse,
			wantSummary: "score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := New(tt.gen, zap.NewNop(), Options{}).Assess(context.Background(), "jd", "cv", 0.5)

			if !verdict.Failed() {
				t.Fatalf("expected failure")
			}
			if verdict.Failure.Kind != tt.wantKind {
				t.Fatalf("expected %s, got %s (%v)", tt.wantKind, verdict.Failure.Kind, verdict.Failure.Err)
			}
			a := verdict.Assessment
			if a.Score != 0 || len(a.MatchingSkills) != 0 || len(a.MissingSkills) != 0 {
				t.Fatalf("failure must be fail-closed, got %+v", a)
			}
			if a.MatchingSkills == nil || a.MissingSkills == nil {
				t.Fatalf("skill lists must be empty slices")
			}
			if !strings.Contains(a.Summary, tt.wantSummary) {
				t.Fatalf("summary %q does not contain %q", a.Summary, tt.wantSummary)
			}
			if tt.gen.calls != 1 {
				t.Fatalf("expected a single attempt, got %d", tt.gen.calls)
			}
		})
	}
}

func TestAssessTruncatesDiagnostic(t *testing.T) {
	gen := &stubGenerator{err: errors.New(strings.Repeat("x", 400))}
	verdict := New(gen, zap.NewNop(), Options{}).Assess(context.Background(), "jd", "cv", 0)

	want := "(LLM failed: " + strings.Repeat("x", DiagnosticLimit) + ")"
	if verdict.Assessment.Summary != want {
		t.Fatalf("diagnostic not capped at %d chars: %q", DiagnosticLimit, verdict.Assessment.Summary)
	}
}

func TestAssessTruncatesResume(t *testing.T) {
	gen := &stubGenerator{response: `{"score": 1, "summary": "s", "matching_skills": [], "missing_skills": []}`}
	j := New(gen, zap.NewNop(), Options{MaxResumeTokens: 2})

	j.Assess(context.Background(), "jd", "abcdefghijklmnop", 0)

	if strings.Contains(gen.prompt, "abcdefghi") {
		t.Fatalf("resume should be truncated to the token budget: %s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "abcdefgh") {
		t.Fatalf("truncated resume missing from prompt: %s", gen.prompt)
	}
}

func TestAssessLogsWithProviderFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	gen := &stubGenerator{err: errors.New("boom")}

	New(gen, zap.New(core), Options{}).Assess(context.Background(), "jd", "cv", 0)

	warns := observed.FilterMessage("judge request failed").All()
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %d", len(warns))
	}
	ctx := warns[0].ContextMap()
	if ctx["ai_provider"] != "stub" || ctx["ai_model"] != "stub-model" {
		t.Fatalf("missing provider fields: %v", ctx)
	}
	if ctx["failure"] != "backend" {
		t.Fatalf("unexpected failure field: %v", ctx["failure"])
	}
}
