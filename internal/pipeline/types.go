package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoJobDescription  = errors.New("job description is required")
	ErrNoResumes         = errors.New("at least one resume is required")
	ErrMissingResumeID   = errors.New("resume id is required")
	ErrDuplicateResumeID = errors.New("duplicate resume id")
)

// ResumeInput is one extracted resume. Text may be a placeholder produced by
// the loader for files that could not be parsed.
type ResumeInput struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// DisplayName is the filename when known, otherwise the id.
func (r ResumeInput) DisplayName() string {
	if name := strings.TrimSpace(r.Filename); name != "" {
		return name
	}
	return r.ID
}

// CandidateResult is the ranked outcome for one resume.
type CandidateResult struct {
	CandidateName   string   `json:"candidate_name"`
	ID              string   `json:"id"`
	Score           int      `json:"score"`
	LLMScore        int      `json:"llm_score"`
	SimilarityScore float64  `json:"similarity_score"`
	Summary         string   `json:"summary"`
	MatchingSkills  []string `json:"matching_skills"`
	MissingSkills   []string `json:"missing_skills"`
	// Degraded lists the stages that failed for this resume, e.g. "index" or "judge:quota".
	Degraded        []string `json:"degraded,omitempty"`
}

// Stats counts per-stage failures of one batch.
type Stats struct {
	EmbedFailures  int            `json:"embed_failures"`
	IndexFailures  int            `json:"index_failures"`
	QueryFailures  int            `json:"query_failures"`
	JudgeFailures  map[string]int `json:"judge_failures,omitempty"`
	DirectFallback int            `json:"direct_similarity"`
	// JobEmbedFailed reports that similarity was disabled for the whole batch.
	JobEmbedFailed bool           `json:"job_embed_failed,omitempty"`
}

// Result is the outcome of one batch, candidates ordered by score descending.
type Result struct {
	BatchID    string            `json:"batch_id"`
	Collection string            `json:"collection"`
	Candidates []CandidateResult `json:"candidates"`
	Stats      Stats             `json:"stats"`
}

// validateBatch rejects a batch before any external call is made.
func validateBatch(jobDescription string, resumes []ResumeInput) error {
	if strings.TrimSpace(jobDescription) == "" {
		return ErrNoJobDescription
	}
	if len(resumes) == 0 {
		return ErrNoResumes
	}

	seen := make(map[string]int, len(resumes))
	for i, r := range resumes {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("resume %d: %w", i, ErrMissingResumeID)
		}
		if prev, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w %q at positions %d and %d", ErrDuplicateResumeID, r.ID, prev, i)
		}
		seen[r.ID] = i
	}
	return nil
}
