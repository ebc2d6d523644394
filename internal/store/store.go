package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var ErrNotFound = errors.New("evaluation not found")

// Evaluation is one persisted screening run.
type Evaluation struct {
	ID             string                     `json:"id"`
	JobTitle       string                     `json:"job_title"`
	JobDescription string                     `json:"job_description"`
	CreatedAt      time.Time                  `json:"created_at"`
	Results        []pipeline.CandidateResult `json:"results"`
}

// Summary is the listing view of an Evaluation.
type Summary struct {
	ID         string    `json:"id"`
	JobTitle   string    `json:"job_title"`
	CreatedAt  time.Time `json:"created_at"`
	Candidates int       `json:"candidates"`
	TopScore   int       `json:"top_score"`
}

// Store persists evaluations. List returns newest first; Get returns results
// ordered by score descending, then by their saved position.
type Store interface {
	Save(ctx context.Context, ev Evaluation) (string, error)
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, id string) (*Evaluation, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func summarize(ev *Evaluation) Summary {
	s := Summary{
		ID:         ev.ID,
		JobTitle:   ev.JobTitle,
		CreatedAt:  ev.CreatedAt,
		Candidates: len(ev.Results),
	}
	for _, r := range ev.Results {
		if r.Score > s.TopScore {
			s.TopScore = r.Score
		}
	}
	return s
}

func sortSummaries(items []Summary) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func sortResults(results []pipeline.CandidateResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func cloneResults(in []pipeline.CandidateResult) []pipeline.CandidateResult {
	out := make([]pipeline.CandidateResult, len(in))
	for i, r := range in {
		r.MatchingSkills = cloneStrings(r.MatchingSkills)
		r.MissingSkills = cloneStrings(r.MissingSkills)
		if r.Degraded != nil {
			r.Degraded = append([]string(nil), r.Degraded...)
		}
		out[i] = r
	}
	return out
}

func cloneStrings(in []string) []string {
	return append([]string{}, in...)
}
