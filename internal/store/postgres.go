package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS evaluations (
    id              TEXT PRIMARY KEY,
    job_title       TEXT NOT NULL DEFAULT '',
    job_description TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS evaluation_results (
    evaluation_id    TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    candidate_name   TEXT NOT NULL,
    resume_id        TEXT NOT NULL,
    score            INTEGER NOT NULL,
    llm_score        INTEGER NOT NULL,
    similarity_score DOUBLE PRECISION NOT NULL,
    summary          TEXT NOT NULL,
    matching_skills  TEXT[] NOT NULL DEFAULT '{}',
    missing_skills   TEXT[] NOT NULL DEFAULT '{}',
    degraded         TEXT[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (evaluation_id, position)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations (created_at DESC);
`

// PostgresStore keeps evaluation history in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres database url is required")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create evaluation schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, ev Evaluation) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"INSERT INTO evaluations (id, job_title, job_description, created_at) VALUES ($1, $2, $3, $4)",
			ev.ID, ev.JobTitle, ev.JobDescription, ev.CreatedAt); err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}

		batch := &pgx.Batch{}
		for i, r := range ev.Results {
			batch.Queue(`
				INSERT INTO evaluation_results (evaluation_id, position, candidate_name, resume_id, score, llm_score,
					similarity_score, summary, matching_skills, missing_skills, degraded)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				ev.ID, i, r.CandidateName, r.ID, r.Score, r.LLMScore, r.SimilarityScore, r.Summary,
				cloneStrings(r.MatchingSkills), cloneStrings(r.MissingSkills), cloneStrings(r.Degraded))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.job_title, e.created_at, COUNT(r.position), COALESCE(MAX(r.score), 0)
		FROM evaluations e
		LEFT JOIN evaluation_results r ON r.evaluation_id = e.id
		GROUP BY e.id
		ORDER BY e.created_at DESC, e.id`)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum        Summary
			candidates int64
			top        int32
		)
		if err := rows.Scan(&sum.ID, &sum.JobTitle, &sum.CreatedAt, &candidates, &top); err != nil {
			return nil, fmt.Errorf("scan evaluation summary: %w", err)
		}
		sum.CreatedAt = sum.CreatedAt.UTC()
		sum.Candidates, sum.TopScore = int(candidates), int(top)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Evaluation, error) {
	ev := Evaluation{ID: id}
	err := s.pool.QueryRow(ctx,
		"SELECT job_title, job_description, created_at FROM evaluations WHERE id = $1", id).
		Scan(&ev.JobTitle, &ev.JobDescription, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation %s: %w", id, err)
	}
	ev.CreatedAt = ev.CreatedAt.UTC()

	rows, err := s.pool.Query(ctx, `
		SELECT candidate_name, resume_id, score, llm_score, similarity_score, summary,
			matching_skills, missing_skills, degraded
		FROM evaluation_results WHERE evaluation_id = $1
		ORDER BY score DESC, position`, id)
	if err != nil {
		return nil, fmt.Errorf("get results for %s: %w", id, err)
	}
	defer rows.Close()

	ev.Results = []pipeline.CandidateResult{}
	for rows.Next() {
		var (
			r        pipeline.CandidateResult
			degraded []string
		)
		if err := rows.Scan(&r.CandidateName, &r.ID, &r.Score, &r.LLMScore, &r.SimilarityScore, &r.Summary,
			&r.MatchingSkills, &r.MissingSkills, &degraded); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.MatchingSkills = cloneStrings(r.MatchingSkills)
		r.MissingSkills = cloneStrings(r.MissingSkills)
		if len(degraded) > 0 {
			r.Degraded = degraded
		}
		ev.Results = append(ev.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return &ev, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM evaluations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete evaluation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
