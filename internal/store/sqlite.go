package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore keeps evaluation history in a local file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open evaluation database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping evaluation database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create evaluation schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ev Evaluation) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO evaluations (id, job_title, job_description, created_at) VALUES (?, ?, ?, ?)",
		ev.ID, ev.JobTitle, ev.JobDescription, ev.CreatedAt.UnixNano()); err != nil {
		return "", fmt.Errorf("insert evaluation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evaluation_results (evaluation_id, position, candidate_name, resume_id, score, llm_score,
			similarity_score, summary, matching_skills, missing_skills, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ev.Results {
		matching, missing, degraded, err := encodeLists(r)
		if err != nil {
			return "", err
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, i, r.CandidateName, r.ID, r.Score, r.LLMScore,
			r.SimilarityScore, r.Summary, matching, missing, degraded); err != nil {
			return "", fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit evaluation: %w", err)
	}
	return ev.ID, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
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
			sum     Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.JobTitle, &created, &sum.Candidates, &sum.TopScore); err != nil {
			return nil, fmt.Errorf("scan evaluation summary: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Evaluation, error) {
	var (
		ev      = Evaluation{ID: id}
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT job_title, job_description, created_at FROM evaluations WHERE id = ?", id).
		Scan(&ev.JobTitle, &ev.JobDescription, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation %s: %w", id, err)
	}
	ev.CreatedAt = time.Unix(0, created).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_name, resume_id, score, llm_score, similarity_score, summary,
			matching_skills, missing_skills, degraded
		FROM evaluation_results WHERE evaluation_id = ?
		ORDER BY score DESC, position`, id)
	if err != nil {
		return nil, fmt.Errorf("get results for %s: %w", id, err)
	}
	defer rows.Close()

	ev.Results = []pipeline.CandidateResult{}
	for rows.Next() {
		var (
			r                           pipeline.CandidateResult
			matching, missing, degraded string
		)
		if err := rows.Scan(&r.CandidateName, &r.ID, &r.Score, &r.LLMScore, &r.SimilarityScore, &r.Summary,
			&matching, &missing, &degraded); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := decodeLists(&r, matching, missing, degraded); err != nil {
			return nil, err
		}
		ev.Results = append(ev.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return &ev, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM evaluations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete evaluation %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeLists(r pipeline.CandidateResult) (string, string, string, error) {
	var out [3]string
	for i, list := range [][]string{r.MatchingSkills, r.MissingSkills, r.Degraded} {
		b, err := json.Marshal(cloneStrings(list))
		if err != nil {
			return "", "", "", fmt.Errorf("encode result %s: %w", r.ID, err)
		}
		out[i] = string(b)
	}
	return out[0], out[1], out[2], nil
}

func decodeLists(r *pipeline.CandidateResult, matching, missing, degraded string) error {
	r.MatchingSkills, r.MissingSkills = []string{}, []string{}
	if err := json.Unmarshal([]byte(matching), &r.MatchingSkills); err != nil {
		return fmt.Errorf("decode matching skills of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(missing), &r.MissingSkills); err != nil {
		return fmt.Errorf("decode missing skills of %s: %w", r.ID, err)
	}
	var d []string
	if err := json.Unmarshal([]byte(degraded), &d); err != nil {
		return fmt.Errorf("decode degraded stages of %s: %w", r.ID, err)
	}
	if len(d) > 0 {
		r.Degraded = d
	}
	return nil
}
