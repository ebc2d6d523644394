package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

const pgvectorSchema = `
CREATE TABLE IF NOT EXISTS resume_vectors (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    document   TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding  vector NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (collection, id)
)`

// PGVectorStore ranks with the pgvector cosine distance operator (<=>).
type PGVectorStore struct {
	pool *pgxpool.Pool
}

// OpenPGVector connects to Postgres, ensures the vector extension and table
// exist, and registers the vector codecs on every pooled connection.
func OpenPGVector(ctx context.Context, databaseURL string) (*PGVectorStore, error) {
	if databaseURL == "" {
		return nil, errors.New("pgvector database url is required")
	}

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	if _, err := conn.Exec(ctx, pgvectorSchema); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("create vector table: %w", err)
	}
	conn.Close(ctx)

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PGVectorStore{pool: pool}, nil
}

func (s *PGVectorStore) Upsert(ctx context.Context, collection string, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("cannot upsert empty vector")
	}

	meta, err := json.Marshal(copyMetadata(rec.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO resume_vectors (collection, id, document, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id) DO UPDATE
		SET document = EXCLUDED.document, metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding, updated_at = NOW()`,
		collection, rec.ID, rec.Document, meta, pgvector.NewVector(rec.Vector))
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PGVectorStore) Query(ctx context.Context, collection string, q Query) ([]Match, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	limit := q.TopK
	if limit <= 0 {
		limit = len(q.IDs)
	}
	if limit <= 0 {
		limit = 100
	}

	sql := `SELECT id, document, metadata, embedding <=> $2 AS distance
		FROM resume_vectors WHERE collection = $1`
	args := []any{collection, pgvector.NewVector(q.Vector)}
	if len(q.IDs) > 0 {
		sql += " AND id = ANY($4)"
		args = append(args, limit, q.IDs)
	} else {
		args = append(args, limit)
	}
	sql += " ORDER BY distance, id LIMIT $3"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Document, &meta, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		m.Metadata = map[string]string{}
		_ = json.Unmarshal(meta, &m.Metadata)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector rows: %w", err)
	}

	return matches, nil
}

func (s *PGVectorStore) DropCollection(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM resume_vectors WHERE collection = $1", collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}

func (s *PGVectorStore) Metric() Metric {
	return MetricCosine
}

func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
