package vectorindex

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore persists vectors in a local SQLite file and ranks them with a
// brute-force scan, which is adequate for resume-sized collections.
type SQLiteStore struct {
	db     *sql.DB
	metric Metric
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, metric Metric) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open vector database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping vector database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vector schema: %w", err)
	}

	if metric == "" {
		metric = MetricCosine
	}
	return &SQLiteStore{db: db, metric: metric}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, collection string, rec Record) error {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vectors (collection, id, document, metadata, vector, dimension, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		collection, rec.ID, rec.Document, string(meta), encodeVector(rec.Vector), len(rec.Vector),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, collection string, q Query) ([]Match, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	query := "SELECT id, document, metadata, vector FROM vectors WHERE collection = ?"
	args := []any{collection}
	if len(q.IDs) > 0 {
		query += " AND id IN (" + strings.TrimSuffix(strings.Repeat("?,", len(q.IDs)), ",") + ")"
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id, document, metaJSON string
			blob                   []byte
		)
		if err := rows.Scan(&id, &document, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}

		vector, err := decodeVector(blob)
		if err != nil {
			continue
		}
		dist, err := s.metric.Distance(q.Vector, vector)
		if err != nil {
			continue
		}

		meta := map[string]string{}
		_ = json.Unmarshal([]byte(metaJSON), &meta)

		matches = append(matches, Match{ID: id, Distance: dist, Document: document, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector rows: %w", err)
	}

	return rankMatches(matches, q.TopK), nil
}

func (s *SQLiteStore) DropCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Metric() Metric {
	return s.metric
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
