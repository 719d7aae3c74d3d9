package kb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
)

// PostgresStore implements knowledge.Store on pgvector. All collections live
// in one table keyed by the collection name.
type PostgresStore struct {
	pool       *pgxpool.Pool
	collection string
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool, collection string) *PostgresStore {
	return &PostgresStore{pool: pool, collection: collection}
}

// EnsureCollection creates the extension and table when missing. Safe to run
// on every startup.
func (s *PostgresStore) EnsureCollection(ctx context.Context, dim int) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS kb_entries (
			id UUID PRIMARY KEY,
			collection TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dim)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create kb_entries table: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS kb_entries_collection_idx ON kb_entries (collection)`); err != nil {
		return fmt.Errorf("create collection index: %w", err)
	}
	return nil
}

// Upsert writes entries and their embeddings in one batch.
func (s *PostgresStore) Upsert(ctx context.Context, entries []knowledge.Entry, embeddings [][]float32) error {
	if len(entries) != len(embeddings) {
		return fmt.Errorf("got %d entries but %d embeddings", len(entries), len(embeddings))
	}
	batch := &pgx.Batch{}
	for i, entry := range entries {
		batch.Queue(`
			INSERT INTO kb_entries (id, collection, question, answer, confidence, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET question = EXCLUDED.question,
				answer = EXCLUDED.answer,
				confidence = EXCLUDED.confidence,
				embedding = EXCLUDED.embedding
		`, entry.ID, s.collection, entry.Question, entry.Answer, entry.Confidence, pgvector.NewVector(embeddings[i]))
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert kb entry: %w", err)
		}
	}
	return nil
}

// Search returns the closest entries by cosine similarity, best first.
func (s *PostgresStore) Search(ctx context.Context, embedding []float32, limit int) ([]knowledge.Match, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, question, answer, confidence, 1 - (embedding <=> $1) AS score
		FROM kb_entries
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(embedding), s.collection, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []knowledge.Match
	for rows.Next() {
		var m knowledge.Match
		if err := rows.Scan(&m.Entry.ID, &m.Entry.Question, &m.Entry.Answer, &m.Entry.Confidence, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

var _ knowledge.Store = (*PostgresStore)(nil)
