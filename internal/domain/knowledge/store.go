package knowledge

import "context"

// Store persists embedded entries and answers nearest-neighbour queries.
// Every insert creates a fresh point; deduplication is the caller's problem.
type Store interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, entries []Entry, embeddings [][]float32) error
	Search(ctx context.Context, embedding []float32, limit int) ([]Match, error)
}

// Embedder produces fixed-length vectors for free form text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
