package kb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
)

// MemoryStore implements knowledge.Store in process memory. Used for tests
// and when Postgres is unavailable.
type MemoryStore struct {
	mu         sync.RWMutex
	dim        int
	entries    map[uuid.UUID]knowledge.Entry
	embeddings map[uuid.UUID][]float32
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[uuid.UUID]knowledge.Entry),
		embeddings: make(map[uuid.UUID][]float32),
	}
}

// EnsureCollection records the expected dimension.
func (s *MemoryStore) EnsureCollection(_ context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	return nil
}

// Upsert stores entries keyed by id.
func (s *MemoryStore) Upsert(_ context.Context, entries []knowledge.Entry, embeddings [][]float32) error {
	if len(entries) != len(embeddings) {
		return fmt.Errorf("got %d entries but %d embeddings", len(entries), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range entries {
		if s.dim > 0 && len(embeddings[i]) != s.dim {
			return fmt.Errorf("embedding dimension %d does not match collection dimension %d", len(embeddings[i]), s.dim)
		}
		s.entries[entry.ID] = entry
		s.embeddings[entry.ID] = embeddings[i]
	}
	return nil
}

// Search ranks all entries by cosine similarity against the query.
func (s *MemoryStore) Search(_ context.Context, embedding []float32, limit int) ([]knowledge.Match, error) {
	if limit <= 0 {
		limit = 1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]knowledge.Match, 0, len(s.entries))
	for id, entry := range s.entries {
		matches = append(matches, knowledge.Match{
			Entry: entry,
			Score: cosineSimilarity(embedding, s.embeddings[id]),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count reports the number of stored entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ knowledge.Store = (*MemoryStore)(nil)
