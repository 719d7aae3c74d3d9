package kb

import (
	"context"
	"hash/fnv"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
)

const testDim = 8

// hashEmbedder produces stable vectors so similar text ranks identically
// across runs.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, testDim)
		h := fnv.New32a()
		h.Write([]byte(text))
		seed := h.Sum32()
		for j := range vec {
			seed = seed*1664525 + 1013904223
			vec[j] = float32(seed%1000)/500 - 1
		}
		out[i] = vec
	}
	return out, nil
}

func newTestService(t *testing.T, store knowledge.Store) knowledge.Service {
	t.Helper()
	svc, err := knowledge.NewService(context.Background(), knowledge.Config{VectorDim: testDim}, store, hashEmbedder{}, slog.Default())
	require.NoError(t, err)
	return svc
}

func TestSearchRanksExactQuestionFirst(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, "When does enrollment open?", "On August 1st.", 1))
	require.NoError(t, svc.Ingest(ctx, "Where is the library?", "Building C.", 1))

	matches, err := svc.Search(ctx, "When does enrollment open?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "On August 1st.", matches[0].Entry.Answer)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6, "identical question embeds identically")
}

func TestRepeatedIngestAddsDistinctEntries(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Ingest(ctx, "Same question?", "Same answer.", 1))
	require.NoError(t, svc.Ingest(ctx, "Same question?", "Same answer.", 1))
	assert.Equal(t, 2, store.Count(), "every ingest gets a fresh id, no dedup")
}

func TestIngestPairsSkipsBlankPairs(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)

	count, err := svc.IngestPairs(context.Background(), []knowledge.QAPair{
		{Question: "Valid?", Answer: "Yes."},
		{Question: "", Answer: "Orphan answer"},
		{Question: "No answer", Answer: "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, store.Count())
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(context.Background(), testDim))

	err := store.Upsert(context.Background(),
		[]knowledge.Entry{{Question: "q", Answer: "a"}},
		[][]float32{{1, 2, 3}})
	require.Error(t, err)
}

func TestSearchLimit(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	for _, q := range []string{"one?", "two?", "three?"} {
		require.NoError(t, svc.Ingest(ctx, q, "answer", 1))
	}
	matches, err := svc.Search(ctx, "one?", 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
