package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter counts whitespace-separated words as tokens, which keeps the
// budgets in these tests easy to reason about.
func wordCounter(text string) int {
	return len(strings.Fields(text))
}

func TestSplitKeepsSmallTextWhole(t *testing.T) {
	c := New(100, wordCounter)
	chunks := c.Split("first paragraph here\n\nsecond paragraph here")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "first paragraph")
	assert.Contains(t, chunks[0].Content, "second paragraph")
}

func TestSplitRespectsBudget(t *testing.T) {
	paragraphs := make([]string, 10)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf("paragraph %d has exactly six words", i)
	}
	c := New(12, wordCounter)

	chunks := c.Split(strings.Join(paragraphs, "\n\n"))
	require.True(t, len(chunks) >= 5, "ten 6-word paragraphs cannot fit a 12-token budget in fewer than 5 chunks")
	for _, chunk := range chunks {
		assert.LessOrEqual(t, wordCounter(chunk.Content), 12, "chunk %d over budget", chunk.Index)
	}
}

func TestSplitIndexesSequentially(t *testing.T) {
	c := New(5, wordCounter)
	chunks := c.Split("one two three four\n\nfive six seven eight\n\nnine ten eleven twelve")
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestSplitBreaksOversizedParagraph(t *testing.T) {
	sentences := make([]string, 8)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("sentence number %d goes here", i)
	}
	oversized := strings.Join(sentences, ". ")
	c := New(10, wordCounter)

	chunks := c.Split(oversized)
	require.Greater(t, len(chunks), 1)
	var joined []string
	for _, chunk := range chunks {
		joined = append(joined, chunk.Content)
	}
	assert.Contains(t, strings.Join(joined, " "), "sentence number 7")
}

func TestSplitEmptyInput(t *testing.T) {
	c := New(100, nil)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Greater(t, EstimateTokens(strings.Repeat("a", 400)), 99)
}
