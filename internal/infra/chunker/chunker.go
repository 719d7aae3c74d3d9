package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/deepscalers/student-assistant/internal/domain/ingest"
)

// TokenCounter estimates how many model tokens a text costs.
type TokenCounter func(text string) int

// Chunker splits extracted text into pieces that fit a per-chunk token
// budget, keeping paragraphs together where possible.
type Chunker struct {
	budget  int
	counter TokenCounter
}

// New constructs a chunker. A nil counter falls back to a rough
// characters-per-token estimate.
func New(tokenBudget int, counter TokenCounter) *Chunker {
	if tokenBudget <= 0 {
		tokenBudget = 1500
	}
	if counter == nil {
		counter = EstimateTokens
	}
	return &Chunker{budget: tokenBudget, counter: counter}
}

// EstimateTokens approximates token counts at four characters per token.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text)/4 + 1
}

// Split implements ingest.Chunker.
func (c *Chunker) Split(text string) []ingest.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		chunks  []ingest.Chunk
		current strings.Builder
		tokens  int
	)
	flush := func() {
		content := strings.TrimSpace(current.String())
		if content != "" {
			chunks = append(chunks, ingest.Chunk{
				Index:      len(chunks),
				Content:    content,
				TokenCount: tokens,
			})
		}
		current.Reset()
		tokens = 0
	}

	for _, paragraph := range splitParagraphs(text) {
		cost := c.counter(paragraph)
		if cost > c.budget {
			// A single oversized paragraph gets split on sentence-ish
			// boundaries rather than dropped.
			flush()
			for _, piece := range c.splitOversized(paragraph) {
				current.WriteString(piece)
				tokens = c.counter(piece)
				flush()
			}
			continue
		}
		if tokens > 0 && tokens+cost > c.budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
		tokens += cost
	}
	flush()
	return chunks
}

func (c *Chunker) splitOversized(paragraph string) []string {
	var (
		pieces  []string
		current strings.Builder
		tokens  int
	)
	for _, sentence := range strings.SplitAfter(paragraph, ". ") {
		cost := c.counter(sentence)
		if tokens > 0 && tokens+cost > c.budget {
			pieces = append(pieces, current.String())
			current.Reset()
			tokens = 0
		}
		current.WriteString(sentence)
		tokens += cost
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ ingest.Chunker = (*Chunker)(nil)
