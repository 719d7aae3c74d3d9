package faq

import (
	"context"
	"time"

	"github.com/deepscalers/student-assistant/pkg/metrics"
)

// Request encapsulates a FAQ query.
type Request struct {
	Question string `json:"question"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Question   string              `json:"question"`
	Answer     string              `json:"answer"`
	Confidence float64             `json:"confidence"`
	Threshold  float64             `json:"threshold"`
	Matched    bool                `json:"matched"`
	Source     string              `json:"source"`
	Degraded   bool                `json:"degraded,omitempty"`
	Cached     bool                `json:"cached,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// Answer sources.
const (
	SourceFAQ = "faq"
	SourceLLM = "llm"
)

// AnswerCache stores responses keyed by a hash of the exact question text.
// Near-duplicate questions miss on purpose.
type AnswerCache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Save(ctx context.Context, key string, resp Response, ttl time.Duration) error
}
