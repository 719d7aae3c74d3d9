package faq

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

type stubSearcher struct {
	matches []knowledge.Match
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]knowledge.Match, error) {
	return s.matches, s.err
}

type stubChat struct {
	answer string
	err    error
	calls  int
}

func (s *stubChat) CreateChatCompletion(_ context.Context, _ chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.ChatChoice{{Message: chatgpt.Message{Role: "assistant", Content: s.answer}}},
		Usage:   chatgpt.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

type stubCache struct {
	entries map[string]Response
	saves   int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]Response)}
}

func (s *stubCache) Get(_ context.Context, key string) (Response, bool, error) {
	resp, ok := s.entries[key]
	return resp, ok, nil
}

func (s *stubCache) Save(_ context.Context, key string, resp Response, _ time.Duration) error {
	s.saves++
	s.entries[key] = resp
	return nil
}

func match(answer string, score float64) knowledge.Match {
	return knowledge.Match{
		Entry: knowledge.Entry{ID: uuid.New(), Question: "q", Answer: answer, Confidence: 1},
		Score: score,
	}
}

func testConfig() Config {
	return Config{
		Model:               "test-model",
		Prompt:              "be helpful",
		SimilarityThreshold: 0.7,
		CacheTTL:            time.Hour,
	}
}

func TestAnswerAboveThresholdUsesKnowledgeBase(t *testing.T) {
	chat := &stubChat{answer: "llm answer"}
	svc := NewService(testConfig(), &stubSearcher{matches: []knowledge.Match{match("stored answer", 0.92)}}, newStubCache(), chat, slog.Default())

	resp, err := svc.Answer(context.Background(), Request{Question: "When is enrollment?"})
	require.NoError(t, err)
	assert.Equal(t, "stored answer", resp.Answer)
	assert.True(t, resp.Matched)
	assert.Equal(t, SourceFAQ, resp.Source)
	assert.InDelta(t, 0.92, resp.Confidence, 1e-9)
	assert.Equal(t, 0, chat.calls, "LLM should not be consulted on a confident match")
}

func TestAnswerBelowThresholdFallsBackToLLM(t *testing.T) {
	chat := &stubChat{answer: "generated answer"}
	svc := NewService(testConfig(), &stubSearcher{matches: []knowledge.Match{match("weak", 0.1)}}, newStubCache(), chat, slog.Default())

	resp, err := svc.Answer(context.Background(), Request{Question: "Something obscure"})
	require.NoError(t, err)
	assert.Equal(t, "generated answer", resp.Answer)
	assert.False(t, resp.Matched)
	assert.Equal(t, SourceLLM, resp.Source)
	require.NotNil(t, resp.TokenUsage)
	assert.Equal(t, 30, resp.TokenUsage.TotalTokens)
	assert.Equal(t, 1, chat.calls)
}

func TestAnswerDegradesWhenLLMFails(t *testing.T) {
	cache := newStubCache()
	chat := &stubChat{err: fmt.Errorf("upstream down")}
	svc := NewService(testConfig(), &stubSearcher{}, cache, chat, slog.Default())

	resp, err := svc.Answer(context.Background(), Request{Question: "Anything"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, apologyAnswer, resp.Answer)
	assert.Equal(t, SourceLLM, resp.Source)
	assert.Equal(t, 0, cache.saves, "degraded responses must not be cached")
}

func TestAnswerServesCachedResponse(t *testing.T) {
	cache := newStubCache()
	chat := &stubChat{answer: "fresh"}
	svc := NewService(testConfig(), &stubSearcher{matches: []knowledge.Match{match("stored", 0.95)}}, cache, chat, slog.Default())

	first, err := svc.Answer(context.Background(), Request{Question: "Repeat me"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Answer(context.Background(), Request{Question: "Repeat me"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, cache.saves)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	svc := NewService(testConfig(), &stubSearcher{}, newStubCache(), &stubChat{}, slog.Default())

	_, err := svc.Answer(context.Background(), Request{Question: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestAnswerWrapsSearchFailure(t *testing.T) {
	svc := NewService(testConfig(), &stubSearcher{err: fmt.Errorf("pg down")}, newStubCache(), &stubChat{}, slog.Default())

	_, err := svc.Answer(context.Background(), Request{Question: "hello"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "upstream_error"))
}
