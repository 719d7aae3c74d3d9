package faq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
	"github.com/deepscalers/student-assistant/pkg/metrics"
)

const apologyAnswer = "I apologize, but I'm having trouble generating a response at the moment. Please try again."

// Config holds runtime knobs for question answering.
type Config struct {
	Model               string
	Temperature         float32
	Prompt              string
	SimilarityThreshold float64
	CacheTTL            time.Duration
}

// Service answers student questions from the knowledge base with an LLM
// fallback below the similarity threshold.
type Service interface {
	Answer(ctx context.Context, req Request) (Response, error)
}

// ChatClient is the slice of the LLM client the FAQ domain needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// KnowledgeSearcher performs ranked lookups against the knowledge base.
type KnowledgeSearcher interface {
	Search(ctx context.Context, question string, limit int) ([]knowledge.Match, error)
}

type service struct {
	cfg       Config
	knowledge KnowledgeSearcher
	cache     AnswerCache
	client    ChatClient
	logger    *slog.Logger
}

// NewService wires up the FAQ domain.
func NewService(cfg Config, searcher KnowledgeSearcher, cache AnswerCache, client ChatClient, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		knowledge: searcher,
		cache:     cache,
		client:    client,
		logger:    logger.With("component", "faq.service"),
	}
}

func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap("invalid_input", "question cannot be empty", nil)
	}

	key := cacheKey(question)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("faq cache lookup failed", "error", err)
	} else if ok {
		cached.Cached = true
		return cached, nil
	}

	matches, err := s.knowledge.Search(ctx, question, 1)
	if err != nil {
		return Response{}, apperrors.Wrap("upstream_error", "knowledge lookup failed", err)
	}

	var (
		best     knowledge.Match
		hasMatch = len(matches) > 0
	)
	if hasMatch {
		best = matches[0]
	}

	resp := Response{
		Question:  question,
		Threshold: s.cfg.SimilarityThreshold,
	}

	if hasMatch && best.Score >= s.cfg.SimilarityThreshold {
		resp.Answer = best.Entry.Answer
		resp.Confidence = best.Score
		resp.Matched = true
		resp.Source = SourceFAQ
	} else {
		if hasMatch {
			resp.Confidence = best.Score
		}
		resp.Matched = false
		resp.Source = SourceLLM
		answer, usage, genErr := s.generate(ctx, question)
		if genErr != nil {
			// Provider failures degrade the payload, they do not fail the request.
			s.logger.Error("llm generation failed, degrading", "error", genErr)
			resp.Answer = apologyAnswer
			resp.Degraded = true
			return resp, nil
		}
		resp.Answer = answer
		if !usage.IsZero() {
			resp.TokenUsage = &usage
		}
	}

	if s.cfg.CacheTTL > 0 {
		if err := s.cache.Save(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("faq cache save failed", "error", err)
		}
	}
	return resp, nil
}

func (s *service) generate(ctx context.Context, question string) (string, metrics.TokenUsage, error) {
	prompt := strings.TrimSpace(s.cfg.Prompt)
	if prompt == "" {
		prompt = "You are a helpful assistant for university students."
	}
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: question},
		},
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", metrics.TokenUsage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", metrics.TokenUsage{}, fmt.Errorf("chat completion returned no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", metrics.TokenUsage{}, fmt.Errorf("chat completion returned empty answer")
	}
	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return answer, usage, nil
}

func cacheKey(question string) string {
	sum := sha256.Sum256([]byte(question))
	return hex.EncodeToString(sum[:])
}
