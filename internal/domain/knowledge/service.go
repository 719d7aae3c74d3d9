package knowledge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

// Config holds runtime knobs for the knowledge base.
type Config struct {
	VectorDim int
}

// Service exposes knowledge base ingestion and lookup.
type Service interface {
	Ingest(ctx context.Context, question, answer string, confidence float64) error
	IngestPairs(ctx context.Context, pairs []QAPair) (int, error)
	Search(ctx context.Context, question string, limit int) ([]Match, error)
}

type service struct {
	cfg      Config
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// NewService wires up the knowledge domain. The target collection must exist;
// missing/unreachable stores are a startup failure, not a request failure.
func NewService(ctx context.Context, cfg Config, store Store, embedder Embedder, logger *slog.Logger) (Service, error) {
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = 384
	}
	if err := store.EnsureCollection(ctx, cfg.VectorDim); err != nil {
		return nil, apperrors.Wrap("store_error", "knowledge collection unavailable", err)
	}
	return &service{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		logger:   logger.With("component", "knowledge.service"),
	}, nil
}

func (s *service) Ingest(ctx context.Context, question, answer string, confidence float64) error {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return apperrors.Wrap("invalid_input", "question and answer cannot be empty", nil)
	}
	if confidence <= 0 || confidence > 1 {
		confidence = 1.0
	}
	_, err := s.upsert(ctx, []Entry{{
		ID:         uuid.New(),
		Question:   question,
		Answer:     answer,
		Confidence: confidence,
	}})
	return err
}

func (s *service) IngestPairs(ctx context.Context, pairs []QAPair) (int, error) {
	entries := make([]Entry, 0, len(pairs))
	for _, pair := range pairs {
		question := strings.TrimSpace(pair.Question)
		answer := strings.TrimSpace(pair.Answer)
		if question == "" || answer == "" {
			continue
		}
		entries = append(entries, Entry{
			ID:         uuid.New(),
			Question:   question,
			Answer:     answer,
			Confidence: 1.0,
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return s.upsert(ctx, entries)
}

func (s *service) Search(ctx context.Context, question string, limit int) ([]Match, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.Wrap("invalid_input", "question cannot be empty", nil)
	}
	if limit <= 0 {
		limit = 5
	}
	embedding, err := s.embedQuestions(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	matches, err := s.store.Search(ctx, embedding[0], limit)
	if err != nil {
		return nil, apperrors.Wrap("store_error", "similarity search failed", err)
	}
	return matches, nil
}

// upsert embeds question text only. Lookups are by question, so mixing the
// answer into the vector skews the space.
func (s *service) upsert(ctx context.Context, entries []Entry) (int, error) {
	questions := make([]string, 0, len(entries))
	for _, entry := range entries {
		questions = append(questions, entry.Question)
	}
	embeddings, err := s.embedQuestions(ctx, questions)
	if err != nil {
		return 0, err
	}
	if err := s.store.Upsert(ctx, entries, embeddings); err != nil {
		return 0, apperrors.Wrap("store_error", "failed to upsert entries", err)
	}
	s.logger.Info("knowledge entries upserted", "count", len(entries))
	return len(entries), nil
}

func (s *service) embedQuestions(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, apperrors.Wrap("embedding_error", "failed to embed text", err)
	}
	if len(embeddings) != len(texts) {
		return nil, apperrors.Wrap("embedding_error", "embedding count mismatch", nil)
	}
	for _, embedding := range embeddings {
		if len(embedding) != s.cfg.VectorDim {
			return nil, apperrors.Wrap("embedding_error", "unexpected embedding dimension", nil)
		}
	}
	return embeddings, nil
}
