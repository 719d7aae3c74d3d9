package question

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
	"github.com/deepscalers/student-assistant/pkg/util"
)

// Confidence fed into the knowledge base per answer kind.
const (
	verifiedConfidence   = 1.0
	unverifiedConfidence = 0.5
)

// Config holds runtime knobs for the question workflow.
type Config struct {
	SimilarityThreshold float64
}

// KnowledgeSearcher performs ranked lookups against the knowledge base.
type KnowledgeSearcher interface {
	Search(ctx context.Context, question string, limit int) ([]knowledge.Match, error)
}

// Ingestor feeds accepted answers back into the knowledge base.
type Ingestor interface {
	Ingest(ctx context.Context, question, answer string, confidence float64) error
}

// Service runs the student question workflow. Submissions are auto-answered
// from the knowledge base when a close match exists, and faculty answers are
// fed back into it.
type Service interface {
	Submit(ctx context.Context, userID int64, text string) (Submission, error)
	Answer(ctx context.Context, questionID uuid.UUID, authorID int64, text string, verified bool) (Answer, error)
	Reject(ctx context.Context, questionID uuid.UUID) (Question, error)
	ListForUser(ctx context.Context, userID int64) ([]Question, error)
}

type service struct {
	cfg       Config
	repo      Repository
	knowledge KnowledgeSearcher
	ingestor  Ingestor
	logger    *slog.Logger
}

// NewService wires up the question domain.
func NewService(cfg Config, repo Repository, searcher KnowledgeSearcher, ingestor Ingestor, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		repo:      repo,
		knowledge: searcher,
		ingestor:  ingestor,
		logger:    logger.With("component", "question.service"),
	}
}

// Submit stores the question and tries to answer it from the knowledge base
// right away. Below the threshold the question stays pending for faculty.
func (s *service) Submit(ctx context.Context, userID int64, text string) (Submission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Submission{}, apperrors.Wrap("invalid_input", "question text cannot be empty", nil)
	}

	now := util.NowUTC()
	q := Question{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      text,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return Submission{}, apperrors.Wrap("upstream_error", "failed to store question", err)
	}

	matches, err := s.knowledge.Search(ctx, text, 1)
	if err != nil {
		// Auto-answering is best effort; the question is already pending.
		s.logger.Warn("knowledge lookup failed, question stays pending", "question_id", q.ID, "error", err)
		return Submission{Question: q}, nil
	}
	if len(matches) == 0 || matches[0].Score < s.cfg.SimilarityThreshold {
		return Submission{Question: q}, nil
	}

	answer := Answer{
		ID:         uuid.New(),
		QuestionID: q.ID,
		Text:       matches[0].Entry.Answer,
		Verified:   true,
		CreatedAt:  now,
	}
	if err := s.repo.CreateAnswer(ctx, answer); err != nil {
		s.logger.Warn("failed to store auto answer, question stays pending", "question_id", q.ID, "error", err)
		return Submission{Question: q}, nil
	}
	if err := s.repo.UpdateStatus(ctx, q.ID, StatusAnswered); err != nil {
		return Submission{}, apperrors.Wrap("upstream_error", "failed to update question status", err)
	}
	q.Status = StatusAnswered
	s.logger.Info("question auto answered", "question_id", q.ID, "score", matches[0].Score)
	return Submission{Question: q, Answer: &answer, AutoAnswered: true}, nil
}

// Answer records a faculty answer, marks the question answered and feeds the
// pair into the knowledge base. Verified answers ingest at full confidence.
func (s *service) Answer(ctx context.Context, questionID uuid.UUID, authorID int64, text string, verified bool) (Answer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, apperrors.Wrap("invalid_input", "answer text cannot be empty", nil)
	}

	q, err := s.repo.GetQuestion(ctx, questionID)
	if errors.Is(err, ErrNotFound) {
		return Answer{}, apperrors.Wrap("not_found", "question does not exist", err)
	}
	if err != nil {
		return Answer{}, apperrors.Wrap("upstream_error", "failed to load question", err)
	}
	if q.Status == StatusRejected {
		return Answer{}, apperrors.Wrap("invalid_input", "question has been rejected", nil)
	}

	answer := Answer{
		ID:         uuid.New(),
		QuestionID: q.ID,
		AuthorID:   authorID,
		Text:       text,
		Verified:   verified,
		CreatedAt:  util.NowUTC(),
	}
	if err := s.repo.CreateAnswer(ctx, answer); err != nil {
		return Answer{}, apperrors.Wrap("upstream_error", "failed to store answer", err)
	}
	if err := s.repo.UpdateStatus(ctx, q.ID, StatusAnswered); err != nil {
		return Answer{}, apperrors.Wrap("upstream_error", "failed to update question status", err)
	}

	confidence := unverifiedConfidence
	if verified {
		confidence = verifiedConfidence
	}
	if err := s.ingestor.Ingest(ctx, q.Text, text, confidence); err != nil {
		return Answer{}, apperrors.Wrap("upstream_error", "failed to add answer to knowledge base", err)
	}
	s.logger.Info("question answered", "question_id", q.ID, "verified", verified)
	return answer, nil
}

// Reject marks a pending question rejected. Answered questions cannot be
// rejected.
func (s *service) Reject(ctx context.Context, questionID uuid.UUID) (Question, error) {
	q, err := s.repo.GetQuestion(ctx, questionID)
	if errors.Is(err, ErrNotFound) {
		return Question{}, apperrors.Wrap("not_found", "question does not exist", err)
	}
	if err != nil {
		return Question{}, apperrors.Wrap("upstream_error", "failed to load question", err)
	}
	if q.Status != StatusPending {
		return Question{}, apperrors.Wrap("invalid_input", "only pending questions can be rejected", nil)
	}
	if err := s.repo.UpdateStatus(ctx, q.ID, StatusRejected); err != nil {
		return Question{}, apperrors.Wrap("upstream_error", "failed to update question status", err)
	}
	q.Status = StatusRejected
	return q, nil
}

// ListForUser returns the user's questions, newest first.
func (s *service) ListForUser(ctx context.Context, userID int64) ([]Question, error) {
	questions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap("upstream_error", "failed to list questions", err)
	}
	return questions, nil
}
