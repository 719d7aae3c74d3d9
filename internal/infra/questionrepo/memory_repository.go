package questionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepscalers/student-assistant/internal/domain/question"
)

// MemoryRepository provides an in-memory question store for tests/dev.
type MemoryRepository struct {
	mu        sync.RWMutex
	questions map[uuid.UUID]question.Question
	answers   map[uuid.UUID][]question.Answer
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		questions: make(map[uuid.UUID]question.Question),
		answers:   make(map[uuid.UUID][]question.Answer),
	}
}

// CreateQuestion stores a question.
func (r *MemoryRepository) CreateQuestion(_ context.Context, q question.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions[q.ID] = q
	return nil
}

// GetQuestion fetches a question by id.
func (r *MemoryRepository) GetQuestion(_ context.Context, id uuid.UUID) (question.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[id]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	return q, nil
}

// ListByUser returns the user's questions, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]question.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []question.Question
	for _, q := range r.questions {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus moves a question through its state machine.
func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return question.ErrNotFound
	}
	q.Status = status
	q.UpdatedAt = time.Now().UTC()
	r.questions[id] = q
	return nil
}

// CreateAnswer stores an answer.
func (r *MemoryRepository) CreateAnswer(_ context.Context, a question.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[a.QuestionID] = append(r.answers[a.QuestionID], a)
	return nil
}

// AnswersFor returns answers to a question, oldest first.
func (r *MemoryRepository) AnswersFor(_ context.Context, questionID uuid.UUID) ([]question.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	answers := r.answers[questionID]
	out := make([]question.Answer, len(answers))
	copy(out, answers)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ question.Repository = (*MemoryRepository)(nil)
