package question

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a question does not exist.
var ErrNotFound = errors.New("question not found")

// Repository persists questions and their answers.
type Repository interface {
	CreateQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (Question, error)
	ListByUser(ctx context.Context, userID int64) ([]Question, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateAnswer(ctx context.Context, a Answer) error
	AnswersFor(ctx context.Context, questionID uuid.UUID) ([]Answer, error)
}
