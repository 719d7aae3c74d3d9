package question

import (
	"time"

	"github.com/google/uuid"
)

// Question statuses. Pending questions await faculty review; verifying an
// answer moves them to answered, rejection is terminal.
const (
	StatusPending  = "pending"
	StatusAnswered = "answered"
	StatusRejected = "rejected"
)

// Question is a student question awaiting an answer.
type Question struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Answer is a faculty response to a question. Answers created automatically
// from the knowledge base carry AuthorID 0.
type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	AuthorID   int64     `json:"author_id"`
	Text       string    `json:"text"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Submission is the outcome of posting a question: the stored question plus
// the knowledge base answer when one scored above the threshold.
type Submission struct {
	Question     Question `json:"question"`
	Answer       *Answer  `json:"answer,omitempty"`
	AutoAnswered bool     `json:"auto_answered"`
}
