package questionrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepscalers/student-assistant/internal/domain/question"
)

// PostgresRepository persists questions and answers in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Init creates the question tables when missing. Safe to run on every startup.
func (r *PostgresRepository) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL,
			text TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS question_answers (
			id UUID PRIMARY KEY,
			question_id UUID NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
			author_id BIGINT NOT NULL DEFAULT 0,
			text TEXT NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS questions_user_idx ON questions (user_id, created_at DESC)`)
	return err
}

// CreateQuestion inserts a question row.
func (r *PostgresRepository) CreateQuestion(ctx context.Context, q question.Question) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO questions (id, user_id, text, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, q.ID, q.UserID, q.Text, q.Status, q.CreatedAt, q.UpdatedAt)
	return err
}

// GetQuestion fetches a question by id.
func (r *PostgresRepository) GetQuestion(ctx context.Context, id uuid.UUID) (question.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, text, status, created_at, updated_at
		FROM questions
		WHERE id = $1
		LIMIT 1
	`, id)
	if err != nil {
		return question.Question{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return question.Question{}, err
		}
		return question.Question{}, question.ErrNotFound
	}
	return scanQuestion(rows)
}

// ListByUser returns the user's questions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]question.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, text, status, created_at, updated_at
		FROM questions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateStatus moves a question through its state machine.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return question.ErrNotFound
	}
	return nil
}

// CreateAnswer inserts an answer row.
func (r *PostgresRepository) CreateAnswer(ctx context.Context, a question.Answer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO question_answers (id, question_id, author_id, text, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.QuestionID, a.AuthorID, a.Text, a.Verified, a.CreatedAt)
	return err
}

// AnswersFor returns answers to a question, oldest first.
func (r *PostgresRepository) AnswersFor(ctx context.Context, questionID uuid.UUID) ([]question.Answer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question_id, author_id, text, verified, created_at
		FROM question_answers
		WHERE question_id = $1
		ORDER BY created_at ASC
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []question.Answer
	for rows.Next() {
		var a question.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Text, &a.Verified, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (question.Question, error) {
	var q question.Question
	if err := row.Scan(&q.ID, &q.UserID, &q.Text, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return question.Question{}, err
	}
	return q, nil
}

var _ question.Repository = (*PostgresRepository)(nil)
