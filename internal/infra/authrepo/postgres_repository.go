package authrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
)

// PostgresRepository persists users and verification codes in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Init creates the auth tables when missing. Safe to run on every startup.
func (r *PostgresRepository) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			phone_number TEXT NOT NULL UNIQUE,
			is_verified BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS verification_codes (
			id UUID PRIMARY KEY,
			phone_number TEXT NOT NULL,
			code_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			used BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS verification_codes_phone_idx
		ON verification_codes (phone_number, expires_at)`)
	return err
}

// GetByPhone fetches a user account by phone number.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (auth.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, phone_number, is_verified, created_at
		FROM users
		WHERE phone_number = $1
		LIMIT 1
	`, phone)
	if err != nil {
		return auth.User{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return auth.User{}, err
		}
		return auth.User{}, auth.ErrUserNotFound
	}
	return scanUser(rows)
}

// GetByID fetches a user account by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (auth.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, phone_number, is_verified, created_at
		FROM users
		WHERE id = $1
		LIMIT 1
	`, id)
	if err != nil {
		return auth.User{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return auth.User{}, err
		}
		return auth.User{}, auth.ErrUserNotFound
	}
	return scanUser(rows)
}

// Create inserts a verified user row.
func (r *PostgresRepository) Create(ctx context.Context, phone string) (auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (phone_number, is_verified)
		VALUES ($1, TRUE)
		ON CONFLICT (phone_number) DO UPDATE SET is_verified = TRUE
		RETURNING id, phone_number, is_verified, created_at
	`, phone)
	return scanUser(row)
}

// CreateCode inserts a verification code row.
func (r *PostgresRepository) CreateCode(ctx context.Context, code auth.VerificationCode) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_codes (id, phone_number, code_hash, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, code.ID, code.PhoneNumber, code.CodeHash, code.CreatedAt, code.ExpiresAt, code.Used)
	return err
}

// ActiveCodes returns unused, unexpired codes for the phone number, newest first.
func (r *PostgresRepository) ActiveCodes(ctx context.Context, phone string, now time.Time) ([]auth.VerificationCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, phone_number, code_hash, created_at, expires_at, used
		FROM verification_codes
		WHERE phone_number = $1 AND used = FALSE AND expires_at > $2
		ORDER BY created_at DESC
	`, phone, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []auth.VerificationCode
	for rows.Next() {
		var c auth.VerificationCode
		if err := rows.Scan(&c.ID, &c.PhoneNumber, &c.CodeHash, &c.CreatedAt, &c.ExpiresAt, &c.Used); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// MarkUsed consumes a verification code.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE verification_codes SET used = TRUE WHERE id = $1
	`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var user auth.User
	if err := row.Scan(&user.ID, &user.PhoneNumber, &user.IsVerified, &user.CreatedAt); err != nil {
		return auth.User{}, err
	}
	return user, nil
}

var (
	_ auth.UserRepository         = (*PostgresRepository)(nil)
	_ auth.VerificationRepository = (*PostgresRepository)(nil)
)
