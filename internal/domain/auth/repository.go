package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by user lookups that come up empty.
var ErrUserNotFound = errors.New("user not found")

// UserRepository persists student accounts.
type UserRepository interface {
	GetByPhone(ctx context.Context, phone string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, phone string) (User, error)
}

// VerificationRepository persists outstanding SMS codes.
type VerificationRepository interface {
	CreateCode(ctx context.Context, code VerificationCode) error
	// ActiveCodes returns unused, unexpired codes for the phone number,
	// newest first.
	ActiveCodes(ctx context.Context, phone string, now time.Time) ([]VerificationCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

// CodeSender delivers a verification code to a phone number.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}
