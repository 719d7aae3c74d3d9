package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is a student account keyed by phone number.
type User struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerificationCode is one outstanding SMS code. Only the bcrypt hash of the
// code is ever persisted.
type VerificationCode struct {
	ID          uuid.UUID
	PhoneNumber string
	CodeHash    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Used        bool
}

// TokenType discriminates access tokens from refresh tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID      int64  `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
	TokenType   string `json:"token_type"`
	jwt.RegisteredClaims
}

// SendCodeRequest asks for a verification code to be texted out.
type SendCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// VerifyCodeRequest exchanges a code for tokens.
type VerifyCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a fresh pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LoginResponse carries the issued token pair.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}
