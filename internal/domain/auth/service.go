package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
	"github.com/deepscalers/student-assistant/pkg/util"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Config holds token and code lifetimes.
type Config struct {
	Secret          string
	TokenTTL        time.Duration
	RefreshTokenTTL time.Duration
	CodeTTL         time.Duration
}

// Service implements phone number verification and JWT issuance.
type Service interface {
	SendCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) (LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (LoginResponse, error)
	ValidateToken(token string) (Claims, error)
	Profile(ctx context.Context, userID int64) (User, error)
}

type service struct {
	cfg           Config
	users         UserRepository
	verifications VerificationRepository
	sender        CodeSender
	logger        *slog.Logger
}

// NewService wires up the auth domain.
func NewService(cfg Config, users UserRepository, verifications VerificationRepository, sender CodeSender, logger *slog.Logger) Service {
	return &service{
		cfg:           cfg,
		users:         users,
		verifications: verifications,
		sender:        sender,
		logger:        logger.With("component", "auth.service"),
	}
}

func (s *service) SendCode(ctx context.Context, phone string) error {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return apperrors.Wrap("internal_error", "failed to generate verification code", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap("internal_error", "failed to hash verification code", err)
	}

	// Deliver before persisting so an undeliverable code can never be
	// redeemed.
	if err := s.sender.Send(ctx, normalized, code); err != nil {
		return apperrors.Wrap("sms_error", "failed to deliver verification code", err)
	}

	now := util.NowUTC()
	record := VerificationCode{
		ID:          uuid.New(),
		PhoneNumber: normalized,
		CodeHash:    string(hash),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.CodeTTL),
	}
	if err := s.verifications.CreateCode(ctx, record); err != nil {
		return apperrors.Wrap("upstream_error", "failed to store verification code", err)
	}
	s.logger.Info("verification code sent", "phone", normalized)
	return nil
}

func (s *service) VerifyCode(ctx context.Context, phone, code string) (LoginResponse, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return LoginResponse{}, err
	}
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return LoginResponse{}, apperrors.Wrap("invalid_code", "verification code must be 6 digits", nil)
	}

	now := util.NowUTC()
	candidates, err := s.verifications.ActiveCodes(ctx, normalized, now)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("upstream_error", "failed to load verification codes", err)
	}

	var matched *VerificationCode
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].CodeHash), []byte(code)) == nil {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return LoginResponse{}, apperrors.Wrap("invalid_code", "verification code is invalid or expired", nil)
	}
	if err := s.verifications.MarkUsed(ctx, matched.ID); err != nil {
		return LoginResponse{}, apperrors.Wrap("upstream_error", "failed to consume verification code", err)
	}

	user, err := s.users.GetByPhone(ctx, normalized)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.users.Create(ctx, normalized)
	}
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("upstream_error", "failed to load user account", err)
	}

	return s.issueTokens(user)
}

func (s *service) Refresh(_ context.Context, refreshToken string) (LoginResponse, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return LoginResponse{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return LoginResponse{}, apperrors.Wrap("unauthorized", "token is not a refresh token", nil)
	}
	return s.issueTokens(User{ID: claims.UserID, PhoneNumber: claims.PhoneNumber, IsVerified: true})
}

func (s *service) ValidateToken(token string) (Claims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != TokenTypeAccess {
		return Claims{}, apperrors.Wrap("unauthorized", "token is not an access token", nil)
	}
	return claims, nil
}

func (s *service) Profile(ctx context.Context, userID int64) (User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, apperrors.Wrap("unauthorized", "account no longer exists", err)
	}
	if err != nil {
		return User{}, apperrors.Wrap("upstream_error", "failed to load user account", err)
	}
	return user, nil
}

func (s *service) issueTokens(user User) (LoginResponse, error) {
	access, err := s.signToken(user, TokenTypeAccess, s.cfg.TokenTTL)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("internal_error", "failed to sign access token", err)
	}
	refresh, err := s.signToken(user, TokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap("internal_error", "failed to sign refresh token", err)
	}
	return LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.TokenTTL.Seconds()),
		User:         user,
	}, nil
}

func (s *service) signToken(user User, tokenType string, ttl time.Duration) (string, error) {
	now := util.NowUTC()
	claims := Claims{
		UserID:      user.ID,
		PhoneNumber: user.PhoneNumber,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

func (s *service) parseToken(raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, apperrors.Wrap("unauthorized", "token is invalid or expired", err)
	}
	return claims, nil
}

func normalizePhone(phone string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
	if !phonePattern.MatchString(cleaned) {
		return "", apperrors.Wrap("invalid_input", "phone number format is invalid", nil)
	}
	return cleaned, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
