package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

type memUsers struct {
	nextID int64
	byID   map[int64]User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int64]User)}
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (User, error) {
	for _, u := range m.byID {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (User, error) {
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, phone string) (User, error) {
	m.nextID++
	u := User{ID: m.nextID, PhoneNumber: phone, IsVerified: true, CreatedAt: time.Now().UTC()}
	m.byID[u.ID] = u
	return u, nil
}

type memVerifications struct {
	codes map[uuid.UUID]VerificationCode
}

func newMemVerifications() *memVerifications {
	return &memVerifications{codes: make(map[uuid.UUID]VerificationCode)}
}

func (m *memVerifications) CreateCode(_ context.Context, code VerificationCode) error {
	m.codes[code.ID] = code
	return nil
}

func (m *memVerifications) ActiveCodes(_ context.Context, phone string, now time.Time) ([]VerificationCode, error) {
	var out []VerificationCode
	for _, c := range m.codes {
		if c.PhoneNumber == phone && !c.Used && now.Before(c.ExpiresAt) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memVerifications) MarkUsed(_ context.Context, id uuid.UUID) error {
	c, ok := m.codes[id]
	if !ok {
		return fmt.Errorf("code %s not found", id)
	}
	c.Used = true
	m.codes[id] = c
	return nil
}

type captureSender struct {
	lastCode string
	err      error
}

func (s *captureSender) Send(_ context.Context, _, code string) error {
	if s.err != nil {
		return s.err
	}
	s.lastCode = code
	return nil
}

func testAuthConfig() Config {
	return Config{
		Secret:          "test-secret",
		TokenTTL:        time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		CodeTTL:         10 * time.Minute,
	}
}

func newTestService() (Service, *memUsers, *memVerifications, *captureSender) {
	users := newMemUsers()
	verifications := newMemVerifications()
	sender := &captureSender{}
	return NewService(testAuthConfig(), users, verifications, sender, slog.Default()), users, verifications, sender
}

func TestSendAndVerifyCode(t *testing.T) {
	svc, _, verifications, sender := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "+1 (555) 123-4567"))
	require.Len(t, sender.lastCode, 6)
	require.Len(t, verifications.codes, 1)
	for _, c := range verifications.codes {
		assert.NotContains(t, c.CodeHash, sender.lastCode, "plaintext code must never be stored")
	}

	resp, err := svc.VerifyCode(ctx, "+15551234567", sender.lastCode)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "+15551234567", resp.User.PhoneNumber)
	assert.True(t, resp.User.IsVerified)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestVerifyCodeIsSingleUse(t *testing.T) {
	svc, _, _, sender := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "+15551234567"))
	_, err := svc.VerifyCode(ctx, "+15551234567", sender.lastCode)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, "+15551234567", sender.lastCode)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "invalid_code"))
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	svc, _, _, sender := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "+15551234567"))
	wrong := "000000"
	if wrong == sender.lastCode {
		wrong = "000001"
	}
	_, err := svc.VerifyCode(ctx, "+15551234567", wrong)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "invalid_code"))
}

func TestVerifyCodeRejectsOtherPhonesCode(t *testing.T) {
	svc, _, _, sender := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "+15551234567"))
	_, err := svc.VerifyCode(ctx, "+15559999999", sender.lastCode)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "invalid_code"))
}

func TestVerifyCodeExpiry(t *testing.T) {
	svc, _, verifications, _ := newTestService()
	ctx := context.Background()
	now := time.Now().UTC()

	hash := mustHash(t, "123456")
	verifications.codes = map[uuid.UUID]VerificationCode{}
	expired := VerificationCode{
		ID:          uuid.New(),
		PhoneNumber: "+15551234567",
		CodeHash:    hash,
		CreatedAt:   now.Add(-11 * time.Minute),
		ExpiresAt:   now.Add(-time.Second),
	}
	require.NoError(t, verifications.CreateCode(ctx, expired))

	_, err := svc.VerifyCode(ctx, "+15551234567", "123456")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "invalid_code"))

	fresh := expired
	fresh.ID = uuid.New()
	fresh.ExpiresAt = now.Add(time.Minute)
	require.NoError(t, verifications.CreateCode(ctx, fresh))

	_, err = svc.VerifyCode(ctx, "+15551234567", "123456")
	require.NoError(t, err)
}

func TestSendCodeNotPersistedWhenDeliveryFails(t *testing.T) {
	users := newMemUsers()
	verifications := newMemVerifications()
	sender := &captureSender{err: fmt.Errorf("carrier rejected")}
	svc := NewService(testAuthConfig(), users, verifications, sender, slog.Default())

	err := svc.SendCode(context.Background(), "+15551234567")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "sms_error"))
	assert.Empty(t, verifications.codes)
}

func TestSendCodeRejectsMalformedPhone(t *testing.T) {
	svc, _, _, _ := newTestService()

	for _, phone := range []string{"", "abc", "+1", "123456789012345678"} {
		err := svc.SendCode(context.Background(), phone)
		require.Error(t, err, phone)
		assert.True(t, apperrors.IsCode(err, "invalid_input"), phone)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	svc, _, _, sender := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "+15551234567"))
	login, err := svc.VerifyCode(ctx, "+15551234567", sender.lastCode)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, login.AccessToken)
	require.Error(t, err, "access tokens must not be accepted for refresh")
	assert.True(t, apperrors.IsCode(err, "unauthorized"))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "unauthorized"))
}

func TestProfile(t *testing.T) {
	svc, users, _, _ := newTestService()
	ctx := context.Background()

	created, err := users.Create(ctx, "+15551234567")
	require.NoError(t, err)

	got, err := svc.Profile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.PhoneNumber, got.PhoneNumber)

	_, err = svc.Profile(ctx, 9999)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "unauthorized"))
}

func mustHash(t *testing.T, code string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
