package authrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
)

// MemoryRepository provides an in-memory auth store for tests/dev.
type MemoryRepository struct {
	mu         sync.RWMutex
	users      map[int64]auth.User
	phoneIndex map[string]int64
	codes      map[uuid.UUID]auth.VerificationCode
	seq        int64
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[int64]auth.User),
		phoneIndex: make(map[string]int64),
		codes:      make(map[uuid.UUID]auth.VerificationCode),
	}
}

// GetByPhone returns a user by phone number.
func (r *MemoryRepository) GetByPhone(_ context.Context, phone string) (auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.phoneIndex[phone]; ok {
		return r.users[id], nil
	}
	return auth.User{}, auth.ErrUserNotFound
}

// GetByID fetches by ID.
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

// Create stores a verified user record.
func (r *MemoryRepository) Create(_ context.Context, phone string) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.phoneIndex[phone]; ok {
		return r.users[id], nil
	}
	r.seq++
	user := auth.User{
		ID:          r.seq,
		PhoneNumber: phone,
		IsVerified:  true,
		CreatedAt:   time.Now().UTC(),
	}
	r.users[user.ID] = user
	r.phoneIndex[phone] = user.ID
	return user, nil
}

// CreateCode stores a verification code.
func (r *MemoryRepository) CreateCode(_ context.Context, code auth.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.ID] = code
	return nil
}

// ActiveCodes returns unused, unexpired codes for the phone number, newest first.
func (r *MemoryRepository) ActiveCodes(_ context.Context, phone string, now time.Time) ([]auth.VerificationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []auth.VerificationCode
	for _, c := range r.codes {
		if c.PhoneNumber == phone && !c.Used && now.Before(c.ExpiresAt) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkUsed consumes a verification code.
func (r *MemoryRepository) MarkUsed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codes[id]; ok {
		c.Used = true
		r.codes[id] = c
	}
	return nil
}

var (
	_ auth.UserRepository         = (*MemoryRepository)(nil)
	_ auth.VerificationRepository = (*MemoryRepository)(nil)
)
