package faqcache

import (
	"context"
	"sync"
	"time"

	"github.com/deepscalers/student-assistant/internal/domain/faq"
)

type cachedResponse struct {
	payload   faq.Response
	expiresAt time.Time
}

// MemoryStore is an in-memory answer cache for tests and for running without
// Valkey.
type MemoryStore struct {
	mu      sync.RWMutex
	answers map[string]cachedResponse
}

// NewMemoryStore constructs an empty cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{answers: make(map[string]cachedResponse)}
}

// Get implements faq.AnswerCache.
func (s *MemoryStore) Get(_ context.Context, key string) (faq.Response, bool, error) {
	s.mu.RLock()
	record, ok := s.answers[key]
	s.mu.RUnlock()
	if !ok {
		return faq.Response{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.answers, key)
		s.mu.Unlock()
		return faq.Response{}, false, nil
	}
	return record.payload, true, nil
}

// Save implements faq.AnswerCache.
func (s *MemoryStore) Save(_ context.Context, key string, resp faq.Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.answers[key] = cachedResponse{payload: resp, expiresAt: exp}
	return nil
}

func hasExpired(expiresAt time.Time) bool {
	return !expiresAt.IsZero() && time.Now().After(expiresAt)
}

var _ faq.AnswerCache = (*MemoryStore)(nil)
