package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/deepscalers/student-assistant/internal/domain/ingest"
	"github.com/deepscalers/student-assistant/internal/domain/voice"
)

type memoryObject struct {
	data     []byte
	mimeType string
}

// MemoryStorage keeps objects in process memory for tests and for running
// without an S3 endpoint.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStorage constructs an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

// Put stores the object.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = memoryObject{data: buf, mimeType: mimeType}
	return nil
}

// Get fetches an object for reading.
func (s *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes an object.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

var (
	_ ingest.ObjectStorage = (*MemoryStorage)(nil)
	_ voice.ObjectStorage  = (*MemoryStorage)(nil)
)
