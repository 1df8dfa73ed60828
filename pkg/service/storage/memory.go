package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
)

// Memory keeps objects in process memory
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ interfaces.BlobStore = &Memory{}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (s *Memory) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = slices.Clone(data)
	return nil
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, goerr.Wrap(ErrObjectNotFound, "object not found", goerr.V("key", key))
	}
	return slices.Clone(data), nil
}

func (s *Memory) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// SignedURL returns a memory:// URL. It fails for unknown keys so callers see
// the same behavior as with a real bucket.
func (s *Memory) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.objects[key]; !ok {
		return "", goerr.Wrap(ErrObjectNotFound, "object not found", goerr.V("key", key))
	}
	return "memory://" + key, nil
}
