package store

import (
	"context"
	"strings"
	"sync"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"
)

// MemoryStore is an in-process SessionStore used by tests and
// single-node runs where Redis is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) key(ctx context.Context, scope ports.Scope, key string) string {
	sessionID := domain.GetSessionIDFromContext(ctx)
	if sessionID == "" {
		sessionID = "global"
	}
	return sessionID + ":" + string(scope) + ":" + key
}

func (s *MemoryStore) Get(ctx context.Context, scope ports.Scope, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[s.key(ctx, scope, key)]
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, scope ports.Scope, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.key(ctx, scope, key)] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, scope ports.Scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, s.key(ctx, scope, key))
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, scope ports.Scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(ctx, scope, key)
	value, ok := s.values[k]
	if ok {
		delete(s.values, k)
	}
	return value, ok, nil
}

func (s *MemoryStore) ClearAll(ctx context.Context, scope ports.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := s.key(ctx, scope, "")
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			delete(s.values, k)
		}
	}
	return nil
}
