package store

import (
	"context"
	"fmt"
	"time"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements SessionStore on Redis. Keys are namespaced per
// session id (from the context) and scope; session-scoped values carry
// a TTL so abandoned sessions age out on their own.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(client *redis.Client, sessionTTL time.Duration) ports.SessionStore {
	return &RedisStore{
		client:     client,
		sessionTTL: sessionTTL,
	}
}

func (s *RedisStore) key(ctx context.Context, scope ports.Scope, key string) string {
	sessionID := domain.GetSessionIDFromContext(ctx)
	if sessionID == "" {
		sessionID = "global"
	}
	return fmt.Sprintf("adscope:%s:%s:%s", sessionID, scope, key)
}

func (s *RedisStore) ttl(scope ports.Scope) time.Duration {
	if scope == ports.ScopeSession {
		return s.sessionTTL
	}
	return 0
}

// Get returns the value and whether it was present.
func (s *RedisStore) Get(ctx context.Context, scope ports.Scope, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(ctx, scope, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s value: %w", scope, err)
	}
	return value, true, nil
}

// Set overwrites the value; a missing prior value is not an error.
func (s *RedisStore) Set(ctx context.Context, scope ports.Scope, key string, value string) error {
	if err := s.client.Set(ctx, s.key(ctx, scope, key), value, s.ttl(scope)).Err(); err != nil {
		return fmt.Errorf("failed to set %s value: %w", scope, err)
	}
	return nil
}

// Delete is a no-op if the key is absent.
func (s *RedisStore) Delete(ctx context.Context, scope ports.Scope, key string) error {
	if err := s.client.Del(ctx, s.key(ctx, scope, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s value: %w", scope, err)
	}
	return nil
}

// Take atomically reads and deletes via GETDEL, which is what makes a
// pending connection single-consumption under concurrent callbacks.
func (s *RedisStore) Take(ctx context.Context, scope ports.Scope, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, s.key(ctx, scope, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to take %s value: %w", scope, err)
	}
	return value, true, nil
}

// ClearAll removes every value in a scope for the current session.
func (s *RedisStore) ClearAll(ctx context.Context, scope ports.Scope) error {
	pattern := s.key(ctx, scope, "*")
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to clear %s scope: %w", scope, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s scope: %w", scope, err)
	}
	return nil
}
