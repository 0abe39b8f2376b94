package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archie-shopify-login/internal/ports"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a Redis hash that expires after ttl of inactivity
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.SessionStore = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Get returns the value of key, or ports.ErrSessionKeyNotFound
func (s *RedisStore) Get(ctx context.Context, sessionID string, key string) (string, error) {
	value, err := s.client.HGet(ctx, s.key(sessionID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrSessionKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return value, nil
}

// Set writes key and refreshes the session expiry
func (s *RedisStore) Set(ctx context.Context, sessionID string, key string, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(sessionID), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(sessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes a single key
func (s *RedisStore) Delete(ctx context.Context, sessionID string, key string) error {
	if err := s.client.HDel(ctx, s.key(sessionID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete session key: %w", err)
	}
	return nil
}

// Clear drops the whole session
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
