package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DedupeStore implements ports.DedupeStore using Redis SET NX. The
// withdrawal pipeline claims a key derived from the transaction id before
// submitting a transfer, so a retried submission cannot double-send.
type DedupeStore struct {
	client *goredis.Client
	prefix string
}

// NewDedupeStore creates a new Redis-backed dedupe store.
func NewDedupeStore(client *goredis.Client) *DedupeStore {
	return &DedupeStore{
		client: client,
		prefix: "dedupe:",
	}
}

// Claim atomically checks if a key is free and holds it if so.
// Returns true if the key was claimed, false if already held.
func (s *DedupeStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — another submission holds it.
			return false, nil
		}
		return false, fmt.Errorf("redis dedupe claim: %w", err)
	}
	return result == "OK", nil
}

// Release frees a claimed key, allowing a fresh submission attempt.
func (s *DedupeStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis dedupe release: %w", err)
	}
	return nil
}
