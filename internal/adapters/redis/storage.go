package redis

// Package redis provides a Redis-backed Storage adapter for satellite sessions.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "sso:"

// Storage is a Redis-backed key-value area scoped by a key prefix.
// Each namespace (application origin or browser client) gets its own prefix.
type Storage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStorage creates a Storage using DefaultPrefix and no expiry.
func NewStorage(client redis.UniversalClient) *Storage {
	return &Storage{
		client: client,
		prefix: DefaultPrefix,
	}
}

// NewStorageWithPrefix creates a Storage with a custom key prefix.
// A positive ttl bounds how long abandoned entries linger; zero keeps them forever.
func NewStorageWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *Storage {
	return &Storage{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Namespace returns a Storage whose keys live under prefix + ns + ":".
func (s *Storage) Namespace(ns string) *Storage {
	return &Storage{
		client: s.client,
		prefix: s.prefix + ns + ":",
		ttl:    s.ttl,
	}
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}

	data, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("storage key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, s.prefix+k)
		}
	}
	if len(full) == 0 {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
