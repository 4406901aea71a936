package statestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Backend is a key/value store with expiry for Session. Take reads and
// deletes a key in one step; a missing or expired key yields "" and a nil
// error.
type Backend interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, error)
}

// memoryBackend keeps values in process memory. mu orders Set against
// the Get and Delete of Take.
type memoryBackend struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryBackend creates an in-process Backend. Values without an
// explicit TTL expire after defaultTTL.
func NewMemoryBackend(defaultTTL time.Duration) Backend {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &memoryBackend{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *memoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, value, ttl)
	return nil
}

func (m *memoryBackend) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.c.Get(key)
	if !ok {
		return "", nil
	}
	m.c.Delete(key)

	s, _ := v.(string)
	return s, nil
}

// redisBackend keeps values in Redis, so sessions survive restarts and
// are shared between instances.
type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a Backend on client. Keys are namespaced with
// prefix when it is not empty.
func NewRedisBackend(client *redis.Client, prefix string) Backend {
	return &redisBackend{client: client, prefix: prefix}
}

func (b *redisBackend) key(k string) string {
	if b.prefix == "" {
		return k
	}
	return b.prefix + ":" + k
}

func (b *redisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("statestore: redis set: %w", err)
	}
	return nil
}

func (b *redisBackend) Take(ctx context.Context, key string) (string, error) {
	val, err := b.client.GetDel(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("statestore: redis getdel: %w", err)
	}
	return val, nil
}
