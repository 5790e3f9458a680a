package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss indicates the key is not cached or its entry expired.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a cached value could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager reads and writes entries in Redis.
type Manager struct {
	redis     *redis.Client
	namespace string
}

// NewManager creates a manager writing under DefaultNamespace.
func NewManager(redisClient *redis.Client) *Manager {
	return NewManagerWithNamespace(redisClient, DefaultNamespace)
}

// NewManagerWithNamespace creates a manager writing under namespace.
func NewManagerWithNamespace(redisClient *redis.Client, namespace string) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Manager{
		redis:     redisClient,
		namespace: namespace,
	}
}

// redisKey returns the namespaced Redis key for k.
func (m *Manager) redisKey(k Key) string {
	return m.namespace + ":" + k.String()
}

// Get returns the entry for key, or ErrMiss.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, m.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Misses.Inc()
			return nil, ErrMiss
		}
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis expiry has second granularity, entries can outlive Expires briefly.
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		Misses.Inc()
		return nil, ErrMiss
	}

	Hits.Inc()
	return &entry, nil
}

// Set stores entry until its Expires time. Expired entries are not stored.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, m.redisKey(key), data, ttl).Err(); err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	StoredBytes.Add(float64(len(data)))
	return nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, m.redisKey(key)).Err(); err != nil {
		Errors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Touch moves the expiry of an existing entry, e.g. after a 304 answer.
func (m *Manager) Touch(ctx context.Context, key Key, expires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = expires
	return m.Set(ctx, key, entry)
}
