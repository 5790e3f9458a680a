package cache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips the test when none is
// running. tests/integration covers the same paths against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func pageKey(offset string) Key {
	return Key{
		Endpoint: "/v1/orders",
		Query:    url.Values{"limit": {"8"}, "offset": {offset}},
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_RedisKeyNamespace(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	if got := NewManager(client).redisKey(pageKey("0")); got != "pageload:v1/orders:limit=8:offset=0" {
		t.Errorf("redisKey() = %q", got)
	}
	if got := NewManagerWithNamespace(client, "tenant-a").redisKey(pageKey("8")); got != "tenant-a:v1/orders:limit=8:offset=8" {
		t.Errorf("redisKey() = %q", got)
	}
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	entry := &Entry{
		Body:       []byte(`{"errorCode":0,"data":{"total":1,"limit":8,"offset":0,"rows":[1]}}`),
		ETag:       `"abc123"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: 200,
		CachedAt:   time.Now(),
	}

	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, pageKey("0"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != string(entry.Body) {
		t.Errorf("Body = %s, want %s", got.Body, entry.Body)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %s, want %s", got.ETag, entry.ETag)
	}

	// Another cursor is a different entry
	if _, err := manager.Get(ctx, pageKey("8")); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(other page) error = %v, want ErrMiss", err)
	}
}

func TestManager_Set_ExpiredIsNotStored(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	entry := &Entry{Body: []byte(`{}`), Expires: time.Now().Add(-time.Minute)}
	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, pageKey("0")); !errors.Is(err, ErrMiss) {
		t.Errorf("Get error = %v, want ErrMiss", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	if err := NewManager(client).Set(context.Background(), pageKey("0"), nil); err == nil {
		t.Error("Set(nil) should fail")
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	entry := &Entry{Body: []byte(`{}`), Expires: time.Now().Add(time.Minute)}
	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, pageKey("0")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, pageKey("0")); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after Delete error = %v, want ErrMiss", err)
	}
}

func TestManager_Touch(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	entry := &Entry{Body: []byte(`{}`), Expires: time.Now().Add(time.Minute)}
	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(time.Hour)
	if err := manager.Touch(ctx, pageKey("0"), newExpires); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	got, err := manager.Get(ctx, pageKey("0"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ttl := got.TTL(); ttl < 59*time.Minute {
		t.Errorf("TTL() after Touch = %v, want ~1h", ttl)
	}

	if err := manager.Touch(ctx, pageKey("99"), newExpires); !errors.Is(err, ErrMiss) {
		t.Errorf("Touch(missing) error = %v, want ErrMiss", err)
	}
}
