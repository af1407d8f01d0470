package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"ledger-query/pkg/cache"
)

func setupTestRedis(t *testing.T) *RedisCache {
	t.Helper()

	config := DefaultRedisCacheConfig()
	config.Name = "test-redis"
	config.KeyPrefix = fmt.Sprintf("test:ledger:%d:", time.Now().UnixNano())
	config.DialTimeout = 2 * time.Second
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Addr = addr
	}

	r, err := NewRedisCache(config)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	return r
}

func TestNewRedisCache_NoAddress(t *testing.T) {
	config := DefaultRedisCacheConfig()
	config.Addr = ""

	if _, err := NewRedisCache(config); err == nil {
		t.Fatal("Expected error without addresses")
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	r := setupTestRedis(t)
	ctx := context.Background()

	if r.Name() != "test-redis" {
		t.Errorf("Expected name test-redis, got %s", r.Name())
	}

	value := []byte(`{"id":"0190b6e2-0000-7000-8000-000000000001","amount":"19.99"}`)
	if err := r.Set(ctx, "tx:1", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := r.Get(ctx, "tx:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("Expected %s, got %s", value, got)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	r := setupTestRedis(t)

	if _, err := r.Get(context.Background(), "missing"); !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	r := setupTestRedis(t)
	ctx := context.Background()

	// Requests over the policy max are capped.
	if err := r.Set(ctx, "ttl", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := r.TTL(ctx, "ttl")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > r.config.TTL.Max {
		t.Errorf("Expected ttl in (0, %v], got %v", r.config.TTL.Max, ttl)
	}

	if _, err := r.TTL(ctx, "missing"); !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound for missing key, got %v", err)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	r := setupTestRedis(t)
	ctx := context.Background()

	_ = r.Set(ctx, "del", []byte("v"), time.Minute)
	if err := r.Delete(ctx, "del"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := r.Get(ctx, "del"); !cache.IsNotFound(err) {
		t.Errorf("Expected miss after delete, got %v", err)
	}
}

func TestRedisCache_RejectsEmptyValue(t *testing.T) {
	r := setupTestRedis(t)

	if err := r.Set(context.Background(), "empty", nil, time.Minute); err == nil {
		t.Error("Expected error for empty value")
	}
}
