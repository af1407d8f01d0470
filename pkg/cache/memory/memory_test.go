package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ledger-query/pkg/cache"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, maxSize int) (*MemoryCache, *fakeClock) {
	t.Helper()
	c := NewMemoryCache(MemoryCacheConfig{
		Name:            "test",
		MaxSize:         maxSize,
		TTL:             cache.TTLPolicy{Default: 30 * time.Second, Max: time.Minute},
		CleanupInterval: time.Hour,
	})
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c.now = clock.Now
	t.Cleanup(func() { c.Close() })
	return c, clock
}

func TestMemoryCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	if _, err := c.Get(ctx, "ledger:tx:a:1"); !cache.IsNotFound(err) {
		t.Fatalf("Expected ErrKeyNotFound, got %v", err)
	}

	if err := c.Set(ctx, "ledger:tx:a:1", []byte(`{"id":"1"}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "ledger:tx:a:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"id":"1"}` {
		t.Errorf("Unexpected value: %s", got)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	value := []byte("abc")
	_ = c.Set(ctx, "k", value, 0)
	value[0] = 'x'

	got, _ := c.Get(ctx, "k")
	got[1] = 'y'

	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("Stored value was mutated: %s", again)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "default", []byte("v"), 0)
	_ = c.Set(ctx, "short", []byte("v"), 5*time.Second)
	_ = c.Set(ctx, "capped", []byte("v"), time.Hour)

	clock.Advance(10 * time.Second)
	if _, err := c.Get(ctx, "short"); !cache.IsNotFound(err) {
		t.Errorf("Expected short entry to expire, got %v", err)
	}
	if _, err := c.Get(ctx, "default"); err != nil {
		t.Errorf("Default entry expired early: %v", err)
	}

	clock.Advance(30 * time.Second)
	if _, err := c.Get(ctx, "default"); !cache.IsNotFound(err) {
		t.Errorf("Expected default entry to expire after 30s, got %v", err)
	}

	clock.Advance(30 * time.Second)
	if _, err := c.Get(ctx, "capped"); !cache.IsNotFound(err) {
		t.Errorf("Expected capped entry to expire after max ttl, got %v", err)
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	c, clock := newTestCache(t, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("v"), 5*time.Second)
	_ = c.Set(ctx, "b", []byte("v"), 50*time.Second)

	clock.Advance(10 * time.Second)
	c.removeExpired()

	if c.Len() != 1 {
		t.Errorf("Expected 1 entry after sweep, got %d", c.Len())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 2)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	// Touch a so b becomes the eviction candidate.
	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_ = c.Set(ctx, "c", []byte("3"), 0)

	if _, err := c.Get(ctx, "b"); !cache.IsNotFound(err) {
		t.Errorf("Expected b to be evicted, got %v", err)
	}
	for _, k := range []string{"a", "c"} {
		if _, err := c.Get(ctx, k); err != nil {
			t.Errorf("Expected %s to survive: %v", k, err)
		}
	}

	// Overwriting an existing key must not evict.
	_ = c.Set(ctx, "a", []byte("1b"), 0)
	if c.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", c.Len())
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Deleting a missing key should succeed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !cache.IsNotFound(err) {
		t.Errorf("Expected miss after delete, got %v", err)
	}
}

func TestMemoryCache_InvalidInput(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	if _, err := c.Get(ctx, ""); err == nil {
		t.Error("Expected error for empty key")
	}
	if err := c.Set(ctx, "bad key", []byte("v"), 0); err == nil {
		t.Error("Expected error for key with whitespace")
	}
	if err := c.Set(ctx, "k", nil, 0); err == nil {
		t.Error("Expected error for empty value")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c, _ := newTestCache(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*100+j)%80)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Cache grew past MaxSize: %d", c.Len())
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{})
	if c.Name() != "memory" {
		t.Errorf("Expected default name, got %s", c.Name())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}
