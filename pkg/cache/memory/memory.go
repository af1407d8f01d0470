// Package memory implements the in-process (L1) detail cache layer.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"ledger-query/pkg/cache"
)

// MemoryCache is a bounded LRU cache with per-entry expiry.
type MemoryCache struct {
	mu    sync.Mutex
	data  map[string]*list.Element
	order *list.List // front is most recently used

	config MemoryCacheConfig
	now    func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryCacheConfig holds configuration for the memory cache.
type MemoryCacheConfig struct {
	// Name is the cache layer identifier
	Name string

	// MaxSize is the maximum number of entries (0 = unlimited)
	MaxSize int

	// TTL bounds entry lifetimes
	TTL cache.TTLPolicy

	// CleanupInterval is how often expired entries are swept
	CleanupInterval time.Duration
}

// NewMemoryCache creates a memory cache and starts its expiry sweeper.
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.TTL.Default <= 0 {
		config.TTL.Default = time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}

	c := &MemoryCache{
		data:          make(map[string]*list.Element),
		order:         list.New(),
		config:        config,
		now:           time.Now,
		stopCleanup:   make(chan struct{}),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
	}

	c.wg.Add(1)
	go c.cleanup()

	return c
}

// Get returns a copy of the value stored under key.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.data[key]
	if !ok {
		return nil, cache.ErrKeyNotFound
	}

	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.removeElement(el)
		return nil, cache.ErrKeyNotFound
	}

	c.order.MoveToFront(el)
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value. When the cache is full the least recently used
// entry is evicted.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if len(value) == 0 {
		return cache.ErrInvalidValue
	}

	e := &entry{
		key:       key,
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(c.config.TTL.Effective(ttl)),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.data[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return nil
	}

	if c.config.MaxSize > 0 && c.order.Len() >= c.config.MaxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	c.data[key] = c.order.PushFront(e)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	if el, ok := c.data[key]; ok {
		c.removeElement(el)
	}
	c.mu.Unlock()

	return nil
}

// Name returns the cache layer name.
func (c *MemoryCache) Name() string {
	return c.config.Name
}

// Close stops the sweeper and drops all entries. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		c.cleanupTicker.Stop()
		close(c.stopCleanup)
		c.wg.Wait()

		c.mu.Lock()
		c.data = make(map[string]*list.Element)
		c.order.Init()
		c.mu.Unlock()
	})
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// removeElement unlinks el. c.mu must be held.
func (c *MemoryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.data, el.Value.(*entry).key)
}

func (c *MemoryCache) cleanup() {
	defer c.wg.Done()

	for {
		select {
		case <-c.cleanupTicker.C:
			c.removeExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry).expiresAt) {
			c.removeElement(el)
		}
		el = prev
	}
}
