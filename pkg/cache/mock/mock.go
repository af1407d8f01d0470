// Package mock provides a scriptable cache.CacheLayer for tests.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ledger-query/pkg/cache"
)

// MockLayer is a cache.CacheLayer whose behavior is set through function hooks.
// Calls are counted atomically.
type MockLayer struct {
	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
	NameFunc   func() string
	CloseFunc  func() error

	getCalls    int64
	setCalls    int64
	deleteCalls int64
	closeCalls  int64
}

// Get implements cache.CacheLayer. Without a hook it reports a miss.
func (m *MockLayer) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt64(&m.getCalls, 1)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, cache.ErrKeyNotFound
}

// Set implements cache.CacheLayer.
func (m *MockLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	atomic.AddInt64(&m.setCalls, 1)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	return nil
}

// Delete implements cache.CacheLayer.
func (m *MockLayer) Delete(ctx context.Context, key string) error {
	atomic.AddInt64(&m.deleteCalls, 1)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

// Name implements cache.CacheLayer.
func (m *MockLayer) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Close implements cache.CacheLayer.
func (m *MockLayer) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockLayer) GetCalls() int    { return int(atomic.LoadInt64(&m.getCalls)) }
func (m *MockLayer) SetCalls() int    { return int(atomic.LoadInt64(&m.setCalls)) }
func (m *MockLayer) DeleteCalls() int { return int(atomic.LoadInt64(&m.deleteCalls)) }
func (m *MockLayer) CloseCalls() int  { return int(atomic.LoadInt64(&m.closeCalls)) }

// NewMockLayer creates a named MockLayer that misses on every Get.
func NewMockLayer(name string) *MockLayer {
	return &MockLayer{
		NameFunc: func() string { return name },
	}
}

// NewMapLayer creates a named MockLayer backed by a map, so it behaves like a
// real cache: Set values are returned by later Gets until deleted.
func NewMapLayer(name string) *MockLayer {
	var mu sync.Mutex
	data := make(map[string][]byte)

	return &MockLayer{
		NameFunc: func() string { return name },
		GetFunc: func(ctx context.Context, key string) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			v, ok := data[key]
			if !ok {
				return nil, cache.ErrKeyNotFound
			}
			return v, nil
		},
		SetFunc: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			mu.Lock()
			defer mu.Unlock()
			data[key] = append([]byte(nil), value...)
			return nil
		},
		DeleteFunc: func(ctx context.Context, key string) error {
			mu.Lock()
			defer mu.Unlock()
			delete(data, key)
			return nil
		},
	}
}
