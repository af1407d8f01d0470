// Package bloom guards a remote cache layer with a bloom filter of the keys
// this process has written, so lookups of never-cached transactions skip the
// network round trip.
package bloom

import (
	"context"
	"sync"
	"time"

	"ledger-query/pkg/cache"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomLayer wraps a CacheLayer with probabilistic membership testing.
// A negative filter answer is definitive; a positive one falls through to the
// wrapped layer.
type BloomLayer struct {
	layer cache.CacheLayer

	mu                sync.Mutex
	filter            *bloom.BloomFilter
	expectedItems     uint
	falsePositiveRate float64

	totalQueries   uint64
	bloomRejected  uint64
	falsePositives uint64
}

// NewBloomLayer wraps layer with a filter sized for expectedItems keys at the
// given false-positive rate.
func NewBloomLayer(layer cache.CacheLayer, expectedItems uint, falsePositiveRate float64) *BloomLayer {
	if expectedItems == 0 {
		expectedItems = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	return &BloomLayer{
		layer:             layer,
		filter:            bloom.NewWithEstimates(expectedItems, falsePositiveRate),
		expectedItems:     expectedItems,
		falsePositiveRate: falsePositiveRate,
	}
}

// Name returns the wrapped layer's name.
func (bl *BloomLayer) Name() string {
	return "bloom(" + bl.layer.Name() + ")"
}

// Get consults the filter before the wrapped layer.
func (bl *BloomLayer) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bl.mu.Lock()
	bl.totalQueries++
	if !bl.filter.TestString(key) {
		bl.bloomRejected++
		bl.mu.Unlock()
		return nil, cache.ErrKeyNotFound
	}
	bl.mu.Unlock()

	value, err := bl.layer.Get(ctx, key)
	if cache.IsNotFound(err) {
		bl.mu.Lock()
		bl.falsePositives++
		bl.mu.Unlock()
	}

	return value, err
}

// Set records key in the filter and writes through.
func (bl *BloomLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := bl.layer.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	bl.mu.Lock()
	bl.filter.AddString(key)
	bl.mu.Unlock()

	return nil
}

// Delete removes key from the wrapped layer. Bloom filters cannot forget keys,
// so later lookups of key reach the wrapped layer and count as false positives.
func (bl *BloomLayer) Delete(ctx context.Context, key string) error {
	return bl.layer.Delete(ctx, key)
}

// Ping forwards to the wrapped layer when it supports it.
func (bl *BloomLayer) Ping(ctx context.Context) error {
	if p, ok := bl.layer.(cache.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped layer.
func (bl *BloomLayer) Close() error {
	return bl.layer.Close()
}

// Reset clears the filter and its counters.
func (bl *BloomLayer) Reset() {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.filter = bloom.NewWithEstimates(bl.expectedItems, bl.falsePositiveRate)
	bl.totalQueries = 0
	bl.bloomRejected = 0
	bl.falsePositives = 0
}

// Stats returns filter effectiveness counters.
func (bl *BloomLayer) Stats() BloomStats {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	s := BloomStats{
		TotalQueries:   bl.totalQueries,
		BloomRejected:  bl.bloomRejected,
		FalsePositives: bl.falsePositives,
		FilterCapacity: bl.filter.Cap(),
	}

	if bl.totalQueries > 0 {
		s.RejectionRate = float64(bl.bloomRejected) / float64(bl.totalQueries)
		if queried := bl.totalQueries - bl.bloomRejected; queried > 0 {
			s.FalsePositiveRate = float64(bl.falsePositives) / float64(queried)
		}
	}

	return s
}

// BloomStats holds statistics about bloom filter performance.
type BloomStats struct {
	TotalQueries      uint64
	BloomRejected     uint64
	FalsePositives    uint64
	RejectionRate     float64
	FalsePositiveRate float64
	FilterCapacity    uint
}
