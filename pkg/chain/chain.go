// Package chain implements read-through over ordered cache layers backed by an
// authoritative source.
package chain

import (
	"context"
	"errors"
	"strings"
	"time"

	"ledger-query/pkg/cache"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/metrics"
	"ledger-query/pkg/resilience"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config configures a Chain.
type Config struct {
	// ResilientConfigs configures the wrapper of each cache layer by position.
	// Layers without an entry use resilience.DefaultResilientConfig.
	ResilientConfigs []resilience.ResilientConfig

	// TTL is the base TTL for warm-up writes
	TTL time.Duration

	// TTLStrategy spreads TTL across layers; nil means uniform
	TTLStrategy TTLStrategy

	Metrics metrics.MetricsCollector
	Logger  *logging.Logger
}

// Chain reads through cache layers ordered fastest (L1) to slowest, then the
// source. Hits below L1 warm the layers above them synchronously.
type Chain struct {
	layers   []cache.CacheLayer
	source   cache.CacheLayer
	ttl      time.Duration
	strategy TTLStrategy
	metrics  metrics.MetricsCollector
	logger   *logging.Logger
	sf       singleflight.Group
}

// New creates a chain over layers, falling back to source. Every cache layer is
// wrapped with timeout and circuit breaker protection; the source is not, so
// its errors reach the caller unchanged. source may be nil for a pure cache.
func New(config Config, source cache.CacheLayer, layers ...cache.CacheLayer) (*Chain, error) {
	if len(layers) == 0 && source == nil {
		return nil, errors.New("chain: at least one layer or a source required")
	}
	if config.TTL <= 0 {
		return nil, errors.New("chain: ttl must be positive")
	}
	if config.TTLStrategy == nil {
		config.TTLStrategy = UniformTTLStrategy{}
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NoOpCollector{}
	}
	if config.Logger == nil {
		config.Logger = logging.L()
	}

	wrapped := make([]cache.CacheLayer, len(layers))
	for i, layer := range layers {
		rc := resilience.DefaultResilientConfig()
		if i < len(config.ResilientConfigs) {
			rc = config.ResilientConfigs[i]
		}
		wrapped[i] = resilience.NewResilientLayerWithMetrics(layer, rc, config.Metrics)
	}

	return &Chain{
		layers:   wrapped,
		source:   source,
		ttl:      config.TTL,
		strategy: config.TTLStrategy,
		metrics:  config.Metrics,
		logger:   config.Logger.Named("chain"),
	}, nil
}

// Get returns the value for key from the first layer that has it.
// Concurrent Gets of the same key share one traversal.
// Cache layer failures are treated as misses; only the source's error, or
// ErrKeyNotFound, is returned.
func (c *Chain) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.getWithFallback(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func (c *Chain) getWithFallback(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	for i, layer := range c.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, err := layer.Get(ctx, key)
		if err != nil {
			if !cache.IsNotFound(err) {
				c.logger.Debug("cache layer skipped",
					zap.String("layer", layer.Name()),
					zap.String("reason", cache.ClassifyError(err)),
				)
			}
			continue
		}

		c.warmUpperLayers(ctx, key, value, i)
		c.metrics.RecordChainGet(true, i, time.Since(start))
		return value, nil
	}

	if c.source == nil {
		c.metrics.RecordChainGet(false, -1, time.Since(start))
		return nil, cache.ErrKeyNotFound
	}

	value, err := c.source.Get(ctx, key)
	if err != nil {
		c.metrics.RecordChainGet(false, -1, time.Since(start))
		return nil, err
	}

	c.warmUpperLayers(ctx, key, value, len(c.layers))
	c.metrics.RecordChainGet(true, len(c.layers), time.Since(start))
	return value, nil
}

// warmUpperLayers writes value into every cache layer above hitIndex.
// Failures are logged and otherwise ignored.
func (c *Chain) warmUpperLayers(ctx context.Context, key string, value []byte, hitIndex int) {
	for i := hitIndex - 1; i >= 0; i-- {
		ttl := c.strategy.GetTTL(i, len(c.layers), c.ttl)
		if err := c.layers[i].Set(ctx, key, value, ttl); err != nil {
			c.logger.Debug("warm-up failed",
				zap.String("layer", c.layers[i].Name()),
				zap.String("reason", cache.ClassifyError(err)),
			)
		}
	}
}

// Delete removes key from every cache layer. The source is never modified.
// All layers are attempted; the last error is returned.
func (c *Chain) Delete(ctx context.Context, key string) error {
	var lastErr error
	for _, layer := range c.layers {
		if err := layer.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close closes every cache layer, then the source.
func (c *Chain) Close() error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of cache layers, excluding the source.
func (c *Chain) Len() int {
	return len(c.layers)
}

// String renders the chain as "L1 -> L2 -> source".
func (c *Chain) String() string {
	names := make([]string, 0, len(c.layers)+1)
	for _, layer := range c.layers {
		names = append(names, layer.Name())
	}
	if c.source != nil {
		names = append(names, c.source.Name())
	}
	return "chain(" + strings.Join(names, " -> ") + ")"
}
