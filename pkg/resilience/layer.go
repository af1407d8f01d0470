package resilience

import (
	"context"
	"errors"
	"time"

	"ledger-query/pkg/cache"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ResilientLayer wraps a CacheLayer with a per-call timeout and a circuit breaker,
// so a slow or failing cache degrades to a miss instead of stalling reads.
type ResilientLayer struct {
	layer   cache.CacheLayer
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// NewResilientLayer wraps layer without metrics.
func NewResilientLayer(layer cache.CacheLayer, config ResilientConfig) *ResilientLayer {
	return NewResilientLayerWithMetrics(layer, config, metrics.NoOpCollector{})
}

// NewResilientLayerWithMetrics wraps layer and reports operations to collector.
func NewResilientLayerWithMetrics(layer cache.CacheLayer, config ResilientConfig, collector metrics.MetricsCollector) *ResilientLayer {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	logger := logging.L().Named("resilience").With(zap.String("layer", layer.Name()))

	rl := &ResilientLayer{
		layer:   layer,
		timeout: config.Timeout,
		metrics: collector,
		logger:  logger,
	}

	cbc := config.CircuitBreakerConfig
	rl.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        layer.Name(),
		MaxRequests: cbc.MaxRequests,
		Interval:    cbc.Interval,
		Timeout:     cbc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			c := Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			}
			if cbc.ReadyToTrip != nil {
				return cbc.ReadyToTrip(c)
			}
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			rl.metrics.RecordCircuitState(name, circuitState(to))
		},
	})

	logger.Debug("resilient layer initialized",
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", cbc.MaxRequests),
		zap.Duration("circuit_timeout", cbc.Timeout),
	)

	return rl
}

// isSuccessful decides which errors count against the breaker. Misses and
// caller cancellations say nothing about the layer's health.
func isSuccessful(err error) bool {
	return err == nil || cache.IsNotFound(err) || errors.Is(err, context.Canceled)
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Name returns the name of the underlying cache layer.
func (rl *ResilientLayer) Name() string {
	return rl.layer.Name()
}

// State returns the current circuit breaker state.
func (rl *ResilientLayer) State() metrics.CircuitState {
	return circuitState(rl.cb.State())
}

// Get reads through the breaker.
func (rl *ResilientLayer) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	ctx, cancel := rl.withTimeout(ctx)
	defer cancel()

	result, err := rl.cb.Execute(func() (interface{}, error) {
		return rl.layer.Get(ctx, key)
	})

	rl.metrics.RecordGet(rl.layer.Name(), err == nil, time.Since(start))

	if err != nil {
		return nil, rl.translate(ctx, "get", key, start, err)
	}

	value, _ := result.([]byte)
	return value, nil
}

// Set writes through the breaker.
func (rl *ResilientLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()

	ctx, cancel := rl.withTimeout(ctx)
	defer cancel()

	_, err := rl.cb.Execute(func() (interface{}, error) {
		return nil, rl.layer.Set(ctx, key, value, ttl)
	})

	rl.metrics.RecordSet(rl.layer.Name(), err == nil, time.Since(start))

	if err != nil {
		return rl.translate(ctx, "set", key, start, err)
	}
	return nil
}

// Delete removes through the breaker.
func (rl *ResilientLayer) Delete(ctx context.Context, key string) error {
	start := time.Now()

	ctx, cancel := rl.withTimeout(ctx)
	defer cancel()

	_, err := rl.cb.Execute(func() (interface{}, error) {
		return nil, rl.layer.Delete(ctx, key)
	})

	rl.metrics.RecordDelete(rl.layer.Name(), err == nil, time.Since(start))

	if err != nil {
		return rl.translate(ctx, "delete", key, start, err)
	}
	return nil
}

// Close closes the underlying cache layer.
func (rl *ResilientLayer) Close() error {
	return rl.layer.Close()
}

func (rl *ResilientLayer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if rl.timeout > 0 {
		return context.WithTimeout(ctx, rl.timeout)
	}
	return ctx, func() {}
}

// translate maps breaker and deadline failures onto cache errors and logs them.
func (rl *ResilientLayer) translate(ctx context.Context, op, key string, start time.Time, err error) error {
	switch {
	case cache.IsNotFound(err):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		rl.logger.Debug("circuit breaker rejected request", zap.String("operation", op))
		return cache.ErrCircuitOpen
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		rl.logger.Warn("cache operation timeout",
			zap.String("operation", op),
			zap.String("key", key),
			zap.Duration("timeout", rl.timeout),
			zap.Duration("elapsed", time.Since(start)),
		)
		return cache.ErrTimeout
	default:
		rl.logger.Error("cache operation failed",
			zap.String("operation", op),
			zap.String("key", key),
			zap.Error(err),
		)
		return cache.WrapError(err, rl.layer.Name(), op)
	}
}
