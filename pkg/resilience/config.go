package resilience

import (
	"time"
)

// ResilientConfig configures resilience features for a cache layer.
type ResilientConfig struct {
	// Timeout bounds each layer operation; 0 disables it
	Timeout time.Duration

	// CircuitBreakerConfig configures the circuit breaker behavior
	CircuitBreakerConfig CircuitBreakerConfig
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts are
	// cleared. 0 never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// ReadyToTrip decides, after a failure, whether to open the breaker.
	// nil trips after 5 consecutive failures.
	ReadyToTrip func(counts Counts) bool
}

// Counts holds the numbers of requests and their successes/failures.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate returns the share of failed requests, or 0 with no requests.
func (c Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

// TripOnFailureRate returns a ReadyToTrip that opens once at least minRequests
// were seen and the failure rate reaches rate.
func TripOnFailureRate(minRequests uint32, rate float64) func(Counts) bool {
	return func(c Counts) bool {
		return c.Requests >= minRequests && c.FailureRate() >= rate
	}
}

// DefaultResilientConfig returns defaults for a remote cache layer.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout: 500 * time.Millisecond,
		CircuitBreakerConfig: CircuitBreakerConfig{
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: TripOnFailureRate(20, 0.15),
		},
	}
}

// LocalResilientConfig returns defaults for the in-process layer, which only
// fails through programming errors.
func LocalResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout: 50 * time.Millisecond,
		CircuitBreakerConfig: CircuitBreakerConfig{
			MaxRequests: 10,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: TripOnFailureRate(100, 0.5),
		},
	}
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c ResilientConfig) WithTimeout(timeout time.Duration) ResilientConfig {
	c.Timeout = timeout
	return c
}

// WithCircuitBreakerTimeout returns a copy of the config with the specified
// open-state duration.
func (c ResilientConfig) WithCircuitBreakerTimeout(timeout time.Duration) ResilientConfig {
	c.CircuitBreakerConfig.Timeout = timeout
	return c
}
