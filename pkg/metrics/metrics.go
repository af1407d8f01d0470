package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting ledger metrics.
// Implementations export to a backend (Prometheus) or keep values in memory for tests.
type MetricsCollector interface {
	// Detail cache layers
	RecordGet(layer string, hit bool, duration time.Duration)
	RecordSet(layer string, success bool, duration time.Duration)
	RecordDelete(layer string, success bool, duration time.Duration)

	// Circuit breaker
	RecordCircuitState(layer string, state CircuitState)

	// Chain-level read-through; layerIndex is the layer that answered
	RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration)

	// Store operations; outcome is a ledger.ClassifyError label
	RecordStoreOp(op string, outcome string, duration time.Duration)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the layer has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of MetricsCollector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordGet(layer string, hit bool, duration time.Duration)             {}
func (NoOpCollector) RecordSet(layer string, success bool, duration time.Duration)         {}
func (NoOpCollector) RecordDelete(layer string, success bool, duration time.Duration)      {}
func (NoOpCollector) RecordCircuitState(layer string, state CircuitState)                  {}
func (NoOpCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {}
func (NoOpCollector) RecordStoreOp(op string, outcome string, duration time.Duration)      {}
