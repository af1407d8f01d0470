// Package memory provides an in-process MetricsCollector for tests and local runs.
package memory

import (
	"sync"
	"time"

	"ledger-query/pkg/metrics"
)

// MemoryCollector implements metrics.MetricsCollector by counting in memory.
type MemoryCollector struct {
	mu sync.RWMutex

	layers map[string]*LayerMetrics

	chainHits        int64
	chainMisses      int64
	chainHitsByLayer map[int]int64

	storeOps map[string]*StoreOpMetrics
}

// LayerMetrics holds counters for a single cache layer.
type LayerMetrics struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Deletes int64
	Errors  int64

	CircuitState metrics.CircuitState
	CircuitOpens int64
}

// StoreOpMetrics holds counters for a single store operation.
type StoreOpMetrics struct {
	Calls     int64
	Outcomes  map[string]int64
	TotalTime time.Duration
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		layers:           make(map[string]*LayerMetrics),
		chainHitsByLayer: make(map[int]int64),
		storeOps:         make(map[string]*StoreOpMetrics),
	}
}

// layer returns the LayerMetrics for name, creating it if needed. mc.mu must be held.
func (mc *MemoryCollector) layer(name string) *LayerMetrics {
	lm, ok := mc.layers[name]
	if !ok {
		lm = &LayerMetrics{}
		mc.layers[name] = lm
	}
	return lm
}

// RecordGet records a cache get operation.
func (mc *MemoryCollector) RecordGet(layer string, hit bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	if hit {
		lm.Hits++
	} else {
		lm.Misses++
	}
}

// RecordSet records a cache set operation.
func (mc *MemoryCollector) RecordSet(layer string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	lm.Sets++
	if !success {
		lm.Errors++
	}
}

// RecordDelete records a cache delete operation.
func (mc *MemoryCollector) RecordDelete(layer string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	lm.Deletes++
	if !success {
		lm.Errors++
	}
}

// RecordCircuitState records the current circuit breaker state.
// Only transitions into the open state are counted as opens.
func (mc *MemoryCollector) RecordCircuitState(layer string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	if lm.CircuitState != metrics.CircuitOpen && state == metrics.CircuitOpen {
		lm.CircuitOpens++
	}
	lm.CircuitState = state
}

// RecordChainGet records a chain-level get operation.
func (mc *MemoryCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if hit {
		mc.chainHits++
		mc.chainHitsByLayer[layerIndex]++
	} else {
		mc.chainMisses++
	}
}

// RecordStoreOp records the outcome of a store operation.
func (mc *MemoryCollector) RecordStoreOp(op string, outcome string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	som, ok := mc.storeOps[op]
	if !ok {
		som = &StoreOpMetrics{Outcomes: make(map[string]int64)}
		mc.storeOps[op] = som
	}
	som.Calls++
	som.Outcomes[outcome]++
	som.TotalTime += duration
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	Layers           map[string]LayerMetrics
	ChainHits        int64
	ChainMisses      int64
	ChainHitsByLayer map[int]int64
	StoreOps         map[string]StoreOpMetrics
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s := Snapshot{
		Layers:           make(map[string]LayerMetrics, len(mc.layers)),
		ChainHits:        mc.chainHits,
		ChainMisses:      mc.chainMisses,
		ChainHitsByLayer: make(map[int]int64, len(mc.chainHitsByLayer)),
		StoreOps:         make(map[string]StoreOpMetrics, len(mc.storeOps)),
	}

	for name, lm := range mc.layers {
		s.Layers[name] = *lm
	}
	for idx, hits := range mc.chainHitsByLayer {
		s.ChainHitsByLayer[idx] = hits
	}
	for op, som := range mc.storeOps {
		outcomes := make(map[string]int64, len(som.Outcomes))
		for k, v := range som.Outcomes {
			outcomes[k] = v
		}
		s.StoreOps[op] = StoreOpMetrics{Calls: som.Calls, Outcomes: outcomes, TotalTime: som.TotalTime}
	}

	return s
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.layers = make(map[string]*LayerMetrics)
	mc.chainHits = 0
	mc.chainMisses = 0
	mc.chainHitsByLayer = make(map[int]int64)
	mc.storeOps = make(map[string]*StoreOpMetrics)
}

// GetLayerMetrics returns a copy of the metrics for a layer, or nil if none were recorded.
func (mc *MemoryCollector) GetLayerMetrics(layer string) *LayerMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if lm, ok := mc.layers[layer]; ok {
		cp := *lm
		return &cp
	}
	return nil
}
