package prometheus

import (
	"strconv"
	"time"

	"ledger-query/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// latencyBuckets spans 0.1ms to ~3s.
var latencyBuckets = prometheus.ExponentialBuckets(0.0001, 2, 15)

// PrometheusCollector implements MetricsCollector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Detail cache layers
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheSets    *prometheus.CounterVec
	cacheDeletes *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	getLatency   *prometheus.HistogramVec
	setLatency   *prometheus.HistogramVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Chain-level
	chainHits    *prometheus.CounterVec
	chainMisses  prometheus.Counter
	chainLatency *prometheus.HistogramVec

	// Store
	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of detail cache hits per layer",
			},
			[]string{"layer"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of detail cache misses per layer",
			},
			[]string{"layer"},
		),
		cacheSets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_sets_total",
				Help:      "Total number of detail cache writes per layer",
			},
			[]string{"layer"},
		),
		cacheDeletes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_deletes_total",
				Help:      "Total number of detail cache deletes per layer",
			},
			[]string{"layer"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_errors_total",
				Help:      "Total number of detail cache errors per layer and operation",
			},
			[]string{"layer", "operation"},
		),
		getLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_get_duration_seconds",
				Help:      "Detail cache get latency",
				Buckets:   latencyBuckets,
			},
			[]string{"layer"},
		),
		setLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_set_duration_seconds",
				Help:      "Detail cache set latency",
				Buckets:   latencyBuckets,
			},
			[]string{"layer"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per layer",
			},
			[]string{"layer"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per layer (0=closed, 1=open, 2=half-open)",
			},
			[]string{"layer"},
		),
		chainHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_hits_total",
				Help:      "Total number of read-through hits by answering layer",
			},
			[]string{"layer_index"},
		),
		chainMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_misses_total",
				Help:      "Total number of read-through lookups no layer could answer",
			},
		),
		chainLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_get_duration_seconds",
				Help:      "Read-through lookup total latency",
				Buckets:   latencyBuckets,
			},
			[]string{"hit"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation latency",
				Buckets:   latencyBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		pc.cacheHits,
		pc.cacheMisses,
		pc.cacheSets,
		pc.cacheDeletes,
		pc.cacheErrors,
		pc.getLatency,
		pc.setLatency,
		pc.circuitOpens,
		pc.circuitState,
		pc.chainHits,
		pc.chainMisses,
		pc.chainLatency,
		pc.storeOps,
		pc.storeLatency,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordGet records a cache get operation.
func (pc *PrometheusCollector) RecordGet(layer string, hit bool, duration time.Duration) {
	if hit {
		pc.cacheHits.WithLabelValues(layer).Inc()
	} else {
		pc.cacheMisses.WithLabelValues(layer).Inc()
	}
	pc.getLatency.WithLabelValues(layer).Observe(duration.Seconds())
}

// RecordSet records a cache set operation.
func (pc *PrometheusCollector) RecordSet(layer string, success bool, duration time.Duration) {
	pc.cacheSets.WithLabelValues(layer).Inc()
	if !success {
		pc.cacheErrors.WithLabelValues(layer, "set").Inc()
	}
	pc.setLatency.WithLabelValues(layer).Observe(duration.Seconds())
}

// RecordDelete records a cache delete operation.
func (pc *PrometheusCollector) RecordDelete(layer string, success bool, duration time.Duration) {
	pc.cacheDeletes.WithLabelValues(layer).Inc()
	if !success {
		pc.cacheErrors.WithLabelValues(layer, "delete").Inc()
	}
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(layer string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(layer).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(layer).Inc()
	}
}

// RecordChainGet records a chain-level get operation.
func (pc *PrometheusCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {
	hitLabel := "false"
	if hit {
		pc.chainHits.WithLabelValues(strconv.Itoa(layerIndex)).Inc()
		hitLabel = "true"
	} else {
		pc.chainMisses.Inc()
	}
	pc.chainLatency.WithLabelValues(hitLabel).Observe(totalDuration.Seconds())
}

// RecordStoreOp records a store operation and its outcome label.
func (pc *PrometheusCollector) RecordStoreOp(op string, outcome string, duration time.Duration) {
	pc.storeOps.WithLabelValues(op, outcome).Inc()
	pc.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}
