package api

import (
	"context"
	"net/http"
	"time"

	"ledger-query/pkg/ledger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the request counters and latency histograms.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates request metrics under namespace.
func NewHTTPMetrics(namespace string) *HTTPMetrics {
	return &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// Register registers the request metrics with registry.
func (m *HTTPMetrics) Register(registry *prometheus.Registry) error {
	if err := registry.Register(m.requestsTotal); err != nil {
		return err
	}
	return registry.Register(m.requestDuration)
}

// Middleware records one observation per request, labeled by route template.
func (m *HTTPMetrics) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(srw, r)

			endpoint := getEndpoint(r)
			m.requestsTotal.WithLabelValues(r.Method, endpoint, http.StatusText(srw.statusCode)).Inc()
			m.requestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		})
	}
}

// statusResponseWriter captures the status code
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// getEndpoint returns the route template so ids do not explode label cardinality.
func getEndpoint(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}

	pathTemplate, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}

	return pathTemplate
}

type ownerKey struct{}

// OwnerFromContext returns the verified owner stored by the owner middleware.
func OwnerFromContext(ctx context.Context) (ledger.OwnerID, bool) {
	owner, ok := ctx.Value(ownerKey{}).(ledger.OwnerID)
	return owner, ok
}

// requireOwner reads the owner subject forwarded by the upstream
// authenticator from header. Requests without a parseable owner get 401.
func (s *Server) requireOwner(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := ledger.ParseOwnerID(r.Header.Get(header))
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
		})
	}
}
