package registryd

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harunwdi/hrds/internal/transport/middleware"
)

// Metrics holds the server's Prometheus collectors. Each Metrics value owns
// its registry so tests can build servers without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the HTTP collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	m.registry.MustRegister(m.inFlight, m.requestsTotal, m.requestDuration)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument measures request count, latency, and in-flight gauge.
func (m *Metrics) Instrument() middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.inFlight.Inc()
			start := time.Now()

			sw := &codeWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			// The mux fills r.Pattern during routing, so after next
			// returns it holds "PUT /dataupdate/{id}" rather than one
			// label value per record id. Unmatched requests fall back to
			// the raw path.
			path := r.Pattern
			if path == "" {
				path = r.URL.Path
			}

			status := strconv.Itoa(sw.code)
			m.requestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.inFlight.Dec()
		})
	}
}

type codeWriter struct {
	http.ResponseWriter
	code int
}

func (w *codeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
