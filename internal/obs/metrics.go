package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by all gateway routes.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Session-domain metrics.
var (
	// SessionsEstablished counts successful logins.
	SessionsEstablished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_established_total",
		Help: "Sessions established via login.",
	})

	// RefreshSelfHeals counts refreshes that resolved an invalid session
	// into a clean logged-out state.
	RefreshSelfHeals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_refresh_selfheal_total",
			Help: "Session refreshes that cleared an invalid session.",
		},
		[]string{"reason"},
	)

	// PermissionDenials counts guard rejections.
	PermissionDenials = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_permission_denied_total",
		Help: "Requests denied by the permission guard.",
	})

	// CatalogFetches counts role-catalog fetch attempts by outcome.
	CatalogFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_catalog_fetch_total",
			Help: "Role catalog fetch attempts.",
		},
		[]string{"outcome"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		SessionsEstablished, RefreshSelfHeals, PermissionDenials, CatalogFetches,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument measures RPS, latency and in-flight counts for next.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses per-entity path segments so metric cardinality
// stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	// /v1/admin/users/42 -> /v1/admin/users/:id
	if len(parts) == 5 && parts[1] == "v1" && parts[2] == "admin" && parts[4] != "" {
		return strings.Join(append(parts[:4], ":id"), "/")
	}
	return path
}

// statusWriter records the response code written downstream.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
