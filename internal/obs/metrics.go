package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inbound HTTP metrics for the web console.
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

// Outbound calls made through the request gateway to the Aura API.
var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aura_gateway_requests_total",
			Help: "Requests sent to the Aura API, by outcome.",
		},
		[]string{"method", "endpoint", "outcome"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "aura_gateway_request_duration_seconds",
			Help: "Aura API round-trip latencies in seconds.",
			// scans run a headless browser server-side and take a while
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "endpoint"},
	)
)

var registerOnce sync.Once

// Init registers all metrics in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			apiRequestsTotal, apiRequestDuration,
		)
	})
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests for next.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// ObserveAPICall records one gateway round trip. outcome is a short label
// such as "ok", "client_error", "unauthorized" or "unreachable".
func ObserveAPICall(method, endpoint, outcome string, d time.Duration) {
	endpoint = CanonicalPath(endpoint)
	apiRequestsTotal.WithLabelValues(method, endpoint, outcome).Inc()
	apiRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// CanonicalPath collapses identifiers in console routes and API endpoints so
// metric label cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	segs := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(segs) == 2 && segs[0] == "projects":
		return "/projects/:id"
	case len(segs) == 3 && segs[0] == "projects" && segs[2] == "history":
		return "/projects/:id/history"
	case len(segs) == 2 && segs[0] == "scan" && segs[1] != "results":
		return "/scan/:id"
	case len(segs) == 3 && segs[0] == "scan" && segs[1] == "results":
		return "/scan/results/:id"
	case len(segs) >= 2 && segs[0] == "static":
		return "/static/*"
	}
	return p
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
