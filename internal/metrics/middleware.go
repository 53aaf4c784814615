package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	opsRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Subsystem: "ops",
			Name:      "http_request_duration_seconds",
			Help:      "Ops listener request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path", "status"},
	)

	opsRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Subsystem: "ops",
			Name:      "http_requests_total",
			Help:      "Total number of ops listener requests",
		},
		[]string{"method", "path", "status"},
	)

	opsRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ragpipe",
			Subsystem: "ops",
			Name:      "http_requests_in_flight",
			Help:      "Ops listener requests currently being served",
		},
	)
)

var opsMetricsRegistered bool

// RegisterOpsMetrics registers the ops listener HTTP metrics. Called from main when the listener is enabled.
func RegisterOpsMetrics() {
	if opsMetricsRegistered {
		return
	}
	prometheus.MustRegister(opsRequestDuration, opsRequestsTotal, opsRequestsInFlight)
	opsMetricsRegistered = true
}

// Middleware records ops listener request duration, count and in-flight requests.
// Paths are labeled with the chi route pattern; unmatched routes are "unknown".
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			opsRequestsInFlight.Inc()
			defer opsRequestsInFlight.Dec()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			path := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				path = normalizePath(rctx.RoutePattern())
			}

			labels := []string{r.Method, path, strconv.Itoa(status)}
			opsRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			opsRequestsTotal.WithLabelValues(labels...).Inc()
		})
	}
}

func normalizePath(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}
