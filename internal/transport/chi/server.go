// Package chi serves the ops listener: metrics, health and stored evaluation records.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	logpkg "github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
)

// Error codes returned in ErrorResponse.
const (
	CodeUnauthorized  = "unauthorized"
	CodeNotFound      = "not_found"
	CodeUnavailable   = "unavailable"
	CodeInternalError = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthChecker runs the backend health checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// RecordReader reads stored evaluation records.
type RecordReader interface {
	Get(ctx context.Context, traceID string) (domeval.Record, error)
	List(ctx context.Context) ([]domeval.Record, error)
}

// Server holds the ops handlers.
type Server struct {
	health  HealthChecker
	records RecordReader
	logger  *zap.Logger
}

// NewServer creates the ops server. records may be nil when no store is configured.
func NewServer(health HealthChecker, records RecordReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{health: health, records: records, logger: logger}
}

// Router builds the chi router with recovery, request ids, auth and metrics middleware.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/metrics", s.Metrics)
	r.Get("/healthz", s.Healthz)
	r.Get("/healthz/details", s.HealthDetails)
	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.ListRecords)
		r.Get("/{traceID}", s.GetRecord)
	})
	return r
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Healthz handles GET /healthz. Only the aggregated status is exposed.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, healthStatusCode(report), map[string]healthuc.Status{"status": report.Status})
}

// HealthDetails handles GET /healthz/details with per-component results.
func (s *Server) HealthDetails(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, healthStatusCode(report), report)
}

// ListRecords handles GET /records.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "record store is not configured")
		return
	}
	recs, err := s.records.List(r.Context())
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs, "count": len(recs)})
}

// GetRecord handles GET /records/{traceID}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "record store is not configured")
		return
	}
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "traceID"))
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, domain.ErrRecordNotFound.Error())
		return
	}
	logpkg.FromContext(ctx, s.logger).Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func healthStatusCode(report healthuc.Report) int {
	if report.Status != healthuc.Healthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Debug("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
