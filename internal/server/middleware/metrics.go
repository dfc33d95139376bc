package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/observability"
)

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// getEndpointPattern prefers the chi route pattern so metric labels stay
// low-cardinality (/v1/resolve/{name}, not /v1/resolve/oracle).
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/version", path == "/metrics", path == "/":
		return path
	case strings.HasPrefix(path, "/v1/"):
		return "/v1/*"
	default:
		return "/unknown"
	}
}

// RequestMetrics emits per-request counters, duration and size metrics and
// logs the completed request. Probe requests log at debug level.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry := observability.TelemetrySystem
		if telemetry == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		endpoint := getEndpointPattern(r)
		status := strconv.Itoa(rec.statusCode)
		labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}
		sizeLabels := map[string]string{"method": r.Method, "endpoint": endpoint}

		var requestSize int64
		if r.ContentLength > 0 {
			requestSize = r.ContentLength
		}

		_ = telemetry.Counter("http_requests_total", 1, labels)
		_ = telemetry.Histogram("http_request_duration_ms", duration, labels)
		_ = telemetry.Gauge("http_request_size_bytes", float64(requestSize), sizeLabels)
		_ = telemetry.Gauge("http_response_size_bytes", float64(rec.bytesWritten), sizeLabels)

		if rec.statusCode >= http.StatusBadRequest {
			errorType := "client_error"
			if rec.statusCode >= http.StatusInternalServerError {
				errorType = "server_error"
			}
			_ = telemetry.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			})
		}

		logger := observability.ServerLogger
		if logger == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", endpoint),
			zap.Int("status", rec.statusCode),
			zap.Duration("duration", duration),
			zap.Int64("request_size", requestSize),
			zap.Int64("response_size", rec.bytesWritten),
			zap.String("requestID", GetRequestID(r.Context())),
		}
		if strings.HasPrefix(endpoint, "/health") {
			logger.Debug("HTTP request completed", fields...)
			return
		}
		logger.Info("HTTP request completed", fields...)
	})
}
