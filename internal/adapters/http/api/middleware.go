package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/eventscore/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
// Error responses are also counted per component under their API kind.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		code := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, time.Since(start).Seconds())

		if kind, ok := errorKind(wrapped.statusCode); ok {
			metrics.RecordErrorByComponent("http", kind)
		}
	}
}

// errorKind names the error class of a status code the API emits.
func errorKind(status int) (string, bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", false
	case status == http.StatusNotFound:
		return "not_found", true
	case status == http.StatusConflict:
		return "conflict", true
	case status == http.StatusTooManyRequests:
		return "backpressure", true
	case status == http.StatusServiceUnavailable:
		return "unavailable", true
	case status >= http.StatusInternalServerError:
		return "server_error", true
	default:
		return "bad_request", true
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
