package server

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder wraps http.ResponseWriter to capture the status code a
// handler wrote, since http.ResponseWriter itself doesn't expose it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every HTTP request with timing and status, the
// HTTP-handler equivalent of UnaryLoggingInterceptor.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
				"status", rec.status,
			)
		})
	}
}

// RecoveryMiddleware recovers from panics and returns a 500, the HTTP
// equivalent of RecoveryInterceptor. The WebSocket loop itself (which
// doesn't go through net/http's per-request recovery once upgraded) guards
// its own per-message panics separately in wsapi.Handler.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http handler panic recovered", "path", r.URL.Path, "panic", rec)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics tracks basic HTTP request metrics, the HTTP equivalent of the
// gRPC Metrics type.
type Metrics struct {
	TotalRequests    int64
	TotalErrors      int64
	TotalLatencyMs   int64
	RequestsByPath   map[string]int64
	ErrorsByPath     map[string]int64
	LatencyByPath    map[string]int64
}

var globalMetrics = &Metrics{
	RequestsByPath: make(map[string]int64),
	ErrorsByPath:   make(map[string]int64),
	LatencyByPath:  make(map[string]int64),
}

// GetMetrics returns the current metrics snapshot.
func GetMetrics() Metrics {
	return *globalMetrics
}

// MetricsMiddleware collects basic request metrics.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start).Milliseconds()
			globalMetrics.TotalRequests++
			globalMetrics.TotalLatencyMs += duration
			globalMetrics.RequestsByPath[r.URL.Path]++
			globalMetrics.LatencyByPath[r.URL.Path] += duration

			if rec.status >= 400 {
				globalMetrics.TotalErrors++
				globalMetrics.ErrorsByPath[r.URL.Path]++
			}
		})
	}
}

// Chain applies middlewares in order, so Chain(a, b, c)(h) calls a, then b,
// then c, then h — matching the call order of ChainUnaryInterceptors.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}
