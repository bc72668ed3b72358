package middleware

import (
	"net/http"
	"strconv"
	"time"

	"factory-tracker/internal/logger"
	"factory-tracker/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs each request with chi's request id and records its
// duration. Must be mounted after chimiddleware.RequestID.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		latency := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		log := logger.WithRequestID(chimiddleware.GetReqID(r.Context()))
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status_code", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", latency),
		}

		switch {
		case status >= 500:
			log.Error("❌ request failed", fields...)
		case status >= 400:
			log.Warn("⚠️ request rejected", fields...)
		default:
			log.Debug("✓ request served", fields...)
		}
	})
}
