package middleware

import (
	"context"
	"net/http"
	"strings"

	"factory-tracker/internal/logger"
	"factory-tracker/internal/session"

	"go.uber.org/zap"
)

type contextKey string

const DriverContextKey contextKey = "driver_id"

// Session reads an optional "Authorization: Bearer <token>" header and, when
// the token is valid, stores the driver id in the request context. Requests
// without a usable token pass through untouched: the token only identifies
// the driver, it does not gate access.
func Session(tokens *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}

			driverID, err := tokens.Parse(parts[1])
			if err != nil {
				logger.Debug("🔐 ignoring session token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), DriverContextKey, driverID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DriverFromContext returns the driver id set by Session
func DriverFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(DriverContextKey).(string)
	return id, ok && id != ""
}
