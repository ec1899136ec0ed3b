package middleware

import (
	"net/http"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/pkg/uid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestID is a middleware that adds a unique request ID to each request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uid.FromHeader(r.Header.Get("X-Request-ID"))

		w.Header().Set("X-Request-ID", requestID)

		ctx := logger.WithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(r *http.Request) string {
	id, _ := logger.RequestIDFromContext(r.Context())
	return id
}
