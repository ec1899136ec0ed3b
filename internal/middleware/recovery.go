package middleware

import (
	"net/http"
	"runtime/debug"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(r.Context()).Error("Panic recovered",
					"panic", err, "stack", string(debug.Stack()))

				response.Error(w, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
