package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// TokenValidator resolves session tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenData, error)
}

// NewAuthMiddleware rejects requests without a valid session token.
// The token is read from X-Token, falling back to "Authorization: Bearer".
func NewAuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				response.Error(w, apierror.Unauthorized("Authentication required. Use X-Token or Authorization: Bearer header."))
				return
			}

			tokenData, err := tokens.ValidateToken(r.Context(), token)
			if err != nil {
				response.Error(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewLoginKeyMiddleware guards admin routes with the X-Login-Key header.
// An empty key disables every guarded route.
func NewLoginKeyMiddleware(loginKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loginKey == "" {
				response.Error(w, apierror.Forbidden("Admin access is not configured"))
				return
			}
			if !ValidLoginKey(r.Header.Get("X-Login-Key"), loginKey) {
				response.Error(w, apierror.Unauthorized("Invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidLoginKey compares keys in constant time.
func ValidLoginKey(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// TokenFromRequest extracts the session token from headers.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get("X-Token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}

// UserIDFromContext returns the authenticated user id, or 0 when there is none.
func UserIDFromContext(ctx context.Context) int64 {
	if data := GetTokenDataFromContext(ctx); data != nil {
		return data.UserID
	}
	return 0
}

// WithTokenData attaches token data to ctx.
func WithTokenData(ctx context.Context, data *model.TokenData) context.Context {
	return context.WithValue(ctx, TokenDataKey, data)
}
