package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseopener-rest-api/internal/model"
)

type stubValidator map[string]*model.TokenData

func (s stubValidator) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if data, ok := s[token]; ok {
		return data, nil
	}
	return nil, errors.New("unknown token")
}

func echoUserID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == 0 {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	validator := stubValidator{"cot_good": {UserID: 9, Username: "gina"}}
	h := NewAuthMiddleware(validator)(echoUserID())

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"x-token", "X-Token", "cot_good", http.StatusOK},
		{"bearer", "Authorization", "Bearer cot_good", http.StatusOK},
		{"bad token", "X-Token", "cot_bad", http.StatusUnauthorized},
		{"basic auth ignored", "Authorization", "Basic abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLoginKeyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		req.Header.Set("X-Login-Key", "s3cret")
		rec := httptest.NewRecorder()
		NewLoginKeyMiddleware("s3cret")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		req.Header.Set("X-Login-Key", "guess")
		rec := httptest.NewRecorder()
		NewLoginKeyMiddleware("s3cret")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		req.Header.Set("X-Login-Key", "")
		rec := httptest.NewRecorder()
		NewLoginKeyMiddleware("")(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.NotEqual(t, "abc-123", seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	h := Logging(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("reel exploded")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cases/0/spin", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
