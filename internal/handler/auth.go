package handler

import (
	"net/http"

	"caseopener-rest-api/internal/middleware"
	"caseopener-rest-api/internal/service"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth *service.AuthService
	ttl  int
}

// NewAuthHandler creates a new auth handler. sessionTTLSeconds is reported to clients.
func NewAuthHandler(auth *service.AuthService, sessionTTLSeconds int) *AuthHandler {
	return &AuthHandler{auth: auth, ttl: sessionTTLSeconds}
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

// TokenResponse represents the response for a successful login.
type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"`
	User      interface{} `json:"user"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeAndValidate(w, r, &req, "register") {
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.Created(w, user)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeAndValidate(w, r, &req, "login") {
		return
	}

	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.OK(w, TokenResponse{
		Token:     session.Token,
		ExpiresIn: h.ttl,
		User:      session.User,
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "logged_out"})
}
