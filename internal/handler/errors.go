package handler

import (
	"errors"
	"net/http"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/service"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// writeServiceError maps service errors onto API errors.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Error(w, apierror.Unauthorized(""))
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, apierror.Unauthorized("Invalid or expired token"))
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, apierror.Unauthorized("Invalid username or password"))
	case errors.Is(err, service.ErrCaseNotFound):
		response.Error(w, apierror.NotFound("Case not found"))
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(w, apierror.NotFound("User not found"))
	case errors.Is(err, service.ErrUsernameTaken):
		response.Error(w, apierror.Conflict("Username already exists"))
	case errors.Is(err, service.ErrPasswordTooLong):
		response.Error(w, apierror.ValidationError("Invalid request",
			apierror.FieldError{Field: "password", Message: "Must be at most 72 bytes"}))
	case errors.Is(err, service.ErrEmptyPool):
		response.Error(w, apierror.EmptyPool(service.ErrMsgEmptyPool))
	default:
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
		response.Error(w, apierror.InternalError(""))
	}
}
