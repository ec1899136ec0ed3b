package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

var (
	validate     *Validator
	validateOnce sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validate = &Validator{validate: v}
	})
	return validate
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError turns validator errors into field details without
// leaking Go struct names.
func FormatValidationError(err error) []apierror.FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []apierror.FieldError{{Field: "body", Message: "Invalid request format"}}
	}

	details := make([]apierror.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		var msg string
		switch e.Tag() {
		case "required":
			msg = "This field is required"
		case "max":
			msg = fmt.Sprintf("Must be at most %s characters", e.Param())
		case "min":
			msg = fmt.Sprintf("Must be at least %s characters", e.Param())
		case "alphanum":
			msg = "Must contain only letters and digits"
		case "ne":
			msg = fmt.Sprintf("Must not be %s", e.Param())
		default:
			msg = "Invalid value"
		}
		details = append(details, apierror.FieldError{Field: e.Field(), Message: msg})
	}
	return details
}

// decodeAndValidate decodes the JSON body into req and validates it.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}, action string) bool {
	log := logger.FromContext(r.Context())
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Debug("Failed to decode request", "action", action, "error", err)
		response.Error(w, apierror.BadRequest("invalid request body"))
		return false
	}

	if err := GetValidator().ValidateStruct(req); err != nil {
		response.Error(w, apierror.ValidationError("invalid request", FormatValidationError(err)...))
		return false
	}
	return true
}
