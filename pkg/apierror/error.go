package apierror

import (
	"encoding/json"
	"net/http"
)

// Code is the machine-readable error identifier sent to clients.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeEmptyPool          Code = "EMPTY_POOL"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

type codeInfo struct {
	status  int
	message string
}

var codes = map[Code]codeInfo{
	CodeBadRequest:         {http.StatusBadRequest, "Bad request"},
	CodeValidation:         {http.StatusBadRequest, "Invalid request"},
	CodeEmptyPool:          {http.StatusBadRequest, "No items available"},
	CodeUnauthorized:       {http.StatusUnauthorized, "Authentication required"},
	CodeForbidden:          {http.StatusForbidden, "Access denied"},
	CodeNotFound:           {http.StatusNotFound, "Resource not found"},
	CodeConflict:           {http.StatusConflict, "Resource already exists"},
	CodeInternal:           {http.StatusInternalServerError, "An unexpected error occurred"},
	CodeServiceUnavailable: {http.StatusServiceUnavailable, "Service temporarily unavailable"},
}

// Error is an error that knows its HTTP status and client-facing code.
type Error struct {
	StatusCode int          `json:"-"`
	Code       Code         `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// New builds an error for code. An empty message uses the code's default.
func New(code Code, message string, details ...FieldError) *Error {
	info, ok := codes[code]
	if !ok {
		info = codes[CodeInternal]
	}
	if message == "" {
		message = info.message
	}
	return &Error{
		StatusCode: info.status,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// ToJSON renders the {"success":false,"error":{...}} envelope.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{Error: e})
	return data
}

func BadRequest(message string) *Error { return New(CodeBadRequest, message) }

// ValidationError carries per-field problems in Details.
func ValidationError(message string, details ...FieldError) *Error {
	return New(CodeValidation, message, details...)
}

// EmptyPool reports a case with nothing it can drop.
func EmptyPool(message string) *Error { return New(CodeEmptyPool, message) }

func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }

func Forbidden(message string) *Error { return New(CodeForbidden, message) }

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func Conflict(message string) *Error { return New(CodeConflict, message) }

func InternalError(message string) *Error { return New(CodeInternal, message) }

func ServiceUnavailable(message string) *Error { return New(CodeServiceUnavailable, message) }
