// Package uid generates identifiers for request correlation.
package uid

import "github.com/google/uuid"

// maxExternalLength bounds caller-supplied request ids.
const maxExternalLength = 64

// New returns a time-ordered UUIDv7, or a random UUIDv4 if the clock read fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// FromHeader keeps a caller's request id when it is short printable ASCII
// and generates a new one otherwise. The result is echoed into response
// headers and log lines.
func FromHeader(v string) string {
	if v == "" || len(v) > maxExternalLength {
		return New()
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '!' || v[i] > '~' {
			return New()
		}
	}
	return v
}
