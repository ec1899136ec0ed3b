package service

import (
	"errors"
	"fmt"
)

// Error messages
const (
	ErrMsgUnauthenticated    = "authentication required"
	ErrMsgCaseNotFound       = "case not found"
	ErrMsgEmptyPool          = "No items available. Run the item scanner to ingest assets."
	ErrMsgPersistence        = "failed to persist changes"
	ErrMsgUserNotFound       = "user not found"
	ErrMsgUsernameTaken      = "username already exists"
	ErrMsgInvalidCredentials = "invalid credentials"
	ErrMsgInvalidToken       = "invalid or expired token"
	ErrMsgPasswordTooLong    = "password must be at most 72 bytes"
)

var (
	// ErrUnauthenticated is returned when no valid user is attached to a spin.
	ErrUnauthenticated = errors.New(ErrMsgUnauthenticated)
	// ErrCaseNotFound is returned for an unknown case id.
	ErrCaseNotFound = errors.New(ErrMsgCaseNotFound)
	// ErrEmptyPool is returned when no item can be drawn even after seeding.
	ErrEmptyPool = errors.New(ErrMsgEmptyPool)
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New(ErrMsgPersistence)

	ErrUserNotFound       = errors.New(ErrMsgUserNotFound)
	ErrUsernameTaken      = errors.New(ErrMsgUsernameTaken)
	ErrInvalidCredentials = errors.New(ErrMsgInvalidCredentials)
	ErrInvalidToken       = errors.New(ErrMsgInvalidToken)
	ErrPasswordTooLong    = errors.New(ErrMsgPasswordTooLong)
)

// PersistenceError reports a storage failure. When returned from a spin,
// none of the spin's writes were applied.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMsgPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
