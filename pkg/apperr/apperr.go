// Package apperr holds the error kinds shared by services and the HTTP layer.
// Services wrap these with fmt.Errorf("...: %w", ...) and handlers map them
// to a status code through response.FromError.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnavailable       = errors.New("service unavailable")
)

// Message returns the human readable part of an error built with Wrap.
// Errors that are not wrapped return their own text.
func Message(err error) string {
	var m *msgError
	if errors.As(err, &m) {
		return m.msg
	}
	return err.Error()
}

type msgError struct {
	kind error
	msg  string
}

func (e *msgError) Error() string { return e.msg }
func (e *msgError) Unwrap() error { return e.kind }

// Wrap attaches a client-facing message to one of the sentinel kinds.
func Wrap(kind error, format string, args ...interface{}) error {
	return &msgError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NotFound is shorthand for Wrap(ErrNotFound, "<what> not found").
func NotFound(what string) error {
	return Wrap(ErrNotFound, "%s not found", what)
}
