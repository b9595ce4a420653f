package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

// Error is an expected domain failure: it carries the HTTP status it maps to and a machine-readable code.
type Error struct {
	Status int
	Code   string
	Err    error
}

func NewError(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Err: errors.New(msg)}
}

func NewBadRequest(code, msg string) *Error   { return NewError(http.StatusBadRequest, code, msg) }
func NewUnauthorized(code, msg string) *Error { return NewError(http.StatusUnauthorized, code, msg) }
func NewForbidden(code, msg string) *Error    { return NewError(http.StatusForbidden, code, msg) }
func NewNotFound(code, msg string) *Error     { return NewError(http.StatusNotFound, code, msg) }
func NewConflict(code, msg string) *Error     { return NewError(http.StatusConflict, code, msg) }

func (e *Error) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

var ErrForbidden = NewForbidden("FORBIDDEN", "permission denied")

// ErrorStatus returns the status of the domain Error behind err, or 0 if err is not one.
func ErrorStatus(err error) int {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Status
	}
	return 0
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
