// Package apperr defines the error classification shared across services.
// Handlers translate codes into HTTP status codes; consumers use them to
// decide whether a failure should be retried by the bus or absorbed.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a semantic classification shared across transport layers.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalid           Code = "INVALID"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeDeliveryFailed    Code = "DELIVERY_FAILED"
	CodeConflict          Code = "CONFLICT"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInternal          Code = "INTERNAL"
)

// Error is a domain-level error carrying a classification code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a domain classification.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
