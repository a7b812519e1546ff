// Package apperr carries the error taxonomy shared by services and
// transports: a stable code, a human-readable message, and optional
// structured details (for example requested vs available quantities).
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Details map[string]any

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail attaches a structured detail and returns the same error so
// calls can be chained at the construction site.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf extracts the code from err; errors without a code are Internal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// DetailsOf returns all structured details carried by err.
func DetailsOf(err error) map[string]any {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return nil
	}
	return appErr.Details
}

// DetailOf returns a structured detail from err, if err carries one.
func DetailOf(err error, key string) (any, bool) {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return nil, false
	}
	v, ok := appErr.Details[key]
	return v, ok
}
