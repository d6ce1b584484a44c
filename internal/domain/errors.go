package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry policy
type Kind int

const (
	// KindInternal is an unexpected storage or arithmetic failure
	KindInternal Kind = iota
	// KindNotFound means a portfolio, holding, symbol or price is absent
	KindNotFound
	// KindValidation means the request itself is malformed (non-positive
	// quantity, bad date range) and must not be retried as-is
	KindValidation
	// KindConflict means the request is well-formed but the current state
	// rejects it (insufficient funds or shares)
	KindConflict
	// KindTransient means storage timeout or contention; safe to retry
	KindTransient
)

// Error is a classified domain error
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound creates a not-found error
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Transient creates a retryable error wrapping the storage failure
func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// Internal wraps an unexpected failure
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to internal
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
