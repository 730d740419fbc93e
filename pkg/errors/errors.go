// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the typed application errors surfaced by the API.
package errors

import (
	"fmt"
	"net/http"
)

// Error types
const (
	// ErrInvalidArgument is returned when an invalid argument is provided
	ErrInvalidArgument = "invalid_argument"

	// ErrAuth is returned when a bearer secret is missing or wrong, or when a
	// caller attempts an action it is not permitted to perform
	ErrAuth = "auth"

	// ErrNotFound is returned when a user, token, session or request does not exist
	ErrNotFound = "not_found"

	// ErrGone is returned when a share token has already been consumed or a
	// session has expired
	ErrGone = "gone"

	// ErrConflict is returned when an operation conflicts with existing state
	ErrConflict = "conflict"

	// ErrInternal is returned when there is an internal error
	ErrInternal = "internal"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewAuthError creates a new auth error
func NewAuthError(message string, cause error) *Error {
	return NewError(ErrAuth, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewGoneError creates a new gone error
func NewGoneError(message string, cause error) *Error {
	return NewError(ErrGone, message, cause)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, cause error) *Error {
	return NewError(ErrConflict, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrInvalidArgument
}

// IsAuth checks if the error is an auth error
func IsAuth(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrAuth
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrNotFound
}

// IsGone checks if the error is a gone error
func IsGone(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrGone
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrConflict
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Type == ErrInternal
}

// Code returns the HTTP status code for the error. Errors that are not an
// application *Error map to 500.
func Code(err error) int {
	e, ok := err.(*Error)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case ErrInvalidArgument:
		return http.StatusBadRequest
	case ErrAuth:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrGone:
		return http.StatusGone
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
