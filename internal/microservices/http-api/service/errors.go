package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; the handler layer maps each to a status code.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("too many attempts")
)

// Error carries a kind plus a client-facing message and, for input
// problems, the offending field.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationError(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

func conflictError(field, message string) error {
	return &Error{Kind: ErrConflict, Field: field, Message: message}
}

func forbidden() error {
	return &Error{Kind: ErrForbidden, Message: ErrForbidden.Error()}
}

func unauthenticated() error {
	return &Error{Kind: ErrUnauthenticated, Message: ErrUnauthenticated.Error()}
}

func rateLimited(message string) error {
	return &Error{Kind: ErrRateLimited, Message: message}
}
