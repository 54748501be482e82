// Package apperr defines the error taxonomy shared by services and the
// HTTP layer. Callers classify errors with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError means the input was malformed; nothing was mutated.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// AuthError means the caller could not be authenticated.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// PermissionError means the caller is authenticated but not allowed.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

// NotFoundError is also returned for entities outside the caller's scope.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func Validation(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string]string{}}
}

// Field returns a ValidationError for a single field.
func Field(field, message string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("%s: %s", field, message),
		Fields:  map[string]string{field: message},
	}
}

func Unauthenticated(reason string) *AuthError {
	return &AuthError{Reason: reason}
}

func Forbidden(reason string) *PermissionError {
	return &PermissionError{Reason: reason}
}

func NotFound(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func Conflict(reason string) *ConflictError {
	return &ConflictError{Reason: reason}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsPermission(err error) bool {
	var e *PermissionError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// HTTPStatus maps an error onto a response status code.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		auth       *AuthError
		permission *PermissionError
		notFound   *NotFoundError
		conflict   *ConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case errors.As(err, &permission):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
