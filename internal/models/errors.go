package models

import (
	"errors"
	"fmt"
)

// Standard error codes for the application
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

// NewValidationError signals that input violates a stated constraint.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewNotAuthenticatedError signals that the operation requires a viewer
// identity and none is present.
func NewNotAuthenticatedError(message string) *AppError {
	return &AppError{Code: CodeNotAuthenticated, Message: message}
}

// NewUnauthorizedError signals that the viewer lacks ownership of the
// target resource.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewNotFoundError signals that the referenced resource does not exist.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewConflictError signals a duplicate-key attempt on a composite-unique
// relation. Write paths treat it as success-no-op rather than surfacing it.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewInternalError wraps a store or transport failure. Recoverable and
// retryable from the caller's point of view.
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// CodeOf returns the application error code for err, or CodeInternal for
// errors that did not originate from this package.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsValidationError reports whether err carries CodeValidation.
func IsValidationError(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsNotAuthenticatedError reports whether err carries CodeNotAuthenticated.
func IsNotAuthenticatedError(err error) bool {
	return CodeOf(err) == CodeNotAuthenticated
}

// IsUnauthorizedError reports whether err carries CodeUnauthorized.
func IsUnauthorizedError(err error) bool {
	return CodeOf(err) == CodeUnauthorized
}

// IsNotFoundError reports whether err carries CodeNotFound.
func IsNotFoundError(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsConflictError reports whether err carries CodeConflict.
func IsConflictError(err error) bool {
	return CodeOf(err) == CodeConflict
}
