// Package apperr defines the error categories surfaced to API callers.
//
// Every error that reaches the HTTP boundary is mapped to a stable Code.
// Only validation errors carry field-level details; anything that is not one
// of the typed errors below is treated as internal and its text is masked.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the categorical error code exposed under extensions.code.
type Code string

const (
	CodeBadUserInput      Code = "BAD_USER_INPUT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInternal          Code = "INTERNAL_SERVER_ERROR"
	CodeParseFailed       Code = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed  Code = "GRAPHQL_VALIDATION_FAILED"
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeOperationNotFound Code = "OPERATION_RESOLUTION_FAILURE"
)

// InternalMessage replaces the text of every internal error.
const InternalMessage = "Unexpected server error"

// FieldError describes a single invalid input field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Message string
	Details []FieldError
}

// NewValidationError returns a ValidationError carrying details.
func NewValidationError(msg string, details ...FieldError) *ValidationError {
	return &ValidationError{Message: msg, Details: details}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s %s", e.Message, e.Details[0].Path, e.Details[0].Message)
}

// IsValidation returns a boolean indicating whether the error is a validation error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Message string
}

// NewNotFoundError returns a NotFoundError with the given message.
func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{Message: msg}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string { return e.Message }

// IsNotFound returns a boolean indicating whether the error is a not found error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e)
}

// ForbiddenError reports an absent or insufficient identity.
type ForbiddenError struct {
	Message string
}

const (
	MsgAuthenticationRequired  = "Authentication required"
	MsgInsufficientPermissions = "Insufficient permissions"
)

// NewForbiddenError returns a ForbiddenError with the given message.
func NewForbiddenError(msg string) *ForbiddenError {
	return &ForbiddenError{Message: msg}
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string { return e.Message }

// IsForbidden returns a boolean indicating whether the error is a forbidden error.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	var e *ForbiddenError
	return errors.As(err, &e)
}

// CodeOf returns the category of err. Untyped errors are internal.
func CodeOf(err error) Code {
	var (
		ve *ValidationError
		ne *NotFoundError
		fe *ForbiddenError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return CodeBadUserInput
	case errors.As(err, &ne):
		return CodeNotFound
	case errors.As(err, &fe):
		return CodeForbidden
	default:
		return CodeInternal
	}
}

// Present converts err into the caller-visible message and extensions.
// internal is true when the original message was replaced and the error
// should be logged server-side.
func Present(err error) (message string, ext map[string]any, internal bool) {
	var (
		ve *ValidationError
		ne *NotFoundError
		fe *ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		ext = map[string]any{"code": string(CodeBadUserInput)}
		if len(ve.Details) > 0 {
			ext["details"] = ve.Details
		}
		return ve.Message, ext, false
	case errors.As(err, &ne):
		return ne.Message, map[string]any{"code": string(CodeNotFound)}, false
	case errors.As(err, &fe):
		return fe.Message, map[string]any{"code": string(CodeForbidden)}, false
	default:
		return InternalMessage, map[string]any{"code": string(CodeInternal)}, true
	}
}
