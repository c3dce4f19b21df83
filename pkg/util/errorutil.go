package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable codes returned to API clients.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeRoleNotPermitted = "ROLE_NOT_PERMITTED"
	CodeTenantIntegrity  = "TENANT_INTEGRITY"
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_FAILED"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Coder is implemented by errors that carry their own stable code.
type Coder interface {
	error
	ErrorCode() string
	HTTPStatus() int
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewNotFound never names the resource so callers cannot tell what was missing.
func NewNotFound() error {
	return NewDomainError(CodeNotFound, "resource not found", http.StatusNotFound, nil)
}

func NewUnauthenticated() error {
	return NewDomainError(CodeUnauthenticated, "authentication required", http.StatusUnauthorized, nil)
}

func NewRoleNotPermitted() error {
	return NewDomainError(CodeRoleNotPermitted, "role not permitted", http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var coder Coder
	if errors.As(err, &coder) {
		return &DomainError{
			Code:       coder.ErrorCode(),
			Message:    http.StatusText(coder.HTTPStatus()),
			HTTPStatus: coder.HTTPStatus(),
			Err:        err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &DomainError{
			Code:       CodeTimeout,
			Message:    "request timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
