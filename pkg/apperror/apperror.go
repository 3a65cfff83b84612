// Package apperror defines the error contract shared by the document service and the HTTP layer.
//
// Every error carries a stable code and the HTTP status it maps to. Store failures keep the
// underlying driver error reachable through errors.Unwrap.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes.
const (
	CodeNotFound   = "resource.not_found"
	CodeBadRequest = "validation.failed"
	CodeStore      = "store.unavailable"
	CodeInternal   = "internal.error"
	CodeForbidden  = "auth.forbidden"

	CodeTooLarge    = "request.too_large"
	CodeRateLimited = "request.rate_limited"
	CodeTimeout     = "request.timeout"
)

// AppError is a classified application error.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	label := e.Message
	if label == "" {
		label = e.Code
	}
	if e.Cause != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", label, e.Cause)
	}
	return label
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithDetails attaches structured details.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

// NotFound reports that a well-formed operation matched zero documents.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// BadRequest reports malformed input.
func BadRequest(message string, cause error) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, HTTPStatus: http.StatusBadRequest, Cause: cause}
}

// Store reports a failure talking to the document store. The message is the driver error verbatim.
func Store(cause error) *AppError {
	msg := "document store unavailable"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{Code: CodeStore, Message: msg, HTTPStatus: http.StatusServiceUnavailable, Cause: cause}
}

// Internal reports a failure where recovery is not meaningful.
func Internal(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// Forbidden is declared for completeness; nothing in the service authorizes requests.
func Forbidden() *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    "You are unauthorized to access this data",
		HTTPStatus: http.StatusForbidden,
	}
}

// TooLarge reports a request body above the configured limit.
func TooLarge(maxBytes int64) *AppError {
	return &AppError{
		Code:       CodeTooLarge,
		Message:    fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", maxBytes),
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Details:    map[string]interface{}{"max_size": maxBytes},
	}
}

// RateLimited reports a client over its request budget.
func RateLimited() *AppError {
	return &AppError{Code: CodeRateLimited, Message: "rate limit exceeded", HTTPStatus: http.StatusTooManyRequests}
}

// Timeout reports a request that ran past its deadline.
func Timeout(cause error) *AppError {
	return &AppError{Code: CodeTimeout, Message: "request timed out", HTTPStatus: http.StatusGatewayTimeout, Cause: cause}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsNotFound reports whether err is a NotFound AppError.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsStore reports whether err is a store failure.
func IsStore(err error) bool {
	return HasCode(err, CodeStore)
}
