// Package controller turns handler results into HTTP responses.
package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/middleware"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Status    string                 `json:"status"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps err to a status code and response body. Errors that are not
// *apperror.AppError are reported as opaque 500s.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := RequestID(ctx)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Code:      apperror.CodeInternal,
			Message:   "an unexpected error occurred",
			Status:    statusLine(http.StatusInternalServerError),
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := appErr.Message
	if message == "" {
		message = http.StatusText(status)
	}

	return status, ErrorResponse{
		Error:     errorCategory(status),
		Code:      appErr.Code,
		Message:   message,
		Status:    statusLine(status),
		RequestID: requestID,
		Details:   appErr.Details,
	}
}

// RequestID returns the correlation id stored by the requestid middleware.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func statusLine(status int) string {
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}

func errorCategory(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "store_error"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}
