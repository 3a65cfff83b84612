// Package middleware holds request-scoped keys shared by the HTTP middleware packages.
package middleware

// ContextKey is a typed key for request context values.
type ContextKey string

const (
	// RequestIDKey stores the correlation ID assigned by the requestid middleware.
	RequestIDKey ContextKey = "request_id"
)
