// Package router defines the routing abstraction handlers are written against.
// The gin subpackage provides the implementation used by the server.
package router

import (
	"errors"
	"net/http"
)

// ErrEmptyBody is returned by Context.Bind when the request carries no body.
var ErrEmptyBody = errors.New("request body is empty")

// Router registers handlers by method and path. Path parameters use the ":name" form.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group returns a router whose routes share prefix and middleware.
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use appends middleware applied to routes registered afterwards.
	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request. A returned error that was not already written to the
// response becomes a 500.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context gives handlers router-agnostic access to the request and response.
type Context interface {
	Request() *http.Request
	SetRequest(r *http.Request)

	Response() ResponseWriter
	SetResponse(w ResponseWriter)

	// Route returns the registered path pattern, e.g. "/api/posts/:id".
	Route() string

	// Param returns a path parameter, or "" when the route has none by that name.
	Param(name string) string

	// Query returns the first value of a query parameter, or "".
	Query(name string) string

	// QueryValue is Query with a presence flag, so "?name=" and no parameter differ.
	QueryValue(name string) (string, bool)

	// Bind decodes a JSON request body into v.
	Bind(v interface{}) error

	JSON(code int, v interface{}) error
	String(code int, s string) error

	Get(key string) interface{}
	Set(key string, value interface{})
}

// ResponseWriter tracks the status written to the client.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the written status code, or 200 when nothing was written yet.
	Status() int

	Written() bool
}
