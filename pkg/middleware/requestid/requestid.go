// Package requestid assigns every request a correlation id.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nimburion/postsvc/pkg/middleware"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

// maxLength bounds ids accepted from clients.
const maxLength = 128

// RequestID keeps a client supplied X-Request-ID or generates a UUID, then exposes the
// id on the response header, the router context and the request context.
func RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(Header))
			if id == "" || len(id) > maxLength {
				id = uuid.New().String()
			}

			c.Set(string(middleware.RequestIDKey), id)
			c.Response().Header().Set(Header, id)
			ctx := context.WithValue(c.Request().Context(), middleware.RequestIDKey, id)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// FromContext returns the request id, or "" when none was assigned.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(middleware.RequestIDKey).(string)
	return id
}
