// Package timeout bounds each request with a context deadline.
package timeout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/controller"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// Config configures the request deadline.
type Config struct {
	// Timeout of zero or less disables the middleware.
	Timeout              time.Duration
	ExcludedPathPrefixes []string
}

// Middleware attaches a deadline to the request context. A handler that fails with
// context.DeadlineExceeded before writing gets a 504.
//
// Store operations inherit the deadline, so it replaces the store's own operation
// timeout for requests that pass through here.
func Middleware(cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		if cfg.Timeout <= 0 {
			return next
		}
		return func(c router.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if prefix != "" && strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			if c.Response().Written() {
				return nil
			}
			if err == nil {
				err = ctx.Err()
			}
			return controller.Error(c, apperror.Timeout(err))
		}
	}
}
