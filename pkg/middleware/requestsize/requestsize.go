// Package requestsize caps request body size.
package requestsize

import (
	"errors"
	"net/http"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/controller"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// Middleware enforces a maximum request body size in bytes.
// A non-positive maxBytes disables the middleware.
func Middleware(maxBytes int64) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		if maxBytes <= 0 {
			return next
		}
		return func(c router.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > maxBytes {
				return controller.Error(c, apperror.TooLarge(maxBytes))
			}

			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			c.SetRequest(req)

			err := next(c)
			if err == nil {
				return nil
			}

			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) && !c.Response().Written() {
				return controller.Error(c, apperror.TooLarge(maxBytes))
			}
			return err
		}
	}
}
