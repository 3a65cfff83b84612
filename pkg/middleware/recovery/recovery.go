// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/controller"
	"github.com/nimburion/postsvc/pkg/middleware/requestid"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// Recovery recovers panics, logs them with the stack trace and answers with the
// standard internal error body when nothing was written yet.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log.Error("panic recovered",
					"request_id", requestid.FromContext(c.Request().Context()),
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"panic", r,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					err = fmt.Errorf("panic after response was written: %v", r)
					return
				}
				err = controller.Error(c, apperror.Internal("an unexpected error occurred", fmt.Errorf("panic: %v", r)))
			}()

			return next(c)
		}
	}
}
