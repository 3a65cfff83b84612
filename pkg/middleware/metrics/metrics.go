// Package metrics records Prometheus HTTP metrics per route.
package metrics

import (
	"time"

	"github.com/nimburion/postsvc/pkg/observability/metrics"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// unmatchedRoute labels requests that matched no registered route.
const unmatchedRoute = "unmatched"

// Metrics records request count, duration and in-flight requests. The path label is
// the route pattern so identifiers do not inflate label cardinality.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			route := c.Route()
			if route == "" {
				route = unmatchedRoute
			}
			metrics.RecordHTTPMetrics(c.Request().Method, route, c.Response().Status(), time.Since(start))
			return err
		}
	}
}
