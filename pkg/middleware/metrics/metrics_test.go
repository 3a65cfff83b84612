package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/postsvc/pkg/observability/metrics"
	"github.com/nimburion/postsvc/pkg/server/router"
	ginrouter "github.com/nimburion/postsvc/pkg/server/router/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordsByRoutePattern(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Metrics())
	r.GET("/mw-test/posts/:id", func(c router.Context) error {
		return c.String(http.StatusNotFound, "missing")
	})

	counter := metrics.HTTPRequestsTotal().WithLabelValues(http.MethodGet, "/mw-test/posts/:id", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mw-test/posts/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Fatalf("counter delta = %v, want 3", got)
	}
	if v := testutil.ToFloat64(metrics.HTTPRequestsInFlight()); v != 0 {
		t.Fatalf("in-flight gauge = %v after requests finished", v)
	}
}
