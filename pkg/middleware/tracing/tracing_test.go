package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/postsvc/pkg/middleware/requestid"
	"github.com/nimburion/postsvc/pkg/server/router"
	ginrouter "github.com/nimburion/postsvc/pkg/server/router/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	return recorder
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func newRouter(cfg Config) *ginrouter.GinRouter {
	r := ginrouter.NewRouter()
	r.Use(requestid.RequestID(), Tracing(cfg))
	r.GET("/posts/:id", func(c router.Context) error {
		if !trace.SpanContextFromContext(c.Request().Context()).IsValid() {
			return c.String(http.StatusInternalServerError, "no span in context")
		}
		return c.String(http.StatusOK, "ok")
	})
	r.GET("/down", func(c router.Context) error { return c.String(http.StatusServiceUnavailable, "down") })
	r.GET("/error", func(c router.Context) error { return errors.New("exploded") })
	r.GET("/health", func(c router.Context) error { return c.String(http.StatusOK, "ok") })
	return r
}

func TestTracing_ServerSpanPerRequest(t *testing.T) {
	recorder := setupRecorder(t)
	r := newRouter(Config{})

	req := httptest.NewRequest(http.MethodGet, "/posts/42", nil)
	req.Header.Set(requestid.Header, "req-trace")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "HTTP GET /posts/:id" {
		t.Errorf("name = %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("kind = %v", span.SpanKind())
	}
	if v, ok := attr(span.Attributes(), "request.id"); !ok || v.AsString() != "req-trace" {
		t.Errorf("request.id = %v", v)
	}
	if v, ok := attr(span.Attributes(), "http.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("http.status_code = %v", v)
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v", span.Status())
	}
}

func TestTracing_ErrorStatuses(t *testing.T) {
	recorder := setupRecorder(t)
	r := newRouter(Config{})

	for _, path := range []string{"/down", "/error"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans))
	}
	for _, span := range spans {
		if span.Status().Code != codes.Error {
			t.Errorf("%s: status = %v, want error", span.Name(), span.Status())
		}
	}
	if len(spans[1].Events()) == 0 {
		t.Error("handler error was not recorded on the span")
	}
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	recorder := setupRecorder(t)
	r := newRouter(Config{})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/posts/1", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != traceID {
		t.Fatalf("trace id = %s, want %s", got, traceID)
	}
}

func TestTracing_ExcludedPath(t *testing.T) {
	recorder := setupRecorder(t)
	r := newRouter(Config{ExcludedPathPrefixes: []string{"/health"}})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if n := len(recorder.Ended()); n != 0 {
		t.Fatalf("excluded path produced %d spans", n)
	}
}
