// Package tracing starts an OpenTelemetry server span for every request.
package tracing

import (
	"fmt"
	"strings"

	"github.com/nimburion/postsvc/pkg/middleware/requestid"
	"github.com/nimburion/postsvc/pkg/server/router"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Config holds configuration for the tracing middleware.
type Config struct {
	// TracerName defaults to "http-server".
	TracerName string
	// ExcludedPathPrefixes are not traced.
	ExcludedPathPrefixes []string
}

// Tracing extracts the incoming trace context, starts a server span named
// "HTTP <method> <route>" and puts the span context on the request, so store spans
// become its children.
func Tracing(cfg Config) router.MiddlewareFunc {
	if cfg.TracerName == "" {
		cfg.TracerName = "http-server"
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if prefix != "" && strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}

			route := c.Route()
			if route == "" {
				route = req.URL.Path
			}

			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := otel.Tracer(cfg.TracerName).Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, route),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", route),
					attribute.String("http.target", req.URL.RequestURI()),
				),
			)
			defer span.End()

			if id := requestid.FromContext(req.Context()); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			status := c.Response().Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case status >= 500:
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			default:
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}
