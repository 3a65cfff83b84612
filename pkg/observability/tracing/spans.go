package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StoreInstrumentation is the tracer scope used for document store spans.
const StoreInstrumentation = "github.com/nimburion/postsvc/store"

// SpanOperation names a traced store operation.
type SpanOperation string

const (
	SpanOperationFind   SpanOperation = "find"
	SpanOperationInsert SpanOperation = "insert"
	SpanOperationUpdate SpanOperation = "update"
	SpanOperationDelete SpanOperation = "delete"
)

// StartStoreSpan opens a client span for one document store call.
// Span names look like "mongodb find post".
func StartStoreSpan(ctx context.Context, operation SpanOperation, opts ...StoreSpanOption) (context.Context, trace.Span) {
	o := &storeSpanOptions{system: "mongodb"}
	for _, opt := range opts {
		opt(o)
	}

	name := fmt.Sprintf("%s %s", o.system, operation)
	if o.collection != "" {
		name = fmt.Sprintf("%s %s", name, o.collection)
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", o.system),
		attribute.String("db.operation", string(operation)),
	}
	if o.collection != "" {
		attrs = append(attrs, attribute.String("db.mongodb.collection", o.collection))
	}
	if o.database != "" {
		attrs = append(attrs, attribute.String("db.name", o.database))
	}

	ctx, span := otel.Tracer(StoreInstrumentation).Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attrs...)
	return ctx, span
}

// StoreSpanOption configures a store span.
type StoreSpanOption func(*storeSpanOptions)

type storeSpanOptions struct {
	system     string
	collection string
	database   string
}

// WithCollection sets the collection the operation targets.
func WithCollection(name string) StoreSpanOption {
	return func(o *storeSpanOptions) { o.collection = name }
}

// WithDatabase sets the database name.
func WithDatabase(name string) StoreSpanOption {
	return func(o *storeSpanOptions) { o.database = name }
}

// WithSystem overrides the db.system attribute.
func WithSystem(system string) StoreSpanOption {
	return func(o *storeSpanOptions) { o.system = system }
}

// End records err (if any) on the span, sets its status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
