package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the scope of spans started for document store calls.
const InstrumentationName = "github.com/nimburion/documentdb/pkg/repository/document"

// StoreOperation is a traced document store call.
type StoreOperation string

const (
	StoreRead    StoreOperation = "read"
	StoreCreate  StoreOperation = "create"
	StoreReplace StoreOperation = "replace"
	StoreDelete  StoreOperation = "delete"
	StoreQuery   StoreOperation = "query"
)

// StartStoreSpan starts a client span named "DB <operation> <collection>". A nil
// tracer uses the global provider.
func StartStoreSpan(ctx context.Context, tracer trace.Tracer, operation StoreOperation, opts ...StoreSpanOption) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(InstrumentationName)
	}

	spanOpts := &storeSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("db.operation", string(operation)),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("DB %s", operation)
	if spanOpts.collection != "" {
		spanName = fmt.Sprintf("DB %s %s", operation, spanOpts.collection)
	}

	return tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanOpts.attributes...),
	)
}

// StoreSpanOption configures a store span.
type StoreSpanOption func(*storeSpanOptions)

type storeSpanOptions struct {
	collection string
	attributes []attribute.KeyValue
}

// WithDBSystem sets the store system ("mongodb", "dynamodb", "postgresql", "memory").
func WithDBSystem(system string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.system", system))
	}
}

// WithCollection sets the container, collection or table name.
func WithCollection(name string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		if name == "" {
			return
		}
		opts.collection = name
		opts.attributes = append(opts.attributes, attribute.String("db.collection", name))
	}
}

func WithPartitionKey(pk string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.partition_key", pk))
	}
}

func WithDocumentID(id string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.document_id", id))
	}
}

// WithStatement sets the rendered specification of a query.
func WithStatement(statement string) StoreSpanOption {
	return func(opts *storeSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.statement", statement))
	}
}

// RecordResult annotates span with the store's answer.
func RecordResult(span trace.Span, status int, charge float64, count int) {
	span.SetAttributes(
		attribute.Int("db.status_code", status),
		attribute.Float64("db.request_charge", charge),
		attribute.Int("db.document_count", count),
	)
}

// RecordError records err on span and marks it failed.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
