package document

import (
	"context"
	"errors"
	"time"

	"github.com/nimburion/documentdb/pkg/observability/metrics"
	"github.com/nimburion/documentdb/pkg/observability/tracing"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOptions selects what Instrument records. A nil Metrics records no
// metrics and a nil Tracer uses the global tracer provider.
type InstrumentOptions struct {
	System     string
	Collection string
	Metrics    *metrics.DocumentMetrics
	Tracer     trace.Tracer
}

// Instrument wraps connector so every store call opens a client span and records
// the operation count, latency and request charge.
func Instrument[D Document](connector Connector[D], opts InstrumentOptions) Connector[D] {
	return &instrumentedConnector[D]{next: connector, opts: opts}
}

type instrumentedConnector[D Document] struct {
	next Connector[D]
	opts InstrumentOptions
}

func (c *instrumentedConnector[D]) Open(ctx context.Context) (Conn[D], error) {
	conn, err := c.next.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &instrumentedConn[D]{next: conn, opts: c.opts}, nil
}

type instrumentedConn[D Document] struct {
	next Conn[D]
	opts InstrumentOptions
}

func (c *instrumentedConn[D]) Read(ctx context.Context, key Key) (Result[D], error) {
	ctx, done := c.start(ctx, tracing.StoreRead, tracing.WithPartitionKey(key.PartitionKey), tracing.WithDocumentID(key.ID))
	res, err := c.next.Read(ctx, key)
	done(res, err)
	return res, err
}

func (c *instrumentedConn[D]) Create(ctx context.Context, doc D) (Result[D], error) {
	ctx, done := c.start(ctx, tracing.StoreCreate, tracing.WithPartitionKey(doc.PartitionKey()), tracing.WithDocumentID(doc.DocumentID()))
	res, err := c.next.Create(ctx, doc)
	done(res, err)
	return res, err
}

func (c *instrumentedConn[D]) Replace(ctx context.Context, doc D) (Result[D], error) {
	ctx, done := c.start(ctx, tracing.StoreReplace, tracing.WithPartitionKey(doc.PartitionKey()), tracing.WithDocumentID(doc.DocumentID()))
	res, err := c.next.Replace(ctx, doc)
	done(res, err)
	return res, err
}

func (c *instrumentedConn[D]) Delete(ctx context.Context, key Key) (Result[D], error) {
	ctx, done := c.start(ctx, tracing.StoreDelete, tracing.WithPartitionKey(key.PartitionKey), tracing.WithDocumentID(key.ID))
	res, err := c.next.Delete(ctx, key)
	done(res, err)
	return res, err
}

func (c *instrumentedConn[D]) Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error) {
	ctx, done := c.start(ctx, tracing.StoreQuery,
		tracing.WithPartitionKey(req.PartitionKey),
		tracing.WithStatement(describe(req.Specification)),
	)
	res, err := c.next.Query(ctx, req)
	done(res.Result, err)
	return res, err
}

func (c *instrumentedConn[D]) Close(ctx context.Context) error {
	return c.next.Close(ctx)
}

func (c *instrumentedConn[D]) start(ctx context.Context, op tracing.StoreOperation, opts ...tracing.StoreSpanOption) (context.Context, func(Result[D], error)) {
	opts = append(opts, tracing.WithDBSystem(c.opts.System), tracing.WithCollection(c.opts.Collection))
	ctx, span := tracing.StartStoreSpan(ctx, c.opts.Tracer, op, opts...)
	started := time.Now()

	return ctx, func(res Result[D], err error) {
		defer span.End()
		status := outcome(err)
		if c.opts.Metrics != nil {
			c.opts.Metrics.Observe(string(op), status, time.Since(started), res.RequestCharge)
		}
		tracing.RecordResult(span, res.StatusCode, res.RequestCharge, len(res.Documents))
		if status == "error" {
			tracing.RecordError(span, err)
			return
		}
		tracing.RecordSuccess(span)
	}
}

// outcome labels err for metrics. Misses and conflicts are answers, not failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStoreNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreConflict):
		return "conflict"
	default:
		return "error"
	}
}
