package document

import (
	"context"
	"errors"
	"time"

	"github.com/nimburion/documentdb/pkg/resilience"
)

// IsStoreFailure reports whether err means the store itself misbehaved. Missing
// keys, conflicts and rejected queries are answers, not failures.
func IsStoreFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrStoreNotFound),
		errors.Is(err, ErrStoreConflict),
		errors.Is(err, ErrInvalidContinuationToken),
		errors.Is(err, ErrUnsupportedExpression):
		return false
	}
	return true
}

// NewStoreBreaker returns a breaker that only counts IsStoreFailure errors.
func NewStoreBreaker(maxFailures int, resetTimeout time.Duration) *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		MaxFailures:  maxFailures,
		ResetTimeout: resetTimeout,
		IsFailure:    IsStoreFailure,
	})
}

// Guard routes every Open and store call of connector through breaker. While the
// circuit is open calls fail with resilience.ErrCircuitOpen without reaching the
// store. Close is never guarded.
func Guard[D Document](connector Connector[D], breaker *resilience.Breaker) Connector[D] {
	return ConnectorFunc[D](func(ctx context.Context) (Conn[D], error) {
		var conn Conn[D]
		err := breaker.Do(ctx, func(ctx context.Context) error {
			var err error
			conn, err = connector.Open(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		return &guardedConn[D]{next: conn, breaker: breaker}, nil
	})
}

type guardedConn[D Document] struct {
	next    Conn[D]
	breaker *resilience.Breaker
}

func (c *guardedConn[D]) call(ctx context.Context, fn func(ctx context.Context) (Result[D], error)) (Result[D], error) {
	var res Result[D]
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = fn(ctx)
		return err
	})
	return res, err
}

func (c *guardedConn[D]) Read(ctx context.Context, key Key) (Result[D], error) {
	return c.call(ctx, func(ctx context.Context) (Result[D], error) { return c.next.Read(ctx, key) })
}

func (c *guardedConn[D]) Create(ctx context.Context, doc D) (Result[D], error) {
	return c.call(ctx, func(ctx context.Context) (Result[D], error) { return c.next.Create(ctx, doc) })
}

func (c *guardedConn[D]) Replace(ctx context.Context, doc D) (Result[D], error) {
	return c.call(ctx, func(ctx context.Context) (Result[D], error) { return c.next.Replace(ctx, doc) })
}

func (c *guardedConn[D]) Delete(ctx context.Context, key Key) (Result[D], error) {
	return c.call(ctx, func(ctx context.Context) (Result[D], error) { return c.next.Delete(ctx, key) })
}

func (c *guardedConn[D]) Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error) {
	var res QueryResult[D]
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.next.Query(ctx, req)
		return err
	})
	return res, err
}

func (c *guardedConn[D]) Close(ctx context.Context) error {
	return c.next.Close(ctx)
}
