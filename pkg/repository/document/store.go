package document

import (
	"context"

	"github.com/nimburion/documentdb/pkg/specification"
)

// Connector opens a scoped connection to the container backing a repository.
// Repositories open one connection per operation and close it on every exit path.
type Connector[D Document] interface {
	Open(ctx context.Context) (Conn[D], error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc[D Document] func(ctx context.Context) (Conn[D], error)

// Open calls f(ctx).
func (f ConnectorFunc[D]) Open(ctx context.Context) (Conn[D], error) {
	return f(ctx)
}

// Conn is a scoped connection to one container.
//
// Read, Replace and Delete return an error wrapping ErrStoreNotFound when the key is
// absent. Create returns an error wrapping ErrStoreConflict when the store rejects a
// duplicate id.
type Conn[D Document] interface {
	Read(ctx context.Context, key Key) (Result[D], error)
	Create(ctx context.Context, doc D) (Result[D], error)
	Replace(ctx context.Context, doc D) (Result[D], error)
	Delete(ctx context.Context, key Key) (Result[D], error)
	Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error)
	Close(ctx context.Context) error
}

// Result is what a connection reports for a single store call.
type Result[D Document] struct {
	StatusCode    int
	RequestCharge float64
	Documents     []D
}

// QueryRequest is a specification query against one partition, or against every
// partition when PartitionKey is empty.
type QueryRequest[D Document] struct {
	PartitionKey  string
	Specification specification.Specification[D]
	// Skip matching documents before collecting; ignored when ContinuationToken is set.
	Skip int
	// Take at most this many documents; 0 means no limit.
	Take int
	// MaxItemCount caps the documents fetched per store round trip.
	MaxItemCount      int
	ContinuationToken string
}

// QueryResult is a query Result plus the token resuming after its last document.
type QueryResult[D Document] struct {
	Result[D]
	ContinuationToken string
}
