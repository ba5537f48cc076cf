package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/specification"
)

// QueryRepository is the read side of a document repository.
type QueryRepository[D Document, E any] interface {
	// GetByID reads one document. A missing document is a 404 response, not an error.
	GetByID(ctx context.Context, partitionKey, id string) (*Response[D, E], error)
	// GetBySpecification returns one page of the documents in the partition that
	// satisfy spec. An empty partition key queries every partition.
	GetBySpecification(ctx context.Context, spec specification.Specification[D], partitionKey string, opts ...PageOption) (*Response[D, E], error)
	// GetPaginatedBySpecification is GetBySpecification returning a continuation token.
	GetPaginatedBySpecification(ctx context.Context, spec specification.Specification[D], partitionKey string, page Pagination) (*Page[D, E], error)
}

// DocumentQueryRepository implements QueryRepository over a Connector.
type DocumentQueryRepository[D Document, E any] struct {
	connector Connector[D]
	mapper    Mapper[D, E]
	opts      options
	log       logger.Logger
}

// NewQueryRepository creates a query repository reading through connector and
// projecting documents with mapper.
func NewQueryRepository[D Document, E any](connector Connector[D], mapper Mapper[D, E], opts ...Option) (*DocumentQueryRepository[D, E], error) {
	if connector == nil {
		return nil, errors.New("document connector is required")
	}
	if mapper == nil {
		return nil, errors.New("document mapper is required")
	}
	o := newOptions(opts)
	return &DocumentQueryRepository[D, E]{
		connector: connector,
		mapper:    mapper,
		opts:      o,
		log:       o.log.With("component", "document_query_repository", "container", o.container),
	}, nil
}

// GetByID implements QueryRepository.
func (r *DocumentQueryRepository[D, E]) GetByID(ctx context.Context, partitionKey, id string) (*Response[D, E], error) {
	key := Key{ID: id, PartitionKey: partitionKey}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	conn, err := r.connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	defer closeConn(ctx, conn, r.log)

	res, err := conn.Read(ctx, key)
	if errors.Is(err, ErrStoreNotFound) {
		r.log.Debug("document not found", "id", id, "partition_key", partitionKey)
		return NotFoundResponse[D, E](res.RequestCharge), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", key, err)
	}

	resp, err := NewResponse(statusOr(res.StatusCode, http.StatusOK), res.RequestCharge, res.Documents, r.mapper)
	if err != nil {
		return nil, err
	}
	r.log.Debug("document read", "id", id, "partition_key", partitionKey, "request_charge", resp.RequestCharge())
	return resp, nil
}

// GetBySpecification implements QueryRepository. Page defaults to 1 and page size to
// DefaultPageSize.
func (r *DocumentQueryRepository[D, E]) GetBySpecification(
	ctx context.Context,
	spec specification.Specification[D],
	partitionKey string,
	opts ...PageOption,
) (*Response[D, E], error) {
	page, err := r.GetPaginatedBySpecification(ctx, spec, partitionKey, NewPagination(opts...))
	if err != nil {
		return nil, err
	}
	return page.Response, nil
}

// GetPaginatedBySpecification implements QueryRepository.
func (r *DocumentQueryRepository[D, E]) GetPaginatedBySpecification(
	ctx context.Context,
	spec specification.Specification[D],
	partitionKey string,
	page Pagination,
) (*Page[D, E], error) {
	page = page.Normalize()
	if spec == nil {
		spec = specification.All[D]()
	}
	maxItemCount := r.opts.maxItemCount
	if maxItemCount <= 0 {
		maxItemCount = page.Limit()
	}

	conn, err := r.connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	defer closeConn(ctx, conn, r.log)

	res, err := conn.Query(ctx, QueryRequest[D]{
		PartitionKey:      partitionKey,
		Specification:     spec,
		Skip:              page.Offset(),
		Take:              page.Limit(),
		MaxItemCount:      maxItemCount,
		ContinuationToken: page.ContinuationToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	resp, err := NewResponse(statusOr(res.StatusCode, http.StatusOK), res.RequestCharge, res.Documents, r.mapper)
	if err != nil {
		return nil, err
	}
	r.log.Debug("documents queried",
		"specification", describe(spec),
		"partition_key", partitionKey,
		"page", page.Page,
		"page_size", page.PageSize,
		"count", resp.Len(),
		"request_charge", resp.RequestCharge(),
	)
	return &Page[D, E]{Response: resp, ContinuationToken: res.ContinuationToken}, nil
}

func closeConn[D Document](ctx context.Context, conn Conn[D], log logger.Logger) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		log.Warn("failed to release document store connection", "error", err)
	}
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}
	return status
}

func describe[D any](spec specification.Specification[D]) string {
	if s, ok := spec.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", spec)
}
