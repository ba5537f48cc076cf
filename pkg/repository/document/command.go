package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nimburion/documentdb/pkg/observability/logger"
)

// CommandRepository is the write side of a document repository.
type CommandRepository[D Document, E any] interface {
	// Add creates doc. It fails with ErrDocumentAlreadyExists when the id is taken
	// in the document's partition.
	Add(ctx context.Context, doc D) (*Response[D, E], error)
	// Update replaces the stored document with doc. It fails with ErrDocumentNotFound
	// when nothing is stored under doc's key.
	Update(ctx context.Context, doc D) (*Response[D, E], error)
	// Delete removes the document. It fails with ErrDocumentNotFound when nothing is
	// stored under the key.
	Delete(ctx context.Context, id, partitionKey string) (*Response[D, E], error)
}

// DocumentCommandRepository implements CommandRepository over a Connector. Each
// command first probes for the target with a point read; the probe and the write are
// separate store calls, so concurrent writers are arbitrated by the store itself.
type DocumentCommandRepository[D Document, E any] struct {
	connector Connector[D]
	mapper    Mapper[D, E]
	queries   QueryRepository[D, E]
	log       logger.Logger
}

// NewCommandRepository creates a command repository. The existence probe runs
// through queries, which is normally the query repository over the same connector.
func NewCommandRepository[D Document, E any](
	connector Connector[D],
	mapper Mapper[D, E],
	queries QueryRepository[D, E],
	opts ...Option,
) (*DocumentCommandRepository[D, E], error) {
	if connector == nil {
		return nil, errors.New("document connector is required")
	}
	if mapper == nil {
		return nil, errors.New("document mapper is required")
	}
	if queries == nil {
		return nil, errors.New("document query repository is required")
	}
	o := newOptions(opts)
	return &DocumentCommandRepository[D, E]{
		connector: connector,
		mapper:    mapper,
		queries:   queries,
		log:       o.log.With("component", "document_command_repository", "container", o.container),
	}, nil
}

// Add implements CommandRepository.
func (r *DocumentCommandRepository[D, E]) Add(ctx context.Context, doc D) (*Response[D, E], error) {
	key := KeyOf(doc)
	exists, err := r.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		r.log.Debug("document already exists", "id", key.ID, "partition_key", key.PartitionKey)
		return nil, &DocumentError{Op: OpAdd, Key: key, Document: doc, Err: ErrDocumentAlreadyExists}
	}

	return r.write(ctx, OpAdd, key, http.StatusCreated, func(conn Conn[D]) (Result[D], error) {
		return conn.Create(ctx, doc)
	})
}

// Update implements CommandRepository.
func (r *DocumentCommandRepository[D, E]) Update(ctx context.Context, doc D) (*Response[D, E], error) {
	key := KeyOf(doc)
	exists, err := r.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		r.log.Debug("document does not exist", "op", OpUpdate, "id", key.ID, "partition_key", key.PartitionKey)
		return nil, &DocumentError{Op: OpUpdate, Key: key, Document: doc, Err: ErrDocumentNotFound}
	}

	return r.write(ctx, OpUpdate, key, http.StatusOK, func(conn Conn[D]) (Result[D], error) {
		return conn.Replace(ctx, doc)
	})
}

// Delete implements CommandRepository.
func (r *DocumentCommandRepository[D, E]) Delete(ctx context.Context, id, partitionKey string) (*Response[D, E], error) {
	key := Key{ID: id, PartitionKey: partitionKey}
	exists, err := r.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		r.log.Debug("document does not exist", "op", OpDelete, "id", key.ID, "partition_key", key.PartitionKey)
		return nil, &DocumentError{Op: OpDelete, Key: key, Err: ErrDocumentNotFound}
	}

	return r.write(ctx, OpDelete, key, http.StatusNoContent, func(conn Conn[D]) (Result[D], error) {
		return conn.Delete(ctx, key)
	})
}

func (r *DocumentCommandRepository[D, E]) exists(ctx context.Context, key Key) (bool, error) {
	resp, err := r.queries.GetByID(ctx, key.PartitionKey, key.ID)
	if err != nil {
		return false, fmt.Errorf("failed to probe document %s: %w", key, err)
	}
	return resp.Found(), nil
}

func (r *DocumentCommandRepository[D, E]) write(
	ctx context.Context,
	op string,
	key Key,
	status int,
	call func(Conn[D]) (Result[D], error),
) (*Response[D, E], error) {
	conn, err := r.connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	defer closeConn(ctx, conn, r.log)

	res, err := call(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to %s document %s: %w", op, key, err)
	}

	resp, err := NewResponse(statusOr(res.StatusCode, status), res.RequestCharge, res.Documents, r.mapper)
	if err != nil {
		return nil, err
	}
	r.log.Info("document written", "op", op, "id", key.ID, "partition_key", key.PartitionKey, "request_charge", resp.RequestCharge())
	return resp, nil
}
