package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/nimburion/documentdb/pkg/store/memory"
)

// MemoryConnector serves a container of the in-memory store. Every document read,
// written or scanned costs one request unit.
type MemoryConnector[D Document] struct {
	adapter   *memory.Adapter
	container string
	open      atomic.Int64
}

// Cosa fa: collega un repository a un container dello store in memoria.
// Cosa NON fa: non traduce le specification, le valuta in-process.
// Esempio minimo: conn, err := document.NewMemoryConnector[Person](adapter, "people")
func NewMemoryConnector[D Document](adapter *memory.Adapter, container string) (*MemoryConnector[D], error) {
	if adapter == nil {
		return nil, errors.New("memory adapter is required")
	}
	if container == "" {
		return nil, errors.New("container name is required")
	}
	return &MemoryConnector[D]{adapter: adapter, container: container}, nil
}

// Open implements Connector.
func (c *MemoryConnector[D]) Open(ctx context.Context) (Conn[D], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.open.Add(1)
	return &memoryConn[D]{connector: c}, nil
}

// OpenConnections is the number of connections opened and not yet closed.
func (c *MemoryConnector[D]) OpenConnections() int64 {
	return c.open.Load()
}

type memoryConn[D Document] struct {
	connector *MemoryConnector[D]
	closed    atomic.Bool
}

func (m *memoryConn[D]) Read(ctx context.Context, key Key) (Result[D], error) {
	item, err := m.connector.adapter.Get(ctx, m.connector.container, key.PartitionKey, key.ID)
	if errors.Is(err, memory.ErrNotFound) {
		return Result[D]{StatusCode: http.StatusNotFound}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	doc, err := decodeJSON[D](item.Body)
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusOK, RequestCharge: 1, Documents: []D{doc}}, nil
}

func (m *memoryConn[D]) Create(ctx context.Context, doc D) (Result[D], error) {
	item, err := memoryItem(doc)
	if err != nil {
		return Result[D]{}, err
	}
	err = m.connector.adapter.Insert(ctx, m.connector.container, item)
	if errors.Is(err, memory.ErrConflict) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreConflict, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusCreated, RequestCharge: 1, Documents: []D{doc}}, nil
}

func (m *memoryConn[D]) Replace(ctx context.Context, doc D) (Result[D], error) {
	item, err := memoryItem(doc)
	if err != nil {
		return Result[D]{}, err
	}
	err = m.connector.adapter.Replace(ctx, m.connector.container, item)
	if errors.Is(err, memory.ErrNotFound) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusOK, RequestCharge: 1, Documents: []D{doc}}, nil
}

func (m *memoryConn[D]) Delete(ctx context.Context, key Key) (Result[D], error) {
	err := m.connector.adapter.Delete(ctx, m.connector.container, key.PartitionKey, key.ID)
	if errors.Is(err, memory.ErrNotFound) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusNoContent, RequestCharge: 1}, nil
}

func (m *memoryConn[D]) Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error) {
	return scan(ctx, req, true, func(ctx context.Context, after Position, limit int) (batch[D], error) {
		out, err := m.connector.adapter.Scan(ctx, m.connector.container, memory.ScanInput{
			PartitionKey:      req.PartitionKey,
			AfterPartitionKey: after.PartitionKey,
			AfterID:           after.ID,
			Limit:             limit,
		})
		if err != nil {
			return batch[D]{}, err
		}
		b := batch[D]{Done: out.Done, RequestCharge: float64(len(out.Items)), Next: after}
		for _, item := range out.Items {
			doc, err := decodeJSON[D](item.Body)
			if err != nil {
				return batch[D]{}, err
			}
			b.Documents = append(b.Documents, doc)
			b.Next = Position{PartitionKey: item.PartitionKey, ID: item.ID}
		}
		return b, nil
	})
}

func (m *memoryConn[D]) Close(context.Context) error {
	if m.closed.CompareAndSwap(false, true) {
		m.connector.open.Add(-1)
	}
	return nil
}

func memoryItem(doc Document) (memory.Item, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return memory.Item{}, fmt.Errorf("failed to encode document: %w", err)
	}
	return memory.Item{PartitionKey: doc.PartitionKey(), ID: doc.DocumentID(), Body: body}, nil
}

func decodeJSON[D any](body []byte) (D, error) {
	var doc D
	if err := json.Unmarshal(body, &doc); err != nil {
		return doc, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
