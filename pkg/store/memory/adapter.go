// Package memory is an in-process document store. It keeps JSON encoded items per
// container, keyed by partition key and id, and is used for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nimburion/documentdb/pkg/observability/logger"
)

var (
	// ErrNotFound is returned when no item is stored under a key.
	ErrNotFound = errors.New("memory store: item not found")
	// ErrConflict is returned when inserting a key that is already stored.
	ErrConflict = errors.New("memory store: item already exists")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("memory store: adapter is closed")
)

// Item is a stored document body addressed by partition key and id.
type Item struct {
	PartitionKey string
	ID           string
	Body         []byte
}

type itemKey struct {
	pk string
	id string
}

// ScanInput selects items of a container in ascending (partition key, id) order.
type ScanInput struct {
	// PartitionKey restricts the scan to one partition; empty scans every partition.
	PartitionKey string
	// AfterPartitionKey and AfterID exclude every item up to and including that key.
	AfterPartitionKey string
	AfterID           string
	// Limit caps the returned items; 0 returns all of them.
	Limit int
}

// ScanOutput is one page of a scan.
type ScanOutput struct {
	Items []Item
	// Done is true when no item follows the last returned one.
	Done bool
}

// Adapter is a concurrency-safe in-memory store.
type Adapter struct {
	mu         sync.RWMutex
	containers map[string]map[itemKey][]byte
	closed     bool
	logger     logger.Logger
}

// Cosa fa: crea uno store documentale in memoria, vuoto.
// Cosa NON fa: non persiste nulla oltre la vita del processo.
// Esempio minimo: adapter := memory.NewAdapter(log)
func NewAdapter(log logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNop()
	}
	log.Info("in-memory document store ready")
	return &Adapter{
		containers: map[string]map[itemKey][]byte{},
		logger:     log,
	}
}

// Get returns the item stored under (partitionKey, id).
func (a *Adapter) Get(ctx context.Context, container, partitionKey, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return Item{}, ErrClosed
	}
	body, ok := a.containers[container][itemKey{pk: partitionKey, id: id}]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, container, partitionKey, id)
	}
	return Item{PartitionKey: partitionKey, ID: id, Body: clone(body)}, nil
}

// Insert stores item, failing with ErrConflict if its key is taken.
func (a *Adapter) Insert(ctx context.Context, container string, item Item) error {
	return a.write(ctx, container, item, func(exists bool) error {
		if exists {
			return fmt.Errorf("%w: %s/%s/%s", ErrConflict, container, item.PartitionKey, item.ID)
		}
		return nil
	})
}

// Replace overwrites item, failing with ErrNotFound if its key is not stored.
func (a *Adapter) Replace(ctx context.Context, container string, item Item) error {
	return a.write(ctx, container, item, func(exists bool) error {
		if !exists {
			return fmt.Errorf("%w: %s/%s/%s", ErrNotFound, container, item.PartitionKey, item.ID)
		}
		return nil
	})
}

// Upsert stores item whether or not its key is taken.
func (a *Adapter) Upsert(ctx context.Context, container string, item Item) error {
	return a.write(ctx, container, item, func(bool) error { return nil })
}

func (a *Adapter) write(ctx context.Context, container string, item Item, check func(exists bool) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	items, ok := a.containers[container]
	if !ok {
		items = map[itemKey][]byte{}
		a.containers[container] = items
	}
	k := itemKey{pk: item.PartitionKey, id: item.ID}
	_, exists := items[k]
	if err := check(exists); err != nil {
		return err
	}
	items[k] = clone(item.Body)
	return nil
}

// Delete removes the item stored under (partitionKey, id).
func (a *Adapter) Delete(ctx context.Context, container, partitionKey, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	k := itemKey{pk: partitionKey, id: id}
	if _, ok := a.containers[container][k]; !ok {
		return fmt.Errorf("%w: %s/%s/%s", ErrNotFound, container, partitionKey, id)
	}
	delete(a.containers[container], k)
	return nil
}

// Scan returns items of container in ascending (partition key, id) order.
func (a *Adapter) Scan(ctx context.Context, container string, in ScanInput) (ScanOutput, error) {
	if err := ctx.Err(); err != nil {
		return ScanOutput{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ScanOutput{}, ErrClosed
	}

	keys := make([]itemKey, 0, len(a.containers[container]))
	for k := range a.containers[container] {
		if in.PartitionKey != "" && k.pk != in.PartitionKey {
			continue
		}
		if !after(k, in.AfterPartitionKey, in.AfterID) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pk != keys[j].pk {
			return keys[i].pk < keys[j].pk
		}
		return keys[i].id < keys[j].id
	})

	out := ScanOutput{Done: true}
	if in.Limit > 0 && len(keys) > in.Limit {
		keys = keys[:in.Limit]
		out.Done = false
	}
	out.Items = make([]Item, 0, len(keys))
	for _, k := range keys {
		out.Items = append(out.Items, Item{PartitionKey: k.pk, ID: k.id, Body: clone(a.containers[container][k])})
	}
	return out, nil
}

// Len returns the number of items stored in container.
func (a *Adapter) Len(container string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.containers[container])
}

// HealthCheck fails once the adapter is closed.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fmt.Errorf("memory store health check failed: %w", ErrClosed)
	}
	return ctx.Err()
}

// Close drops every stored item. It is idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.containers = nil
	a.logger.Info("in-memory document store closed")
	return nil
}

func after(k itemKey, pk, id string) bool {
	if pk == "" && id == "" {
		return true
	}
	if k.pk != pk {
		return k.pk > pk
	}
	return k.id > id
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
