// Package document provides generic, store-agnostic document repositories.
//
// A repository is split into a query side (point reads and specification
// queries) and a command side (add, update, delete). Both speak to the
// backing store through a Connector, so the same repository runs against
// MongoDB, DynamoDB, PostgreSQL JSONB or the in-memory store. Reads return a
// Response envelope carrying the HTTP-like status of the store call, the
// request charge it reported, the raw documents and their mapped entities.
package document

import (
	"errors"
	"fmt"
)

// Document is the contract persisted types satisfy: a string identifier that is
// unique within its partition, and the partition key value the store shards on.
type Document interface {
	DocumentID() string
	PartitionKey() string
}

// Key addresses a single document.
type Key struct {
	ID           string
	PartitionKey string
}

// KeyOf returns the key of doc.
func KeyOf(doc Document) Key {
	return Key{ID: doc.DocumentID(), PartitionKey: doc.PartitionKey()}
}

// Validate reports whether both key components are present.
func (k Key) Validate() error {
	if k.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidKey)
	}
	if k.PartitionKey == "" {
		return fmt.Errorf("%w: partition key is required", ErrInvalidKey)
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("id=%s partition_key=%s", k.ID, k.PartitionKey)
}

// ErrInvalidKey is returned when a point operation is missing its id or partition key.
var ErrInvalidKey = errors.New("invalid document key")
