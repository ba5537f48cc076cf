package document

import (
	"context"
	"fmt"

	"github.com/nimburion/documentdb/pkg/store"
	dynamostore "github.com/nimburion/documentdb/pkg/store/dynamodb"
	"github.com/nimburion/documentdb/pkg/store/memory"
	mongostore "github.com/nimburion/documentdb/pkg/store/mongodb"
	pgstore "github.com/nimburion/documentdb/pkg/store/postgres"
)

// ConnectorOptions locate the documents inside whichever store an adapter serves.
type ConnectorOptions struct {
	// Container is the collection, table or memory namespace.
	Container string
	// PartitionKeyField and IDField are the stored field names of the document key.
	// PostgreSQL keeps the key in dedicated columns and ignores them.
	PartitionKeyField string
	IDField           string
}

// Cosa fa: costruisce il Connector adatto al tipo concreto dell'adapter.
// Cosa NON fa: non apre connessioni; la prima avviene alla prima operazione.
// Esempio minimo: conn, err := document.NewConnector[Person](adapter, document.ConnectorOptions{Container: "people", PartitionKeyField: "familyName"})
func NewConnector[D Document](adapter store.Adapter, opts ConnectorOptions) (Connector[D], error) {
	switch a := adapter.(type) {
	case *memory.Adapter:
		return NewMemoryConnector[D](a, opts.Container)
	case *mongostore.Adapter:
		return NewMongoDBConnector[D](a, MongoDBOptions{
			Collection:        opts.Container,
			IDField:           opts.IDField,
			PartitionKeyField: opts.PartitionKeyField,
		})
	case *dynamostore.Adapter:
		return NewDynamoDBConnector[D](a, DynamoDBOptions{
			Table:                 opts.Container,
			PartitionKeyAttribute: opts.PartitionKeyField,
			IDAttribute:           opts.IDField,
		})
	case *pgstore.Adapter:
		return NewPostgresConnector[D](a, opts.Container)
	default:
		return nil, fmt.Errorf("no document connector for adapter %T", adapter)
	}
}

// EnsureContainer creates the index or table the connector relies on. It is a
// no-op for the memory store and safe to repeat.
func EnsureContainer(ctx context.Context, adapter store.Adapter, opts ConnectorOptions) error {
	idField := opts.IDField
	if idField == "" {
		idField = "id"
	}
	switch a := adapter.(type) {
	case *memory.Adapter:
		return nil
	case *mongostore.Adapter:
		return a.EnsureDocumentIndex(ctx, opts.Container, opts.PartitionKeyField, idField)
	case *dynamostore.Adapter:
		return a.EnsureDocumentTable(ctx, opts.Container, opts.PartitionKeyField, idField)
	case *pgstore.Adapter:
		return a.EnsureDocumentTable(ctx, opts.Container)
	default:
		return fmt.Errorf("cannot prepare container for adapter %T", adapter)
	}
}

// SystemOf names the store behind adapter the way db.system span attributes do.
func SystemOf(adapter store.Adapter) string {
	switch adapter.(type) {
	case *memory.Adapter:
		return "memory"
	case *mongostore.Adapter:
		return "mongodb"
	case *dynamostore.Adapter:
		return "dynamodb"
	case *pgstore.Adapter:
		return "postgresql"
	default:
		return "other"
	}
}
