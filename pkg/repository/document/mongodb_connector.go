package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nimburion/documentdb/pkg/specification"
	mongostore "github.com/nimburion/documentdb/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBOptions names the collection and the stored fields holding the document key.
type MongoDBOptions struct {
	Collection        string
	IDField           string
	PartitionKeyField string
}

// MongoDBConnector serves a MongoDB collection. Each connection runs inside its own
// client session. MongoDB reports no request units, so charges are always 0.
type MongoDBConnector[D Document] struct {
	adapter *mongostore.Adapter
	opts    MongoDBOptions
}

// Cosa fa: collega un repository a una collection MongoDB, una sessione per operazione.
// Cosa NON fa: non crea l'indice unico; usare adapter.EnsureDocumentIndex.
// Esempio minimo: conn, err := document.NewMongoDBConnector[Person](adapter, document.MongoDBOptions{Collection: "people", PartitionKeyField: "familyName"})
func NewMongoDBConnector[D Document](adapter *mongostore.Adapter, opts MongoDBOptions) (*MongoDBConnector[D], error) {
	if adapter == nil {
		return nil, errors.New("mongodb adapter is required")
	}
	if opts.Collection == "" {
		return nil, errors.New("collection name is required")
	}
	if opts.PartitionKeyField == "" {
		return nil, errors.New("partition key field is required")
	}
	if opts.IDField == "" {
		opts.IDField = "id"
	}
	return &MongoDBConnector[D]{adapter: adapter, opts: opts}, nil
}

// Open implements Connector.
func (c *MongoDBConnector[D]) Open(ctx context.Context) (Conn[D], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := c.adapter.StartSession()
	if err != nil {
		return nil, err
	}
	return &mongoConn[D]{connector: c, session: sess}, nil
}

type mongoConn[D Document] struct {
	connector *MongoDBConnector[D]
	session   mongo.Session
}

func (m *mongoConn[D]) scoped(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, m.session)
}

func (m *mongoConn[D]) keyFilter(key Key) bson.D {
	return bson.D{
		{Key: m.connector.opts.PartitionKeyField, Value: key.PartitionKey},
		{Key: m.connector.opts.IDField, Value: key.ID},
	}
}

func (m *mongoConn[D]) Read(ctx context.Context, key Key) (Result[D], error) {
	var doc D
	err := m.connector.adapter.FindOne(m.scoped(ctx), m.connector.opts.Collection, m.keyFilter(key), &doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Result[D]{StatusCode: http.StatusNotFound}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusOK, Documents: []D{doc}}, nil
}

func (m *mongoConn[D]) Create(ctx context.Context, doc D) (Result[D], error) {
	_, err := m.connector.adapter.InsertOne(m.scoped(ctx), m.connector.opts.Collection, doc)
	if mongostore.IsDuplicateKeyError(err) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreConflict, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusCreated, Documents: []D{doc}}, nil
}

func (m *mongoConn[D]) Replace(ctx context.Context, doc D) (Result[D], error) {
	res, err := m.connector.adapter.ReplaceOne(m.scoped(ctx), m.connector.opts.Collection, m.keyFilter(KeyOf(doc)), doc)
	if err != nil {
		return Result[D]{}, err
	}
	if res.MatchedCount == 0 {
		return Result[D]{}, ErrStoreNotFound
	}
	return Result[D]{StatusCode: http.StatusOK, Documents: []D{doc}}, nil
}

func (m *mongoConn[D]) Delete(ctx context.Context, key Key) (Result[D], error) {
	res, err := m.connector.adapter.DeleteOne(m.scoped(ctx), m.connector.opts.Collection, m.keyFilter(key))
	if err != nil {
		return Result[D]{}, err
	}
	if res.DeletedCount == 0 {
		return Result[D]{}, ErrStoreNotFound
	}
	return Result[D]{StatusCode: http.StatusNoContent}, nil
}

func (m *mongoConn[D]) Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error) {
	filter, local := m.connector.specFilter(req.Specification)

	return scan(ctx, req, local, func(ctx context.Context, after Position, limit int) (batch[D], error) {
		query := m.connector.pageFilter(req.PartitionKey, after, filter)

		var docs []D
		if err := m.connector.adapter.Find(m.scoped(ctx), m.connector.opts.Collection, query, m.connector.findOptions(limit), &docs); err != nil {
			return batch[D]{}, err
		}
		b := batch[D]{Documents: docs, Done: len(docs) < limit, Next: after}
		if n := len(docs); n > 0 {
			b.Next = Position{PartitionKey: docs[n-1].PartitionKey(), ID: docs[n-1].DocumentID()}
		}
		return b, nil
	})
}

func (m *mongoConn[D]) Close(ctx context.Context) error {
	m.session.EndSession(ctx)
	return nil
}

// specFilter returns the pushed-down filter, or local=true when spec must run in-process.
func (c *MongoDBConnector[D]) specFilter(spec specification.Specification[D]) (bson.D, bool) {
	expr, ok := specification.ExpressionOf(spec)
	if !ok {
		return nil, true
	}
	filter, err := MongoFilter(expr)
	if err != nil {
		return nil, true
	}
	return filter, false
}

// findOptions sorts a batch in key order.
func (c *MongoDBConnector[D]) findOptions(limit int) *mongooptions.FindOptions {
	return mongooptions.Find().
		SetSort(bson.D{{Key: c.opts.PartitionKeyField, Value: 1}, {Key: c.opts.IDField, Value: 1}}).
		SetLimit(int64(limit))
}

// pageFilter restricts filter to the partition and to keys after the scan position.
func (c *MongoDBConnector[D]) pageFilter(partitionKey string, after Position, filter bson.D) bson.D {
	pkField, idField := c.opts.PartitionKeyField, c.opts.IDField
	clauses := bson.A{}
	if partitionKey != "" {
		clauses = append(clauses, bson.D{{Key: pkField, Value: partitionKey}})
	}
	if !after.IsZero() {
		clauses = append(clauses, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: pkField, Value: bson.D{{Key: "$gt", Value: after.PartitionKey}}}},
			bson.D{{Key: pkField, Value: after.PartitionKey}, {Key: idField, Value: bson.D{{Key: "$gt", Value: after.ID}}}},
		}}})
	}
	if len(filter) > 0 {
		clauses = append(clauses, filter)
	}
	if len(clauses) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: clauses}}
}
