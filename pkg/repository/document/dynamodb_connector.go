package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nimburion/documentdb/pkg/specification"
	dynamostore "github.com/nimburion/documentdb/pkg/store/dynamodb"
)

// DynamoDBOptions names the table and its key attributes. Items are encoded with
// the documents' json tags, so expression fields are json field names.
type DynamoDBOptions struct {
	Table                 string
	PartitionKeyAttribute string
	IDAttribute           string
}

// DynamoDBConnector serves a DynamoDB table whose hash key is the partition key and
// whose range key is the document id. Request charge is the consumed capacity.
// Queries without a partition key fall back to a Scan, so their order is the
// table's scan order instead of (partition key, id).
type DynamoDBConnector[D Document] struct {
	adapter *dynamostore.Adapter
	opts    DynamoDBOptions
}

// Cosa fa: collega un repository a una tabella DynamoDB con scritture condizionali.
// Cosa NON fa: non crea la tabella; usare adapter.EnsureDocumentTable.
// Esempio minimo: conn, err := document.NewDynamoDBConnector[Person](adapter, document.DynamoDBOptions{Table: "people", PartitionKeyAttribute: "familyName"})
func NewDynamoDBConnector[D Document](adapter *dynamostore.Adapter, opts DynamoDBOptions) (*DynamoDBConnector[D], error) {
	if adapter == nil {
		return nil, errors.New("dynamodb adapter is required")
	}
	if opts.Table == "" {
		return nil, errors.New("table name is required")
	}
	if opts.PartitionKeyAttribute == "" {
		return nil, errors.New("partition key attribute is required")
	}
	if opts.IDAttribute == "" {
		opts.IDAttribute = "id"
	}
	return &DynamoDBConnector[D]{adapter: adapter, opts: opts}, nil
}

// Open implements Connector. DynamoDB calls are independent HTTP requests, so the
// connection holds no server-side state.
func (c *DynamoDBConnector[D]) Open(ctx context.Context) (Conn[D], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &dynamoConn[D]{connector: c}, nil
}

type dynamoConn[D Document] struct {
	connector *DynamoDBConnector[D]
}

func (d *dynamoConn[D]) Read(ctx context.Context, key Key) (Result[D], error) {
	out, err := d.connector.adapter.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:              aws.String(d.connector.opts.Table),
		Key:                    d.connector.key(key.PartitionKey, key.ID),
		ConsistentRead:         aws.Bool(true),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return Result[D]{}, err
	}
	charge := capacity(out.ConsumedCapacity)
	if out.Item == nil {
		return Result[D]{StatusCode: http.StatusNotFound, RequestCharge: charge}, ErrStoreNotFound
	}
	doc, err := d.connector.decode(out.Item)
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusOK, RequestCharge: charge, Documents: []D{doc}}, nil
}

func (d *dynamoConn[D]) Create(ctx context.Context, doc D) (Result[D], error) {
	charge, err := d.put(ctx, doc, expression.AttributeNotExists(expression.Name(d.connector.opts.IDAttribute)))
	if dynamostore.IsConditionFailed(err) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreConflict, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusCreated, RequestCharge: charge, Documents: []D{doc}}, nil
}

func (d *dynamoConn[D]) Replace(ctx context.Context, doc D) (Result[D], error) {
	charge, err := d.put(ctx, doc, expression.AttributeExists(expression.Name(d.connector.opts.IDAttribute)))
	if dynamostore.IsConditionFailed(err) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusOK, RequestCharge: charge, Documents: []D{doc}}, nil
}

func (d *dynamoConn[D]) put(ctx context.Context, doc D, cond expression.ConditionBuilder) (float64, error) {
	item, err := d.connector.encode(doc)
	if err != nil {
		return 0, err
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build condition: %w", err)
	}
	out, err := d.connector.adapter.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.connector.opts.Table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return 0, err
	}
	return capacity(out.ConsumedCapacity), nil
}

func (d *dynamoConn[D]) Delete(ctx context.Context, key Key) (Result[D], error) {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(d.connector.opts.IDAttribute))).
		Build()
	if err != nil {
		return Result[D]{}, fmt.Errorf("failed to build condition: %w", err)
	}
	out, err := d.connector.adapter.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(d.connector.opts.Table),
		Key:                      d.connector.key(key.PartitionKey, key.ID),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
		ReturnConsumedCapacity:   types.ReturnConsumedCapacityTotal,
	})
	if dynamostore.IsConditionFailed(err) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusNoContent, RequestCharge: capacity(out.ConsumedCapacity)}, nil
}

func (d *dynamoConn[D]) Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error) {
	filter, hasFilter, local := d.connector.specFilter(req.Specification)

	return scan(ctx, req, local, func(ctx context.Context, after Position, limit int) (batch[D], error) {
		var startKey map[string]types.AttributeValue
		if !after.IsZero() {
			startKey = d.connector.key(after.PartitionKey, after.ID)
		}

		var (
			items   []map[string]types.AttributeValue
			lastKey map[string]types.AttributeValue
			cc      *types.ConsumedCapacity
		)
		if req.PartitionKey != "" {
			builder := expression.NewBuilder().WithKeyCondition(
				expression.Key(d.connector.opts.PartitionKeyAttribute).Equal(expression.Value(req.PartitionKey)),
			)
			if hasFilter {
				builder = builder.WithFilter(filter)
			}
			expr, err := builder.Build()
			if err != nil {
				return batch[D]{}, fmt.Errorf("failed to build query: %w", err)
			}
			out, err := d.connector.adapter.Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(d.connector.opts.Table),
				KeyConditionExpression:    expr.KeyCondition(),
				FilterExpression:          expr.Filter(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ExclusiveStartKey:         startKey,
				Limit:                     aws.Int32(int32(limit)),
				ConsistentRead:            aws.Bool(true),
				ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
			})
			if err != nil {
				return batch[D]{}, err
			}
			items, lastKey, cc = out.Items, out.LastEvaluatedKey, out.ConsumedCapacity
		} else {
			in := &dynamodb.ScanInput{
				TableName:              aws.String(d.connector.opts.Table),
				ExclusiveStartKey:      startKey,
				Limit:                  aws.Int32(int32(limit)),
				ConsistentRead:         aws.Bool(true),
				ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
			}
			if hasFilter {
				expr, err := expression.NewBuilder().WithFilter(filter).Build()
				if err != nil {
					return batch[D]{}, fmt.Errorf("failed to build scan: %w", err)
				}
				in.FilterExpression = expr.Filter()
				in.ExpressionAttributeNames = expr.Names()
				in.ExpressionAttributeValues = expr.Values()
			}
			out, err := d.connector.adapter.Scan(ctx, in)
			if err != nil {
				return batch[D]{}, err
			}
			items, lastKey, cc = out.Items, out.LastEvaluatedKey, out.ConsumedCapacity
		}

		b := batch[D]{RequestCharge: capacity(cc), Done: len(lastKey) == 0, Next: after}
		for _, item := range items {
			doc, err := d.connector.decode(item)
			if err != nil {
				return batch[D]{}, err
			}
			b.Documents = append(b.Documents, doc)
		}
		if !b.Done {
			b.Next = d.connector.position(lastKey)
		}
		return b, nil
	})
}

func (d *dynamoConn[D]) Close(context.Context) error {
	return nil
}

// specFilter returns the pushed-down filter. hasFilter is false when every item
// matches; local is true when spec must run in-process.
func (c *DynamoDBConnector[D]) specFilter(spec specification.Specification[D]) (filter expression.ConditionBuilder, hasFilter, local bool) {
	expr, ok := specification.ExpressionOf(spec)
	if !ok {
		return filter, false, true
	}
	cond, always, err := DynamoCondition(expr)
	if err != nil {
		return filter, false, true
	}
	return cond, !always, false
}

func (c *DynamoDBConnector[D]) key(partitionKey, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		c.opts.PartitionKeyAttribute: &types.AttributeValueMemberS{Value: partitionKey},
		c.opts.IDAttribute:           &types.AttributeValueMemberS{Value: id},
	}
}

func (c *DynamoDBConnector[D]) position(key map[string]types.AttributeValue) Position {
	var p Position
	if v, ok := key[c.opts.PartitionKeyAttribute].(*types.AttributeValueMemberS); ok {
		p.PartitionKey = v.Value
	}
	if v, ok := key[c.opts.IDAttribute].(*types.AttributeValueMemberS); ok {
		p.ID = v.Value
	}
	return p
}

func (c *DynamoDBConnector[D]) encode(doc D) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMapWithOptions(doc, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	for k, v := range c.key(doc.PartitionKey(), doc.DocumentID()) {
		item[k] = v
	}
	return item, nil
}

func (c *DynamoDBConnector[D]) decode(item map[string]types.AttributeValue) (D, error) {
	var doc D
	err := attributevalue.UnmarshalMapWithOptions(item, &doc, func(o *attributevalue.DecoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return doc, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func capacity(cc *types.ConsumedCapacity) float64 {
	if cc == nil || cc.CapacityUnits == nil {
		return 0
	}
	return *cc.CapacityUnits
}
