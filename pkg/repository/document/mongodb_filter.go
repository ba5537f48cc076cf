package document

import (
	"fmt"
	"regexp"

	"github.com/nimburion/documentdb/pkg/specification"
	"go.mongodb.org/mongo-driver/bson"
)

// MongoFilter translates expr into a MongoDB query filter over the stored field names.
// NOT is expressed with $nor so documents missing a field behave as in-process.
func MongoFilter(expr specification.Expr) (bson.D, error) {
	if err := expr.Validate(); err != nil {
		return nil, err
	}
	return mongoNode(expr)
}

func mongoNode(e specification.Expr) (bson.D, error) {
	switch e.Op {
	case specification.OpAll:
		return bson.D{}, nil
	case specification.OpAnd, specification.OpOr:
		parts := make(bson.A, 0, len(e.Operands))
		for _, operand := range e.Operands {
			part, err := mongoNode(operand)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		op := "$and"
		if e.Op == specification.OpOr {
			op = "$or"
		}
		return bson.D{{Key: op, Value: parts}}, nil
	case specification.OpNot:
		inner, err := mongoNode(e.Operands[0])
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
	case specification.OpEq:
		return mongoField(e.Field, "$eq", e.Value), nil
	case specification.OpNe:
		return mongoField(e.Field, "$ne", e.Value), nil
	case specification.OpGt:
		return mongoField(e.Field, "$gt", e.Value), nil
	case specification.OpGte:
		return mongoField(e.Field, "$gte", e.Value), nil
	case specification.OpLt:
		return mongoField(e.Field, "$lt", e.Value), nil
	case specification.OpLte:
		return mongoField(e.Field, "$lte", e.Value), nil
	case specification.OpIn:
		return mongoField(e.Field, "$in", bson.A(e.Values)), nil
	case specification.OpExists:
		return bson.D{{Key: e.Field, Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}}}, nil
	case specification.OpPrefix:
		return mongoField(e.Field, "$regex", "^"+regexp.QuoteMeta(e.Value.(string))), nil
	case specification.OpContains:
		return mongoField(e.Field, "$regex", regexp.QuoteMeta(e.Value.(string))), nil
	default:
		return nil, fmt.Errorf("%w: mongodb cannot evaluate %q", ErrUnsupportedExpression, e.Op)
	}
}

func mongoField(name, op string, value any) bson.D {
	return bson.D{{Key: name, Value: bson.D{{Key: op, Value: value}}}}
}
