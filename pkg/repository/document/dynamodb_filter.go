package document

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/nimburion/documentdb/pkg/specification"
)

// maxDynamoInOperands is the DynamoDB limit on IN list size.
const maxDynamoInOperands = 100

// DynamoCondition translates expr into a DynamoDB filter condition. always is true
// when expr matches every item and no filter should be sent.
func DynamoCondition(expr specification.Expr) (cond expression.ConditionBuilder, always bool, err error) {
	if err := expr.Validate(); err != nil {
		return cond, false, err
	}
	return dynamoNode(expr)
}

func dynamoNode(e specification.Expr) (expression.ConditionBuilder, bool, error) {
	var none expression.ConditionBuilder
	name := expression.Name(e.Field)

	switch e.Op {
	case specification.OpAll:
		return none, true, nil
	case specification.OpAnd:
		conds := make([]expression.ConditionBuilder, 0, len(e.Operands))
		for _, operand := range e.Operands {
			c, always, err := dynamoNode(operand)
			if err != nil {
				return none, false, err
			}
			if !always {
				conds = append(conds, c)
			}
		}
		switch len(conds) {
		case 0:
			return none, true, nil
		case 1:
			return conds[0], false, nil
		default:
			return expression.And(conds[0], conds[1], conds[2:]...), false, nil
		}
	case specification.OpOr:
		conds := make([]expression.ConditionBuilder, 0, len(e.Operands))
		for _, operand := range e.Operands {
			c, always, err := dynamoNode(operand)
			if err != nil {
				return none, false, err
			}
			if always {
				return none, true, nil
			}
			conds = append(conds, c)
		}
		if len(conds) == 1 {
			return conds[0], false, nil
		}
		return expression.Or(conds[0], conds[1], conds[2:]...), false, nil
	case specification.OpNot:
		inner, always, err := dynamoNode(e.Operands[0])
		if err != nil {
			return none, false, err
		}
		if always {
			return none, false, fmt.Errorf("%w: NOT(TRUE) has no dynamodb filter", ErrUnsupportedExpression)
		}
		return expression.Not(inner), false, nil
	case specification.OpEq:
		return name.Equal(expression.Value(e.Value)), false, nil
	case specification.OpNe:
		return expression.Or(expression.AttributeNotExists(name), name.NotEqual(expression.Value(e.Value))), false, nil
	case specification.OpGt:
		return name.GreaterThan(expression.Value(e.Value)), false, nil
	case specification.OpGte:
		return name.GreaterThanEqual(expression.Value(e.Value)), false, nil
	case specification.OpLt:
		return name.LessThan(expression.Value(e.Value)), false, nil
	case specification.OpLte:
		return name.LessThanEqual(expression.Value(e.Value)), false, nil
	case specification.OpIn:
		if len(e.Values) > maxDynamoInOperands {
			return none, false, fmt.Errorf("%w: IN with %d values", ErrUnsupportedExpression, len(e.Values))
		}
		if len(e.Values) == 1 {
			return name.Equal(expression.Value(e.Values[0])), false, nil
		}
		rest := make([]expression.OperandBuilder, 0, len(e.Values)-1)
		for _, v := range e.Values[1:] {
			rest = append(rest, expression.Value(v))
		}
		return name.In(expression.Value(e.Values[0]), rest...), false, nil
	case specification.OpExists:
		return expression.And(
			expression.AttributeExists(name),
			expression.Not(expression.AttributeType(name, expression.Null)),
		), false, nil
	case specification.OpPrefix:
		return name.BeginsWith(e.Value.(string)), false, nil
	case specification.OpContains:
		return expression.And(
			expression.AttributeType(name, expression.String),
			name.Contains(e.Value.(string)),
		), false, nil
	default:
		return none, false, fmt.Errorf("%w: dynamodb cannot evaluate %q", ErrUnsupportedExpression, e.Op)
	}
}
