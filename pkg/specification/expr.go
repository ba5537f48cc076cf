// Package specification provides composable predicates over typed candidates.
//
// A predicate is kept as data: an Expr tree describes field comparisons and
// boolean combinators, so the same predicate can be interpreted in-process
// (Compile) or translated by a store into its native filter syntax.
package specification

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Op identifies the kind of an expression node.
type Op string

// Expression operators
const (
	OpAll      Op = "all"
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpNot      Op = "not"
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpExists   Op = "exists"
	OpPrefix   Op = "prefix"
	OpContains Op = "contains"
)

// ErrInvalidExpression is returned by Validate for malformed trees.
var ErrInvalidExpression = errors.New("invalid expression")

// Expr is a node of a predicate tree.
// Comparison nodes use Field and Value (or Values for OpIn); combinators use Operands.
type Expr struct {
	Op       Op
	Field    string
	Value    any
	Values   []any
	Operands []Expr
}

// True returns the expression satisfied by every candidate.
func True() Expr { return Expr{Op: OpAll} }

// Eq matches when field equals value.
func Eq(field string, value any) Expr { return Expr{Op: OpEq, Field: field, Value: value} }

// Ne matches when field differs from value or is absent.
func Ne(field string, value any) Expr { return Expr{Op: OpNe, Field: field, Value: value} }

// Gt matches when field is greater than value.
func Gt(field string, value any) Expr { return Expr{Op: OpGt, Field: field, Value: value} }

// Gte matches when field is greater than or equal to value.
func Gte(field string, value any) Expr { return Expr{Op: OpGte, Field: field, Value: value} }

// Lt matches when field is less than value.
func Lt(field string, value any) Expr { return Expr{Op: OpLt, Field: field, Value: value} }

// Lte matches when field is less than or equal to value.
func Lte(field string, value any) Expr { return Expr{Op: OpLte, Field: field, Value: value} }

// In matches when field equals any of values.
func In(field string, values ...any) Expr {
	return Expr{Op: OpIn, Field: field, Values: append([]any(nil), values...)}
}

// Exists matches when field is present on the candidate.
func Exists(field string) Expr { return Expr{Op: OpExists, Field: field} }

// HasPrefix matches string fields starting with prefix.
func HasPrefix(field, prefix string) Expr { return Expr{Op: OpPrefix, Field: field, Value: prefix} }

// Contains matches string fields containing substr.
func Contains(field, substr string) Expr { return Expr{Op: OpContains, Field: field, Value: substr} }

// AndExpr combines operands with logical AND.
func AndExpr(operands ...Expr) Expr { return combine(OpAnd, operands) }

// OrExpr combines operands with logical OR.
func OrExpr(operands ...Expr) Expr { return combine(OpOr, operands) }

// NotExpr negates operand.
func NotExpr(operand Expr) Expr { return Expr{Op: OpNot, Operands: []Expr{operand}} }

func combine(op Op, operands []Expr) Expr {
	return Expr{Op: op, Operands: append([]Expr(nil), operands...)}
}

// IsComparison reports whether e is a field comparison (a leaf).
func (e Expr) IsComparison() bool {
	switch e.Op {
	case OpAll, OpAnd, OpOr, OpNot:
		return false
	default:
		return true
	}
}

// Fields returns the distinct field names referenced by e, sorted.
func (e Expr) Fields() []string {
	seen := map[string]struct{}{}
	var walk func(Expr)
	walk = func(n Expr) {
		if n.IsComparison() && n.Field != "" {
			seen[n.Field] = struct{}{}
		}
		for _, op := range n.Operands {
			walk(op)
		}
	}
	walk(e)

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Validate checks the structural well-formedness of the tree.
func (e Expr) Validate() error {
	switch e.Op {
	case OpAll:
		return nil
	case OpAnd, OpOr:
		if len(e.Operands) == 0 {
			return fmt.Errorf("%w: %s requires at least one operand", ErrInvalidExpression, e.Op)
		}
	case OpNot:
		if len(e.Operands) != 1 {
			return fmt.Errorf("%w: not requires exactly one operand, got %d", ErrInvalidExpression, len(e.Operands))
		}
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpExists:
		if e.Field == "" {
			return fmt.Errorf("%w: %s requires a field", ErrInvalidExpression, e.Op)
		}
	case OpIn:
		if e.Field == "" {
			return fmt.Errorf("%w: in requires a field", ErrInvalidExpression)
		}
		if len(e.Values) == 0 {
			return fmt.Errorf("%w: in on %q requires at least one value", ErrInvalidExpression, e.Field)
		}
	case OpPrefix, OpContains:
		if e.Field == "" {
			return fmt.Errorf("%w: %s requires a field", ErrInvalidExpression, e.Op)
		}
		if _, ok := e.Value.(string); !ok {
			return fmt.Errorf("%w: %s on %q requires a string value", ErrInvalidExpression, e.Op, e.Field)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidExpression, e.Op)
	}

	for _, op := range e.Operands {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders e in a compact, deterministic form, e.g. (firstName = "Carlos" AND NOT(age > 3)).
func (e Expr) String() string {
	switch e.Op {
	case OpAll:
		return "TRUE"
	case OpAnd, OpOr:
		parts := make([]string, len(e.Operands))
		for i, op := range e.Operands {
			parts[i] = op.String()
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(e.Op))+" ") + ")"
	case OpNot:
		if len(e.Operands) != 1 {
			return "NOT(?)"
		}
		return "NOT(" + e.Operands[0].String() + ")"
	case OpEq:
		return fmt.Sprintf("%s = %s", e.Field, literal(e.Value))
	case OpNe:
		return fmt.Sprintf("%s <> %s", e.Field, literal(e.Value))
	case OpGt:
		return fmt.Sprintf("%s > %s", e.Field, literal(e.Value))
	case OpGte:
		return fmt.Sprintf("%s >= %s", e.Field, literal(e.Value))
	case OpLt:
		return fmt.Sprintf("%s < %s", e.Field, literal(e.Value))
	case OpLte:
		return fmt.Sprintf("%s <= %s", e.Field, literal(e.Value))
	case OpIn:
		vals := make([]string, len(e.Values))
		for i, v := range e.Values {
			vals[i] = literal(v)
		}
		return fmt.Sprintf("%s IN (%s)", e.Field, strings.Join(vals, ", "))
	case OpExists:
		return fmt.Sprintf("EXISTS(%s)", e.Field)
	case OpPrefix:
		return fmt.Sprintf("STARTSWITH(%s, %s)", e.Field, literal(e.Value))
	case OpContains:
		return fmt.Sprintf("CONTAINS(%s, %s)", e.Field, literal(e.Value))
	default:
		return fmt.Sprintf("<%s>", e.Op)
	}
}

func literal(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}
