package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/nimburion/documentdb/pkg/specification"
)

// PostgresFilter translates expr into a boolean SQL condition over the JSONB body
// column. Placeholders are numbered from offset+1 and args holds their values.
// Every comparison collapses NULL to FALSE so NOT behaves as in-process.
func PostgresFilter(expr specification.Expr, offset int) (sql string, args []any, err error) {
	if err := expr.Validate(); err != nil {
		return "", nil, err
	}
	b := &pgFilter{offset: offset}
	sql, err = b.node(expr)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

type pgFilter struct {
	offset int
	args   []any
}

func (b *pgFilter) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(b.offset+len(b.args))
}

// json is the field as a jsonb value, text the field as unquoted text.
func (b *pgFilter) json(field string) string {
	return "(body #> " + b.bind(pq.Array(strings.Split(field, "."))) + "::text[])"
}

func (b *pgFilter) text(field string) string {
	return "(body #>> " + b.bind(pq.Array(strings.Split(field, "."))) + "::text[])"
}

func (b *pgFilter) node(e specification.Expr) (string, error) {
	switch e.Op {
	case specification.OpAll:
		return "TRUE", nil
	case specification.OpAnd, specification.OpOr:
		parts := make([]string, 0, len(e.Operands))
		for _, operand := range e.Operands {
			part, err := b.node(operand)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		sep := " AND "
		if e.Op == specification.OpOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	case specification.OpNot:
		inner, err := b.node(e.Operands[0])
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	case specification.OpEq, specification.OpNe:
		value, _, err := jsonValue(e.Value)
		if err != nil {
			return "", err
		}
		eq := fmt.Sprintf("COALESCE(%s = %s::jsonb, FALSE)", b.json(e.Field), b.bind(value))
		if e.Op == specification.OpNe {
			return "NOT " + eq, nil
		}
		return eq, nil
	case specification.OpGt, specification.OpGte, specification.OpLt, specification.OpLte:
		return b.compare(e)
	case specification.OpIn:
		values := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			value, _, err := jsonValue(v)
			if err != nil {
				return "", err
			}
			values = append(values, value)
		}
		return fmt.Sprintf("COALESCE(%s = ANY(%s::jsonb[]), FALSE)", b.json(e.Field), b.bind(pq.Array(values))), nil
	case specification.OpExists:
		return fmt.Sprintf("COALESCE(jsonb_typeof(%s) <> 'null', FALSE)", b.json(e.Field)), nil
	case specification.OpPrefix:
		return fmt.Sprintf("COALESCE(starts_with(%s, %s::text), FALSE)", b.text(e.Field), b.bind(e.Value.(string))), nil
	case specification.OpContains:
		return fmt.Sprintf("COALESCE(strpos(%s, %s::text) > 0, FALSE)", b.text(e.Field), b.bind(e.Value.(string))), nil
	default:
		return "", fmt.Errorf("%w: postgres cannot evaluate %q", ErrUnsupportedExpression, e.Op)
	}
}

var pgComparison = map[specification.Op]string{
	specification.OpGt:  ">",
	specification.OpGte: ">=",
	specification.OpLt:  "<",
	specification.OpLte: "<=",
}

// compare only orders numbers against numbers and strings against strings. Strings
// compare bytewise through the "C" collation.
func (b *pgFilter) compare(e specification.Expr) (string, error) {
	value, kind, err := jsonValue(e.Value)
	if err != nil {
		return "", err
	}
	op := pgComparison[e.Op]
	switch kind {
	case "number":
		return fmt.Sprintf("COALESCE(jsonb_typeof(%s) = 'number' AND %s %s %s::jsonb, FALSE)",
			b.json(e.Field), b.json(e.Field), op, b.bind(value)), nil
	case "string":
		return fmt.Sprintf(`COALESCE(jsonb_typeof(%s) = 'string' AND %s COLLATE "C" %s %s::text, FALSE)`,
			b.json(e.Field), b.text(e.Field), op, b.bind(e.Value.(string))), nil
	default:
		return "", fmt.Errorf("%w: postgres cannot order %s values", ErrUnsupportedExpression, kind)
	}
}

// jsonValue renders v as a jsonb literal. Only JSON scalars translate; anything else
// has no faithful JSONB comparison.
func jsonValue(v any) (string, string, error) {
	kind := ""
	switch v.(type) {
	case nil:
		kind = "null"
	case json.Number:
		kind = "number"
	default:
		switch reflect.ValueOf(v).Kind() {
		case reflect.Bool:
			kind = "boolean"
		case reflect.String:
			kind = "string"
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			kind = "number"
		default:
			return "", "", fmt.Errorf("%w: postgres cannot compare %T values", ErrUnsupportedExpression, v)
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrUnsupportedExpression, err)
	}
	return string(raw), kind, nil
}
