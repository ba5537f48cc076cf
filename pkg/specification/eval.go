package specification

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Compile turns expr into an in-process predicate over T.
// A nil resolver uses DefaultResolver. Malformed nodes evaluate to false.
func Compile[T any](expr Expr, resolver Resolver) func(T) bool {
	if resolver == nil {
		resolver = DefaultResolver
	}
	eval := compileNode(expr, resolver)
	return func(candidate T) bool {
		return eval(candidate)
	}
}

type predicate func(candidate any) bool

func compileNode(e Expr, r Resolver) predicate {
	switch e.Op {
	case OpAll:
		return func(any) bool { return true }
	case OpAnd:
		operands := compileOperands(e.Operands, r)
		if len(operands) == 0 {
			return func(any) bool { return false }
		}
		return func(c any) bool {
			for _, op := range operands {
				if !op(c) {
					return false
				}
			}
			return true
		}
	case OpOr:
		operands := compileOperands(e.Operands, r)
		return func(c any) bool {
			for _, op := range operands {
				if op(c) {
					return true
				}
			}
			return false
		}
	case OpNot:
		if len(e.Operands) != 1 {
			return func(any) bool { return false }
		}
		inner := compileNode(e.Operands[0], r)
		return func(c any) bool { return !inner(c) }
	}

	field, value, values := e.Field, e.Value, e.Values
	switch e.Op {
	case OpEq:
		return func(c any) bool {
			got, ok := r.Resolve(c, field)
			return ok && equal(got, value)
		}
	case OpNe:
		return func(c any) bool {
			got, ok := r.Resolve(c, field)
			return !ok || !equal(got, value)
		}
	case OpGt, OpGte, OpLt, OpLte:
		op := e.Op
		return func(c any) bool {
			got, ok := r.Resolve(c, field)
			if !ok {
				return false
			}
			cmp, ok := compare(got, value)
			if !ok {
				return false
			}
			switch op {
			case OpGt:
				return cmp > 0
			case OpGte:
				return cmp >= 0
			case OpLt:
				return cmp < 0
			default:
				return cmp <= 0
			}
		}
	case OpIn:
		return func(c any) bool {
			got, ok := r.Resolve(c, field)
			if !ok {
				return false
			}
			for _, v := range values {
				if equal(got, v) {
					return true
				}
			}
			return false
		}
	case OpExists:
		return func(c any) bool {
			_, ok := r.Resolve(c, field)
			return ok
		}
	case OpPrefix, OpContains:
		needle, isString := value.(string)
		prefix := e.Op == OpPrefix
		return func(c any) bool {
			if !isString {
				return false
			}
			got, ok := r.Resolve(c, field)
			if !ok {
				return false
			}
			s, ok := asString(got)
			if !ok {
				return false
			}
			if prefix {
				return strings.HasPrefix(s, needle)
			}
			return strings.Contains(s, needle)
		}
	default:
		return func(any) bool { return false }
	}
}

func compileOperands(exprs []Expr, r Resolver) []predicate {
	out := make([]predicate, len(exprs))
	for i, e := range exprs {
		out[i] = compileNode(e, r)
	}
	return out
}

// equal compares numbers by value, times chronologically and anything else deeply.
func equal(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	if sa, ok := asString(a); ok {
		sb, ok := asString(b)
		return ok && sa == sb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// compare orders a against b; the boolean is false when they are not ordered types
// of the same family.
func compare(a, b any) (int, bool) {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := asString(a); ok {
		sb, ok := asString(b)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
