package specification

import "fmt"

// Specification is a boolean predicate over T.
type Specification[T any] interface {
	IsSatisfiedBy(candidate T) bool
}

// Expressible is implemented by specifications that can describe themselves as an Expr
// for push-down to a remote query engine. ok is false when some part of the predicate
// only exists as in-process code.
type Expressible interface {
	ToExpression() (expr Expr, ok bool)
}

// ExpressionOf returns the pushable form of s, if it has one.
func ExpressionOf[T any](s Specification[T]) (Expr, bool) {
	if s == nil {
		return True(), true
	}
	if e, ok := s.(Expressible); ok {
		return e.ToExpression()
	}
	return Expr{}, false
}

type kind uint8

const (
	kindAll kind = iota
	kindExpr
	kindFunc
	kindAnd
	kindOr
	kindNot
)

// Spec is the immutable specification value produced by the constructors in this package.
// The zero value is satisfied by every candidate.
type Spec[T any] struct {
	kind     kind
	name     string
	expr     Expr
	eval     func(T) bool
	operands []Specification[T]
}

// All returns a specification satisfied by every candidate.
func All[T any]() Spec[T] {
	return Spec[T]{kind: kindAll}
}

// Where returns a translatable specification backed by expr.
// IsSatisfiedBy runs the compiled form of the same expression.
func Where[T any](expr Expr, opts ...Option) Spec[T] {
	o := options{resolver: DefaultResolver}
	for _, opt := range opts {
		opt(&o)
	}
	return Spec[T]{
		kind: kindExpr,
		name: o.name,
		expr: expr,
		eval: Compile[T](expr, o.resolver),
	}
}

// Func returns an in-process-only specification. Stores cannot push it down and
// filter candidates locally instead.
func Func[T any](name string, fn func(T) bool) Spec[T] {
	if fn == nil {
		fn = func(T) bool { return false }
	}
	return Spec[T]{kind: kindFunc, name: name, eval: fn}
}

// And combines specifications with short-circuit logical AND, left to right.
func And[T any](left Specification[T], rest ...Specification[T]) Spec[T] {
	return fold(kindAnd, left, rest)
}

// Or combines specifications with short-circuit logical OR, left to right.
func Or[T any](left Specification[T], rest ...Specification[T]) Spec[T] {
	return fold(kindOr, left, rest)
}

// Not negates s.
func Not[T any](s Specification[T]) Spec[T] {
	return Spec[T]{kind: kindNot, operands: []Specification[T]{orAll(s)}}
}

func fold[T any](k kind, left Specification[T], rest []Specification[T]) Spec[T] {
	if len(rest) == 0 {
		if sp, ok := left.(Spec[T]); ok {
			return sp
		}
		return Spec[T]{kind: k, operands: []Specification[T]{orAll(left)}}
	}
	acc := Spec[T]{kind: k, operands: []Specification[T]{orAll(left), orAll(rest[0])}}
	for _, next := range rest[1:] {
		acc = Spec[T]{kind: k, operands: []Specification[T]{acc, orAll(next)}}
	}
	return acc
}

func orAll[T any](s Specification[T]) Specification[T] {
	if s == nil {
		return All[T]()
	}
	return s
}

// IsSatisfiedBy evaluates the predicate in-process.
func (s Spec[T]) IsSatisfiedBy(candidate T) bool {
	switch s.kind {
	case kindAll:
		return true
	case kindExpr, kindFunc:
		return s.eval(candidate)
	case kindAnd:
		for _, op := range s.operands {
			if !op.IsSatisfiedBy(candidate) {
				return false
			}
		}
		return true
	case kindOr:
		for _, op := range s.operands {
			if op.IsSatisfiedBy(candidate) {
				return true
			}
		}
		return false
	case kindNot:
		return !s.operands[0].IsSatisfiedBy(candidate)
	default:
		return false
	}
}

// And returns s AND other.
func (s Spec[T]) And(other Specification[T]) Spec[T] {
	return Spec[T]{kind: kindAnd, operands: []Specification[T]{s, orAll(other)}}
}

// Or returns s OR other.
func (s Spec[T]) Or(other Specification[T]) Spec[T] {
	return Spec[T]{kind: kindOr, operands: []Specification[T]{s, orAll(other)}}
}

// Not returns NOT s.
func (s Spec[T]) Not() Spec[T] {
	return Not[T](s)
}

// All returns the specification satisfied by every candidate.
func (s Spec[T]) All() Spec[T] {
	return All[T]()
}

// Translatable reports whether the whole predicate can be expressed as an Expr.
func (s Spec[T]) Translatable() bool {
	_, ok := s.ToExpression()
	return ok
}

// ToExpression returns the pushable form of s. AND operands equal to TRUE are dropped
// and an OR containing TRUE collapses to TRUE; neither changes the result.
func (s Spec[T]) ToExpression() (Expr, bool) {
	switch s.kind {
	case kindAll:
		return True(), true
	case kindExpr:
		return s.expr, true
	case kindFunc:
		return Expr{}, false
	case kindNot:
		inner, ok := ExpressionOf(s.operands[0])
		if !ok {
			return Expr{}, false
		}
		return NotExpr(inner), true
	case kindAnd, kindOr:
		exprs := make([]Expr, 0, len(s.operands))
		for _, op := range s.operands {
			e, ok := ExpressionOf(op)
			if !ok {
				return Expr{}, false
			}
			exprs = append(exprs, e)
		}
		if s.kind == kindAnd {
			return simplifyAnd(exprs), true
		}
		return simplifyOr(exprs), true
	default:
		return Expr{}, false
	}
}

func simplifyAnd(exprs []Expr) Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		switch e.Op {
		case OpAll:
			continue
		case OpAnd:
			kept = append(kept, e.Operands...)
		default:
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return True()
	case 1:
		return kept[0]
	default:
		return AndExpr(kept...)
	}
}

func simplifyOr(exprs []Expr) Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		switch e.Op {
		case OpAll:
			return True()
		case OpOr:
			kept = append(kept, e.Operands...)
		default:
			kept = append(kept, e)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return OrExpr(kept...)
}

// String describes s for logs.
func (s Spec[T]) String() string {
	if s.name != "" {
		return s.name
	}
	if e, ok := s.ToExpression(); ok {
		return e.String()
	}
	switch s.kind {
	case kindFunc:
		return "func"
	case kindNot:
		return fmt.Sprintf("NOT(%v)", describe(s.operands[0]))
	case kindAnd, kindOr:
		sep := " AND "
		if s.kind == kindOr {
			sep = " OR "
		}
		out := "("
		for i, op := range s.operands {
			if i > 0 {
				out += sep
			}
			out += describe(op)
		}
		return out + ")"
	default:
		return "?"
	}
}

func describe[T any](s Specification[T]) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}

// Option configures Where.
type Option func(*options)

type options struct {
	name     string
	resolver Resolver
}

// WithName labels the specification in logs and traces.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithResolver overrides how field names are resolved on candidates.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}
