package specification

import (
	"errors"
	"reflect"
	"testing"
)

func TestExpr_Validate(t *testing.T) {
	tests := []struct {
		name    string
		expr    Expr
		wantErr bool
	}{
		{"true", True(), false},
		{"eq", Eq("a", 1), false},
		{"eq without field", Expr{Op: OpEq, Value: 1}, true},
		{"in without values", In("a"), true},
		{"in", In("a", 1, 2), false},
		{"prefix non string", Expr{Op: OpPrefix, Field: "a", Value: 3}, true},
		{"contains", Contains("a", "b"), false},
		{"empty and", AndExpr(), true},
		{"not arity", Expr{Op: OpNot}, true},
		{"nested invalid", OrExpr(Eq("a", 1), NotExpr(Expr{Op: OpGt})), true},
		{"unknown op", Expr{Op: "between", Field: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expr.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidExpression) {
				t.Fatalf("expected ErrInvalidExpression, got %v", err)
			}
		})
	}
}

func TestExpr_String(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{True(), "TRUE"},
		{Eq("firstName", "Carlos"), `firstName = "Carlos"`},
		{Ne("age", 3), "age <> 3"},
		{In("id", "1", 2), `id IN ("1", 2)`},
		{Exists("nickname"), "EXISTS(nickname)"},
		{HasPrefix("familyName", "Car"), `STARTSWITH(familyName, "Car")`},
		{Contains("familyName", "rr"), `CONTAINS(familyName, "rr")`},
		{OrExpr(Lt("a", 1), Gte("b", nil)), "(a < 1 OR b >= null)"},
		{NotExpr(Gt("a", 2.5)), "NOT(a > 2.5)"},
	}

	for _, tt := range tests {
		if got := tt.expr.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestExpr_Fields(t *testing.T) {
	e := AndExpr(Eq("b", 1), OrExpr(Eq("a", 2), NotExpr(Exists("b"))), True())
	if got, want := e.Fields(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
}

func TestIn_CopiesValues(t *testing.T) {
	values := []any{"a", "b"}
	e := In("f", values...)
	values[0] = "z"
	if e.Values[0] != "a" {
		t.Fatal("In must not alias the caller's slice")
	}
}
