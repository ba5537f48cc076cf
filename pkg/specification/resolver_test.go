package specification

import "testing"

type embeddedBase struct {
	ID string `json:"id"`
}

type withEmbedded struct {
	embeddedBase
	Name   string `json:"name"`
	Hidden string `json:"-"`
	Plain  int
}

func TestTagResolver(t *testing.T) {
	r := NewTagResolver("json")
	c := withEmbedded{embeddedBase: embeddedBase{ID: "7"}, Name: "n", Hidden: "h", Plain: 3}

	tests := []struct {
		field  string
		want   any
		wantOK bool
	}{
		{"id", "7", true},
		{"name", "n", true},
		{"Hidden", nil, false},
		{"-", nil, false},
		{"Plain", 3, true},
		{"nope", nil, false},
		{"name.deeper", nil, false},
	}

	for _, tt := range tests {
		got, ok := r.Resolve(c, tt.field)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("Resolve(%q) = (%v, %v), want (%v, %v)", tt.field, got, ok, tt.want, tt.wantOK)
		}
	}

	if _, ok := r.Resolve(&c, "name"); !ok {
		t.Error("expected pointer candidates to resolve")
	}
	var nilPtr *withEmbedded
	if _, ok := r.Resolve(nilPtr, "name"); ok {
		t.Error("nil pointer candidate must resolve to absent")
	}
	if _, ok := r.Resolve(nil, "name"); ok {
		t.Error("nil candidate must resolve to absent")
	}
}

func TestTagResolver_CustomTag(t *testing.T) {
	type doc struct {
		PK string `bson:"pk" json:"partition"`
	}
	if got, ok := NewTagResolver("bson").Resolve(doc{PK: "x"}, "pk"); !ok || got != "x" {
		t.Fatalf("bson resolver = (%v, %v)", got, ok)
	}
	if _, ok := NewTagResolver("bson").Resolve(doc{PK: "x"}, "partition"); ok {
		t.Fatal("bson resolver should not see json names")
	}
}

type sparse struct {
	ID       string         `json:"id"`
	Middle   string         `json:"middle,omitempty"`
	Age      int            `json:"age,omitempty"`
	Active   bool           `json:"active,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Labels   map[string]int `json:"labels,omitempty"`
	Nick     *string        `json:"nick,omitempty"`
	Rank     int            `json:",omitempty"`
	Weight   float64        `json:"weight,omitzero"`
	Count    int            `json:"count"`
	Embedded address        `json:"embedded,omitempty"`
}

func TestTagResolver_OmittedFields(t *testing.T) {
	r := NewTagResolver("json")
	empty := sparse{ID: "1"}
	nick := "x"
	full := sparse{
		ID: "1", Middle: "m", Age: 3, Active: true, Tags: []string{"a"},
		Labels: map[string]int{"k": 1}, Nick: &nick, Rank: 2, Weight: 1.5, Count: 0,
	}

	fields := []string{"middle", "age", "active", "tags", "labels", "nick", "Rank", "weight"}
	for _, field := range fields {
		if _, ok := r.Resolve(empty, field); ok {
			t.Errorf("Resolve(empty, %q) reported present for an omitted value", field)
		}
		if _, ok := r.Resolve(full, field); !ok {
			t.Errorf("Resolve(full, %q) reported absent", field)
		}
	}

	if got, ok := r.Resolve(empty, "count"); !ok || got != 0 {
		t.Errorf("zero value without omitempty = (%v, %v), want (0, true)", got, ok)
	}
	if _, ok := r.Resolve(empty, "embedded"); !ok {
		t.Error("omitempty does not drop struct values")
	}
	if _, ok := r.Resolve(empty, "embedded.city"); !ok {
		t.Error("expected nested field of a kept struct to resolve")
	}
}

func TestCompile_OmittedFieldsMatchStoredShape(t *testing.T) {
	doc := sparse{ID: "1"}
	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{"exists", Exists("middle"), false},
		{"not exists", NotExpr(Exists("middle")), true},
		{"eq empty", Eq("middle", ""), false},
		{"ne empty", Ne("middle", ""), true},
		{"eq zero", Eq("age", 0), false},
		{"eq zero kept", Eq("count", 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compile[sparse](tt.expr, nil)(doc); got != tt.want {
				t.Fatalf("Compile(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
