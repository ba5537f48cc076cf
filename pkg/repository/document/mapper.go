package document

import (
	"fmt"
	"reflect"
)

// Mapper projects a stored document onto the entity type callers work with.
// Implementations must be pure: the same document always maps to the same entity.
type Mapper[D, E any] interface {
	Map(doc D) (E, error)
}

// MapperFunc adapts a function to Mapper.
type MapperFunc[D, E any] func(doc D) (E, error)

// Map calls f(doc).
func (f MapperFunc[D, E]) Map(doc D) (E, error) {
	return f(doc)
}

// Identity returns a mapper for repositories whose entity is the document itself.
func Identity[D any]() Mapper[D, D] {
	return MapperFunc[D, D](func(doc D) (D, error) { return doc, nil })
}

// MapAll maps docs in order.
func MapAll[D, E any](m Mapper[D, E], docs []D) ([]E, error) {
	out := make([]E, 0, len(docs))
	for i, doc := range docs {
		e, err := m.Map(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to map document %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// FieldMapper copies exported fields from D to E by name using reflection.
// A destination field can read a differently named source field through a
// `map:"SourceField"` tag, or be computed with ForMember. Fields with no source
// keep their zero value; `map:"-"` skips a field.
type FieldMapper[D, E any] struct {
	members map[string]func(D) any
	plan    []fieldCopy
}

type fieldCopy struct {
	dst      []int
	src      []int
	convert  bool
	override func(any) (reflect.Value, error)
}

// NewFieldMapper builds the copy plan for D and E, which must both be structs.
func NewFieldMapper[D, E any]() (*FieldMapper[D, E], error) {
	m := &FieldMapper[D, E]{members: map[string]func(D) any{}}
	if err := m.compile(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustFieldMapper is NewFieldMapper that panics on error, for package-level mappers.
func MustFieldMapper[D, E any]() *FieldMapper[D, E] {
	m, err := NewFieldMapper[D, E]()
	if err != nil {
		panic(err)
	}
	return m
}

// ForMember computes destination field name from the whole document.
// Configure members before the mapper is shared.
func (m *FieldMapper[D, E]) ForMember(name string, fn func(D) any) *FieldMapper[D, E] {
	m.members[name] = fn
	if err := m.compile(); err != nil {
		panic(err)
	}
	return m
}

// Map implements Mapper.
func (m *FieldMapper[D, E]) Map(doc D) (E, error) {
	var out E
	dst := reflect.ValueOf(&out).Elem()
	src := reflect.ValueOf(doc)

	for _, fc := range m.plan {
		target := dst.FieldByIndex(fc.dst)
		if fc.override != nil {
			v, err := fc.override(doc)
			if err != nil {
				return out, err
			}
			if v.IsValid() {
				target.Set(v)
			}
			continue
		}
		value := src.FieldByIndex(fc.src)
		if fc.convert {
			value = value.Convert(target.Type())
		}
		target.Set(value)
	}
	return out, nil
}

func (m *FieldMapper[D, E]) compile() error {
	srcType := reflect.TypeOf((*D)(nil)).Elem()
	dstType := reflect.TypeOf((*E)(nil)).Elem()
	if srcType.Kind() != reflect.Struct || dstType.Kind() != reflect.Struct {
		return fmt.Errorf("field mapper requires struct types, got %s and %s", srcType, dstType)
	}

	plan := make([]fieldCopy, 0, dstType.NumField())
	for i := 0; i < dstType.NumField(); i++ {
		df := dstType.Field(i)
		if !df.IsExported() || df.Anonymous {
			continue
		}
		if fn, ok := m.members[df.Name]; ok {
			plan = append(plan, fieldCopy{dst: df.Index, override: overrideFor(df, fn)})
			continue
		}

		name := df.Name
		if tag, ok := df.Tag.Lookup("map"); ok {
			if tag == "-" {
				continue
			}
			name = tag
		}
		sf, ok := srcType.FieldByName(name)
		if !ok || !sf.IsExported() || len(sf.Index) != 1 {
			continue
		}
		switch {
		case sf.Type.AssignableTo(df.Type):
			plan = append(plan, fieldCopy{dst: df.Index, src: sf.Index})
		case sf.Type.ConvertibleTo(df.Type) && sf.Type.Kind() == df.Type.Kind():
			plan = append(plan, fieldCopy{dst: df.Index, src: sf.Index, convert: true})
		default:
			return fmt.Errorf("cannot map %s.%s (%s) to %s.%s (%s)", srcType, sf.Name, sf.Type, dstType, df.Name, df.Type)
		}
	}
	m.plan = plan
	return nil
}

func overrideFor[D any](df reflect.StructField, fn func(D) any) func(any) (reflect.Value, error) {
	return func(doc any) (reflect.Value, error) {
		raw := fn(doc.(D))
		if raw == nil {
			return reflect.Value{}, nil
		}
		v := reflect.ValueOf(raw)
		switch {
		case v.Type().AssignableTo(df.Type):
			return v, nil
		case v.Type().ConvertibleTo(df.Type):
			return v.Convert(df.Type), nil
		default:
			return reflect.Value{}, fmt.Errorf("member %s: cannot use %s as %s", df.Name, v.Type(), df.Type)
		}
	}
}
