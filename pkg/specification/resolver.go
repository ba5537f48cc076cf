package specification

import (
	"reflect"
	"strings"
	"sync"
)

// Resolver extracts a named field from a candidate.
// The boolean result is false when the field is absent or nil, or when its tag
// would leave it out of the encoded document (omitempty on an empty value,
// omitzero on a zero value).
type Resolver interface {
	Resolve(candidate any, field string) (any, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(candidate any, field string) (any, bool)

// Resolve calls f(candidate, field).
func (f ResolverFunc) Resolve(candidate any, field string) (any, bool) {
	return f(candidate, field)
}

// DefaultResolver resolves fields by their json tag.
var DefaultResolver Resolver = NewTagResolver("json")

// TagResolver resolves struct fields by struct tag name, falling back to the Go
// field name. Dotted paths ("address.city") walk nested structs and string-keyed maps.
type TagResolver struct {
	tag   string
	cache sync.Map // reflect.Type -> map[string]fieldInfo
}

type fieldInfo struct {
	index     []int
	omitEmpty bool
	omitZero  bool
}

// NewTagResolver creates a resolver keyed on the given struct tag.
func NewTagResolver(tag string) *TagResolver {
	return &TagResolver{tag: tag}
}

// Resolve implements Resolver.
func (r *TagResolver) Resolve(candidate any, field string) (any, bool) {
	v := reflect.ValueOf(candidate)
	for _, segment := range strings.Split(field, ".") {
		var ok bool
		v, ok = r.step(v, segment)
		if !ok {
			return nil, false
		}
	}

	v, ok := indirect(v)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func (r *TagResolver) step(v reflect.Value, name string) (reflect.Value, bool) {
	v, ok := indirect(v)
	if !ok {
		return reflect.Value{}, false
	}

	switch v.Kind() {
	case reflect.Struct:
		info, found := r.fields(v.Type())[name]
		if !found {
			return reflect.Value{}, false
		}
		fv, err := v.FieldByIndexErr(info.index)
		if err != nil {
			return reflect.Value{}, false
		}
		if (info.omitEmpty && isEmptyValue(fv)) || (info.omitZero && fv.IsZero()) {
			return reflect.Value{}, false
		}
		return fv, true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return reflect.Value{}, false
		}
		return mv, true
	default:
		return reflect.Value{}, false
	}
}

func (r *TagResolver) fields(t reflect.Type) map[string]fieldInfo {
	if cached, ok := r.cache.Load(t); ok {
		return cached.(map[string]fieldInfo)
	}

	out := make(map[string]fieldInfo)
	r.collect(t, nil, out)
	actual, _ := r.cache.LoadOrStore(t, out)
	return actual.(map[string]fieldInfo)
}

func (r *TagResolver) collect(t reflect.Type, prefix []int, out map[string]fieldInfo) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		name, tagged, flags := r.tagName(f)
		if name == "-" {
			continue
		}

		if f.Anonymous && !tagged {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				r.collect(ft, index, out)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if _, dup := out[name]; !dup {
			out[name] = fieldInfo{
				index:     index,
				omitEmpty: hasFlag(flags, "omitempty"),
				omitZero:  hasFlag(flags, "omitzero"),
			}
		}
	}
}

func (r *TagResolver) tagName(f reflect.StructField) (string, bool, []string) {
	tag, ok := f.Tag.Lookup(r.tag)
	if !ok {
		return f.Name, false, nil
	}
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return f.Name, false, parts[1:]
	}
	return name, true, parts[1:]
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.TrimSpace(f) == flag {
			return true
		}
	}
	return false
}

// isEmptyValue mirrors the omitempty rule of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	default:
		return false
	}
}

// indirect dereferences pointers and interfaces, reporting false on nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if (v.Kind() == reflect.Map || v.Kind() == reflect.Slice) && v.IsNil() {
		return reflect.Value{}, false
	}
	return v, true
}
