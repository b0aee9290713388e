package autodict

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/zoobzio/sentinel"
)

// tagName is the struct tag controlling mapping keys: `dict:"name,omitempty"` or `dict:"-"`.
const tagName = "dict"

func init() {
	sentinel.Tag(tagName)
}

// TypeKind classifies a declared field type for the reverse transform.
type TypeKind int

const (
	// TypeUnknown is an interface type; values pass through unless they carry a type key.
	TypeUnknown TypeKind = iota
	// TypePrimitive is a bool, numeric, string or []byte type.
	TypePrimitive
	// TypeRegistered is a type present in the registry.
	TypeRegistered
	// TypeSequence is a slice or array; Elem describes the element.
	TypeSequence
	// TypeMapping is a map; Elem describes the value.
	TypeMapping
	// TypePointer is a pointer; Elem describes the pointee.
	TypePointer
	// TypeOpaque is any other type, assigned directly when possible.
	TypeOpaque
)

func (k TypeKind) String() string {
	switch k {
	case TypeUnknown:
		return "unknown"
	case TypePrimitive:
		return "primitive"
	case TypeRegistered:
		return "registered"
	case TypeSequence:
		return "sequence"
	case TypeMapping:
		return "mapping"
	case TypePointer:
		return "pointer"
	case TypeOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
}

// FieldType is a declared type expression, e.g. "sequence of registered Student".
type FieldType struct {
	Kind TypeKind
	Type reflect.Type
	Elem *FieldType
}

func (ft FieldType) String() string {
	switch ft.Kind {
	case TypeSequence:
		return "sequence of " + ft.Elem.String()
	case TypeMapping:
		return "mapping of " + ft.Elem.String()
	case TypePointer:
		return "pointer to " + ft.Elem.String()
	case TypeUnknown:
		return "unknown"
	default:
		return ft.Kind.String() + " " + ft.Type.String()
	}
}

// field is a declared struct field of a registered type.
type field struct {
	name      string // Go field name
	key       string // mapping key
	index     []int
	typ       reflect.Type
	omitEmpty bool
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// scanType returns struct metadata for rt, preferring sentinel's cache.
func scanType(rt reflect.Type) sentinel.Metadata {
	if spec, ok := sentinel.Lookup(rt.Name()); ok && describes(spec, rt) {
		return spec
	}

	spec := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		tags := make(map[string]string)
		if val, ok := sf.Tag.Lookup(tagName); ok {
			tags[tagName] = val
		}

		spec.Fields = append(spec.Fields, sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        tags,
		})
	}

	return spec
}

// describes reports whether cached metadata belongs to rt. Distinct types
// can share a printed name.
func describes(spec sentinel.Metadata, rt reflect.Type) bool {
	for _, fm := range spec.Fields {
		sf, ok := fieldAt(rt, fm.Index)
		if !ok || sf.Name != fm.Name || sf.Type != fm.ReflectType || sf.Tag.Get(tagName) != fm.Tags[tagName] {
			return false
		}
	}
	return true
}

// fieldAt walks index through rt, following embedded pointers. It reports
// false when the index does not fit the type.
func fieldAt(rt reflect.Type, index []int) (reflect.StructField, bool) {
	var sf reflect.StructField
	if len(index) == 0 {
		return sf, false
	}
	t := rt
	for n, i := range index {
		if n > 0 {
			t = sf.Type
			if t.Kind() == reflect.Pointer {
				t = t.Elem()
			}
		}
		if t.Kind() != reflect.Struct || i < 0 || i >= t.NumField() {
			return reflect.StructField{}, false
		}
		sf = t.Field(i)
	}
	return sf, true
}

// declaredFields builds the ordered field table for a struct type.
func declaredFields(rt reflect.Type, spec sentinel.Metadata, namer func(string) string, typeKey string) (*orderedmap.OrderedMap[string, field], error) {
	fields := orderedmap.NewOrderedMap[string, field]()

	for _, fm := range spec.Fields {
		sf, ok := fieldAt(rt, fm.Index)
		if !ok || !sf.IsExported() {
			continue
		}

		f := field{
			name:  fm.Name,
			key:   namer(fm.Name),
			index: fm.Index,
			typ:   fm.ReflectType,
		}

		tag, ok := fm.Tags[tagName]
		if !ok {
			tag, ok = sf.Tag.Lookup(tagName)
		}
		if ok {
			if tag == "-" {
				continue
			}
			name, opts, _ := strings.Cut(tag, ",")
			if name != "" {
				f.key = name
			}
			for _, opt := range strings.Split(opts, ",") {
				switch opt {
				case "":
				case "omitempty":
					f.omitEmpty = true
				default:
					return nil, &TypeError{Err: ErrInvalidTag, TypeName: rt.String(), Detail: fmt.Sprintf("field %s: unknown option %q", fm.Name, opt)}
				}
			}
		}

		if f.key == typeKey {
			return nil, &TypeError{Err: ErrReservedKey, TypeName: rt.String(), Detail: fmt.Sprintf("field %s uses key %q", fm.Name, typeKey)}
		}
		if prev, dup := fields.Get(f.key); dup {
			return nil, &TypeError{Err: ErrInvalidTag, TypeName: rt.String(), Detail: fmt.Sprintf("fields %s and %s share key %q", prev.name, fm.Name, f.key)}
		}
		fields.Set(f.key, f)
	}

	return fields, nil
}

// ResolveFieldTypes returns the declared field types of a registered struct type,
// keyed by mapping key in declaration order.
func (r *Registry) ResolveFieldTypes(rt reflect.Type) (*orderedmap.OrderedMap[string, FieldType], error) {
	desc, err := r.LookupByType(rt)
	if err != nil {
		return nil, err
	}

	out := orderedmap.NewOrderedMap[string, FieldType]()
	if desc.fields == nil {
		return out, nil
	}
	for el := desc.fields.Front(); el != nil; el = el.Next() {
		out.Set(el.Key, r.resolveType(el.Value.typ))
	}
	return out, nil
}

// resolveType classifies rt against the registry's current contents.
func (r *Registry) resolveType(rt reflect.Type) FieldType {
	if _, ok := r.lookup(rt); ok && rt.Kind() != reflect.Pointer {
		return FieldType{Kind: TypeRegistered, Type: rt}
	}

	switch rt.Kind() {
	case reflect.Interface:
		return FieldType{Kind: TypeUnknown, Type: rt}
	case reflect.Pointer:
		elem := r.resolveType(rt.Elem())
		return FieldType{Kind: TypePointer, Type: rt, Elem: &elem}
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return FieldType{Kind: TypePrimitive, Type: rt}
		}
		elem := r.resolveType(rt.Elem())
		return FieldType{Kind: TypeSequence, Type: rt, Elem: &elem}
	case reflect.Array:
		elem := r.resolveType(rt.Elem())
		return FieldType{Kind: TypeSequence, Type: rt, Elem: &elem}
	case reflect.Map:
		elem := r.resolveType(rt.Elem())
		return FieldType{Kind: TypeMapping, Type: rt, Elem: &elem}
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return FieldType{Kind: TypePrimitive, Type: rt}
	default:
		return FieldType{Kind: TypeOpaque, Type: rt}
	}
}
