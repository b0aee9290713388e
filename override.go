package autodict

import "reflect"

// Override interfaces let a type supply its own conversion by implementing
// methods instead of passing converter funcs at registration. Register detects
// them and fills the descriptor exactly as ToDictFunc/FromDictFunc would, so the
// engine cannot tell the two forms apart.
//
// Explicit converter options take precedence over these methods.

// DictMarshaler converts the receiver into a mapping.
// Values inside the mapping may still be registered values.
type DictMarshaler interface {
	MarshalDict() (map[string]any, error)
}

// DictUnmarshaler fills the receiver from a mapping stripped of the type key.
// It is called on a pointer to a freshly zeroed value.
type DictUnmarshaler interface {
	UnmarshalDict(m map[string]any) error
}

var (
	dictMarshalerType   = reflect.TypeFor[DictMarshaler]()
	dictUnmarshalerType = reflect.TypeFor[DictUnmarshaler]()
)

// marshalerFor returns a ToFunc backed by rt's MarshalDict method, if any.
// Pointer-receiver methods are reached through an addressable copy.
func marshalerFor(rt reflect.Type) ToFunc {
	switch {
	case rt.Implements(dictMarshalerType):
		return func(v any) (map[string]any, error) {
			return v.(DictMarshaler).MarshalDict()
		}
	case reflect.PointerTo(rt).Implements(dictMarshalerType):
		return func(v any) (map[string]any, error) {
			ptr := reflect.New(rt)
			ptr.Elem().Set(reflect.ValueOf(v))
			return ptr.Interface().(DictMarshaler).MarshalDict()
		}
	}
	return nil
}

// unmarshalerFor returns a FromFunc backed by *rt's UnmarshalDict method, if any.
func unmarshalerFor(rt reflect.Type) FromFunc {
	if !reflect.PointerTo(rt).Implements(dictUnmarshalerType) {
		return nil
	}
	return func(m map[string]any) (any, error) {
		ptr := reflect.New(rt)
		if err := ptr.Interface().(DictUnmarshaler).UnmarshalDict(m); err != nil {
			return nil, err
		}
		return ptr.Elem().Interface(), nil
	}
}
