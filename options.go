package autodict

import (
	"fmt"
	"reflect"

	"github.com/stoewer/go-strcase"
)

// DefaultTypeKey is the reserved mapping key carrying the type identifier.
const DefaultTypeKey = "@"

// DefaultMaxDepth bounds the recursion depth of a single transform.
const DefaultMaxDepth = 512

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTypeKey changes the reserved key used to embed type identifiers.
func WithTypeKey(key string) RegistryOption {
	return func(r *Registry) {
		if key != "" {
			r.typeKey = key
		}
	}
}

// WithQualifiedNames makes default identifiers include the package path
// (e.g. "example.com/school.Student" instead of "Student").
func WithQualifiedNames() RegistryOption {
	return func(r *Registry) {
		r.qualified = true
	}
}

// WithKeyNamer sets how untagged Go field names become mapping keys.
// The default is snake_case.
func WithKeyNamer(namer func(string) string) RegistryOption {
	return func(r *Registry) {
		if namer != nil {
			r.keyNamer = namer
		}
	}
}

func defaultKeyNamer(name string) string {
	return strcase.SnakeCase(name)
}

// ToFunc converts a registered value into a mapping. Values inside the returned
// mapping may still be registered values; the engine walks them afterwards.
type ToFunc func(v any) (map[string]any, error)

// FromFunc rebuilds a registered value from a mapping stripped of the type key.
// It must return a value of the registered type or a pointer to one.
type FromFunc func(m map[string]any) (any, error)

// registration collects RegisterOption state before a Descriptor is built.
type registration struct {
	id        string
	toDict    ToFunc
	fromDict  FromFunc
	construct FromFunc
	noTo      bool
	noFrom    bool
}

// RegisterOption configures a single type registration.
type RegisterOption func(*registration)

// WithName overrides the type identifier embedded in mappings.
func WithName(id string) RegisterOption {
	return func(r *registration) {
		r.id = id
	}
}

// ToDictFunc supplies a custom forward converter for T.
func ToDictFunc[T any](fn func(T) (map[string]any, error)) RegisterOption {
	return func(r *registration) {
		want := reflect.TypeFor[T]()
		r.toDict = func(v any) (map[string]any, error) {
			if t, ok := v.(T); ok {
				return fn(t)
			}
			// The engine hands over the element value for Register[*T].
			if rv := reflect.ValueOf(v); want.Kind() == reflect.Pointer && rv.IsValid() && rv.Type() == want.Elem() {
				ptr := reflect.New(rv.Type())
				ptr.Elem().Set(rv)
				return fn(ptr.Interface().(T))
			}
			return nil, fmt.Errorf("%w: want %v, got %T", ErrUnconvertible, want, v)
		}
	}
}

// FromDictFunc supplies a custom reverse converter for T. The default converter
// is never consulted for T once this is set.
func FromDictFunc[T any](fn func(map[string]any) (T, error)) RegisterOption {
	return func(r *registration) {
		r.fromDict = func(m map[string]any) (any, error) {
			return fn(m)
		}
	}
}

// ConstructorFunc supplies a fallback used when the default field-by-field
// reconstruction fails. It receives the raw mapping without nested rebuilding.
func ConstructorFunc[T any](fn func(map[string]any) (T, error)) RegisterOption {
	return func(r *registration) {
		r.construct = func(m map[string]any) (any, error) {
			return fn(m)
		}
	}
}

// ToDictOnly marks the type as convertible to a mapping only.
func ToDictOnly() RegisterOption {
	return func(r *registration) {
		r.noFrom = true
	}
}

// FromDictOnly marks the type as reconstructible from a mapping only.
func FromDictOnly() RegisterOption {
	return func(r *registration) {
		r.noTo = true
	}
}

// callOptions holds per-call transform settings.
type callOptions struct {
	withType bool
	strict   bool
	maxDepth int
}

func defaultCallOptions() callOptions {
	return callOptions{
		withType: true,
		maxDepth: DefaultMaxDepth,
	}
}

// Option configures an AutoDict or a single ToDict/FromDict call.
type Option func(*callOptions)

// WithType controls whether ToDict embeds type identifiers. Defaults to true.
func WithType(embed bool) Option {
	return func(o *callOptions) {
		o.withType = embed
	}
}

// Strict rejects nested values that are neither registered nor
// primitive-composable instead of passing them through.
func Strict() Option {
	return func(o *callOptions) {
		o.strict = true
	}
}

// MaxDepth caps the nesting depth of a single transform.
func MaxDepth(n int) Option {
	return func(o *callOptions) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}
