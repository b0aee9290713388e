package autodict

import (
	"context"
	"reflect"
	"time"
)

// AutoDict converts registered values to mappings and back.
// An AutoDict holds no mutable state of its own and is safe for concurrent use;
// its registry may keep receiving registrations while transforms run.
type AutoDict struct {
	reg  *Registry
	opts []Option
}

// New returns an engine over reg. opts become the defaults of every call
// and may be overridden per call.
func New(reg *Registry, opts ...Option) *AutoDict {
	if reg == nil {
		reg = NewRegistry()
	}
	return &AutoDict{reg: reg, opts: opts}
}

// Registry returns the registry the engine resolves types against.
func (a *AutoDict) Registry() *Registry {
	return a.reg
}

func (a *AutoDict) callOptions(opts []Option) callOptions {
	o := defaultCallOptions()
	for _, opt := range a.opts {
		opt(&o)
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ToDict converts obj into a mapping. obj must be a registered value, a pointer
// to one, or a string-keyed map. Nested registered values become nested mappings
// carrying the type key; sequences become []any.
//
// obj is never modified.
func (a *AutoDict) ToDict(ctx context.Context, obj any, opts ...Option) (map[string]any, error) {
	typeName := typeNameOf(obj)
	start := time.Now()
	emitToDictStart(ctx, typeName)

	var retErr error
	var retMap map[string]any
	defer func() {
		emitToDictComplete(ctx, typeName, time.Since(start), len(retMap), retErr)
	}()

	rv := indirect(reflect.ValueOf(obj))
	if !rv.IsValid() {
		retErr = &TypeError{Err: ErrNotMapping, TypeName: typeName}
		return nil, retErr
	}

	w := newWalker(a.reg, a.callOptions(opts))

	if desc, ok := a.reg.lookup(rv.Type()); ok {
		retMap, retErr = w.encodeRegistered(desc, rv, "")
		return retMap, retErr
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		v, err := w.encode(rv, "")
		if err != nil {
			retErr = err
			return nil, retErr
		}
		retMap, _ = v.(map[string]any)
		return retMap, nil
	case reflect.Struct, reflect.Func, reflect.Chan:
		retErr = newTypeError(ErrUnregisteredType, rv.Type().String(), "")
		return nil, retErr
	}

	retErr = &TypeError{Err: ErrNotMapping, TypeName: rv.Type().String()}
	return nil, retErr
}

// ToValue converts any primitive-composable value, walking sequences and
// mappings for registered values. Unregistered structs at the top level fail.
func (a *AutoDict) ToValue(ctx context.Context, obj any, opts ...Option) (any, error) {
	typeName := typeNameOf(obj)
	start := time.Now()
	emitToDictStart(ctx, typeName)

	var retErr error
	defer func() {
		emitToDictComplete(ctx, typeName, time.Since(start), 0, retErr)
	}()

	rv := reflect.ValueOf(obj)
	if base := indirect(rv); base.IsValid() && base.Kind() == reflect.Struct {
		if _, ok := a.reg.lookup(base.Type()); !ok {
			retErr = newTypeError(ErrUnregisteredType, base.Type().String(), "")
			return nil, retErr
		}
	}

	var out any
	out, retErr = newWalker(a.reg, a.callOptions(opts)).encode(rv, "")
	return out, retErr
}

// FromDict rebuilds a value from a mapping produced by ToDict (or written by
// hand). The type is resolved from the embedded identifier. m is never modified.
func (a *AutoDict) FromDict(ctx context.Context, m map[string]any, opts ...Option) (any, error) {
	v, err := a.fromDict(ctx, m, nil, opts)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// FromDictInto rebuilds a value from m and stores it in target, which must be a
// non-nil pointer. A concrete target type wins over the embedded identifier;
// an interface target type is resolved from the identifier.
func (a *AutoDict) FromDictInto(ctx context.Context, m map[string]any, target any, opts ...Option) error {
	pv := reflect.ValueOf(target)
	if pv.Kind() != reflect.Pointer || pv.IsNil() {
		return &TypeError{Err: ErrUnconvertible, TypeName: typeNameOf(target), Detail: "target must be a non-nil pointer"}
	}

	et := pv.Type().Elem()
	base := et
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	v, err := a.fromDict(ctx, m, base, opts)
	if err != nil {
		return err
	}

	if et.Kind() == reflect.Pointer {
		ptr := reflect.New(base)
		ptr.Elem().Set(v)
		v = ptr
	}
	pv.Elem().Set(v)
	return nil
}

func (a *AutoDict) fromDict(ctx context.Context, m map[string]any, target reflect.Type, opts []Option) (v reflect.Value, retErr error) {
	typeName := a.targetName(m, target)
	start := time.Now()
	emitFromDictStart(ctx, typeName)
	defer func() {
		emitFromDictComplete(ctx, typeName, time.Since(start), retErr)
	}()

	if m == nil {
		if target == nil || target.Kind() == reflect.Interface {
			return reflect.Value{}, newPathError(ErrMissingTypeInfo, "", nil)
		}
		// A concrete target names the type; nil reads as an empty mapping.
		m = map[string]any{}
	}

	w := newWalker(a.reg, a.callOptions(opts))
	leave, err := w.enter(reflect.ValueOf(m), "")
	if err != nil {
		return reflect.Value{}, err
	}
	defer leave()

	return w.decodeDict(m, target, "")
}

// targetName picks the name reported in signals for a reverse transform.
func (a *AutoDict) targetName(m map[string]any, target reflect.Type) string {
	if target != nil && target.Kind() != reflect.Interface {
		return target.String()
	}
	if id, ok := m[a.reg.typeKey].(string); ok {
		return id
	}
	return "<unknown>"
}

// FromDictAs rebuilds a T from m. T may be a registered type, a pointer to one,
// or an interface satisfied by the type named in m.
func FromDictAs[T any](ctx context.Context, a *AutoDict, m map[string]any, opts ...Option) (T, error) {
	var out T
	err := a.FromDictInto(ctx, m, &out, opts...)
	return out, err
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func typeNameOf(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
