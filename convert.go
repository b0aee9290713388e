package autodict

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

var anyType = reflect.TypeFor[any]()

// basicTypes maps scalar kinds to the unnamed Go type mappings carry.
var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
	reflect.String:  reflect.TypeFor[string](),
}

// visit identifies a reference value on the current walk path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// walker carries the state of one ToDict or FromDict call.
// The visited set is path-scoped: shared but acyclic references are allowed.
type walker struct {
	reg      *Registry
	opts     callOptions
	visiting map[visit]struct{}
	depth    int
}

func newWalker(reg *Registry, opts callOptions) *walker {
	return &walker{
		reg:      reg,
		opts:     opts,
		visiting: make(map[visit]struct{}),
	}
}

// enter pushes rv onto the walk path. The returned func pops it.
func (w *walker) enter(rv reflect.Value, path string) (func(), error) {
	if w.depth >= w.opts.maxDepth {
		return nil, newPathError(ErrCyclicReference, path, fmt.Errorf("depth exceeds %d", w.opts.maxDepth))
	}

	var key visit
	tracked := false
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		tracked = !rv.IsNil()
	case reflect.Slice:
		tracked = rv.Len() > 0
	}
	if tracked {
		key = visit{ptr: rv.Pointer(), typ: rv.Type()}
		if _, seen := w.visiting[key]; seen {
			return nil, newPathError(ErrCyclicReference, path, nil)
		}
		w.visiting[key] = struct{}{}
	}

	w.depth++
	return func() {
		w.depth--
		if tracked {
			delete(w.visiting, key)
		}
	}, nil
}

func keyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// --- forward ---

// encode converts rv into a primitive-composable value.
func (w *walker) encode(rv reflect.Value, path string) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	leave, err := w.enter(rv, path)
	if err != nil {
		return nil, err
	}
	defer leave()

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return w.encode(rv.Elem(), path)
	}

	if desc, ok := w.reg.lookup(rv.Type()); ok {
		return w.encodeRegistered(desc, rv, path)
	}
	return w.encodePlain(rv, path)
}

// encodePlain converts rv by kind without consulting the registry for rv itself.
func (w *walker) encodePlain(rv reflect.Value, path string) (any, error) {
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return basicValue(rv), nil

	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return bytes.Clone(rv.Bytes()), nil
		}
		return w.encodeSequence(rv, path)

	case reflect.Array:
		return w.encodeSequence(rv, path)

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return w.passThrough(rv, path)
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			v, err := w.encode(iter.Value(), keyPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	default:
		return w.passThrough(rv, path)
	}
}

func (w *walker) encodeSequence(rv reflect.Value, path string) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		v, err := w.encode(rv.Index(i), indexPath(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// passThrough returns values the converter has no rule for. Strict mode rejects them.
func (w *walker) passThrough(rv reflect.Value, path string) (any, error) {
	if w.opts.strict {
		return nil, &TypeError{Err: ErrUnregisteredType, TypeName: rv.Type().String(), Detail: "at " + keyPathOrRoot(path)}
	}
	if !rv.CanInterface() {
		return nil, nil
	}
	return rv.Interface(), nil
}

func keyPathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

// basicValue strips named scalar types down to their basic Go type.
func basicValue(rv reflect.Value) any {
	if bt := basicTypes[rv.Kind()]; bt != nil && rv.Type() != bt {
		return rv.Convert(bt).Interface()
	}
	return rv.Interface()
}

// encodeRegistered converts a registered value into its mapping.
func (w *walker) encodeRegistered(desc *Descriptor, rv reflect.Value, path string) (map[string]any, error) {
	if !desc.canTo {
		return nil, &TypeError{Err: ErrUnregisteredType, TypeName: desc.typ.String(), ID: desc.id, Detail: "registered for FromDict only"}
	}

	var m map[string]any
	switch {
	case desc.toDict != nil:
		raw, err := desc.toDict(rv.Interface())
		if err != nil {
			return nil, fmt.Errorf("%s to dict: %w", desc.id, err)
		}
		m = make(map[string]any, len(raw)+1)
		for k, v := range raw {
			ev, err := w.encode(reflect.ValueOf(v), keyPath(path, k))
			if err != nil {
				return nil, err
			}
			m[k] = ev
		}

	case desc.fields != nil:
		m = make(map[string]any, desc.fields.Len()+1)
		for el := desc.fields.Front(); el != nil; el = el.Next() {
			f := el.Value
			fv, err := rv.FieldByIndexErr(f.index)
			if err != nil {
				// nil embedded pointer
				continue
			}
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			ev, err := w.encode(fv, keyPath(path, f.key))
			if err != nil {
				return nil, err
			}
			m[f.key] = ev
		}

	default:
		v, err := w.encodePlain(rv, keyPath(path, "value"))
		if err != nil {
			return nil, err
		}
		m = map[string]any{"value": v}
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			m["name"] = s.String()
		}
	}

	if w.opts.withType {
		if _, exists := m[w.reg.typeKey]; exists {
			return nil, newPathError(ErrReservedKey, path, fmt.Errorf("mapping for %s already has key %q", desc.id, w.reg.typeKey))
		}
		m[w.reg.typeKey] = desc.id
	}
	return m, nil
}

// --- reverse ---

// decodeDict rebuilds a registered value from m. A nil or interface target
// defers to the embedded identifier; a concrete target wins over it.
func (w *walker) decodeDict(m map[string]any, target reflect.Type, path string) (reflect.Value, error) {
	desc, err := w.resolveTarget(m, target, path)
	if err != nil {
		return reflect.Value{}, err
	}
	if !desc.canFrom {
		return reflect.Value{}, &TypeError{Err: ErrUnregisteredType, TypeName: desc.typ.String(), ID: desc.id, Detail: "registered for ToDict only"}
	}

	v, err := w.build(desc, w.strip(m), path)
	if err != nil {
		return reflect.Value{}, err
	}

	if target != nil && target.Kind() == reflect.Interface && !v.Type().Implements(target) {
		if !reflect.PointerTo(v.Type()).Implements(target) {
			return reflect.Value{}, newPathError(ErrUnconvertible, path, fmt.Errorf("%s does not implement %s", v.Type(), target))
		}
		// Pointer receivers: hand back *T.
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		v = ptr
	}
	return v, nil
}

func (w *walker) resolveTarget(m map[string]any, target reflect.Type, path string) (*Descriptor, error) {
	if target != nil && target.Kind() != reflect.Interface {
		desc, ok := w.reg.lookup(target)
		if !ok {
			return nil, newTypeError(ErrUnregisteredType, target.String(), "")
		}
		return desc, nil
	}

	raw, ok := m[w.reg.typeKey]
	if !ok {
		return nil, newPathError(ErrMissingTypeInfo, path, nil)
	}
	id, ok := raw.(string)
	if !ok {
		return nil, &TypeError{Err: ErrUnknownType, Detail: fmt.Sprintf("type key %q holds %T at %s", w.reg.typeKey, raw, keyPathOrRoot(path))}
	}
	return w.reg.LookupByID(id)
}

// strip returns a copy of m without the reserved key. m is never mutated.
func (w *walker) strip(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != w.reg.typeKey {
			out[k] = v
		}
	}
	return out
}

// build runs the custom converter, or the default field assignment followed by
// the constructor fallback.
func (w *walker) build(desc *Descriptor, m map[string]any, path string) (reflect.Value, error) {
	if desc.fromDict != nil {
		out, err := desc.fromDict(m)
		if err != nil {
			return reflect.Value{}, &ReconstructionError{TypeName: desc.typ.String(), Path: path, Cause: err}
		}
		return normalize(desc, out, path)
	}

	v, err := w.assignFields(desc, m, path)
	if err == nil {
		return v, nil
	}

	if desc.construct != nil {
		out, cerr := desc.construct(m)
		if cerr == nil {
			return normalize(desc, out, path)
		}
		return reflect.Value{}, &ReconstructionError{TypeName: desc.typ.String(), Path: path, Cause: errors.Join(err, cerr)}
	}

	if isTaxonomyError(err) {
		return reflect.Value{}, err
	}
	return reflect.Value{}, &ReconstructionError{TypeName: desc.typ.String(), Path: path, Cause: err}
}

// normalize accepts T or *T from a converter and yields a T.
func normalize(desc *Descriptor, out any, path string) (reflect.Value, error) {
	rv := reflect.ValueOf(out)
	switch {
	case !rv.IsValid():
	case rv.Type() == desc.typ:
		return rv, nil
	case rv.Kind() == reflect.Pointer && rv.Type().Elem() == desc.typ && !rv.IsNil():
		return rv.Elem(), nil
	}
	return reflect.Value{}, &ReconstructionError{
		TypeName: desc.typ.String(),
		Path:     path,
		Cause:    fmt.Errorf("%w: converter returned %T", ErrUnconvertible, out),
	}
}

// assignFields builds a zero value and assigns every entry of m to its declared field.
// The value is only returned when every entry succeeded.
func (w *walker) assignFields(desc *Descriptor, m map[string]any, path string) (reflect.Value, error) {
	rv := reflect.New(desc.typ).Elem()

	if desc.fields == nil {
		raw, ok := m["value"]
		if !ok {
			return reflect.Value{}, newPathError(ErrUnconvertible, path, fmt.Errorf("mapping for %s has no \"value\" key", desc.id))
		}
		v, err := w.decodePlain(raw, desc.typ, keyPath(path, "value"))
		if err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := desc.fields.Get(k)
		if !ok {
			return reflect.Value{}, newPathError(ErrUnconvertible, keyPath(path, k), fmt.Errorf("%s has no field for key %q", desc.typ, k))
		}
		v, err := w.decodeValue(m[k], f.typ, keyPath(path, k))
		if err != nil {
			return reflect.Value{}, err
		}
		dst, ok := fieldByIndexAlloc(rv, f.index)
		if !ok {
			return reflect.Value{}, newPathError(ErrUnconvertible, keyPath(path, k), fmt.Errorf("field %s is not settable", f.name))
		}
		dst.Set(v)
	}
	return rv, nil
}

// fieldByIndexAlloc walks index, allocating nil embedded pointers on the way.
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, v.CanSet()
}

// decodeValue rebuilds raw as a value of the declared type t.
func (w *walker) decodeValue(raw any, t reflect.Type, path string) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}

	leave, err := w.enter(reflect.ValueOf(raw), path)
	if err != nil {
		return reflect.Value{}, err
	}
	defer leave()

	return w.decodeTyped(raw, t, path)
}

// decodeTyped dispatches a non-nil raw value already on the walk path.
func (w *walker) decodeTyped(raw any, t reflect.Type, path string) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Interface:
		return w.decodeUnknown(raw, t, path)
	case reflect.Pointer:
		if rv := reflect.ValueOf(raw); rv.Type() == t {
			return rv, nil
		}
		inner, err := w.decodeTyped(raw, t.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(inner)
		return ptr, nil
	}

	if _, ok := w.reg.lookup(t); ok {
		if rv := reflect.ValueOf(raw); rv.Type() == t {
			return rv, nil
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return reflect.Value{}, newPathError(ErrUnconvertible, path, fmt.Errorf("want mapping for %s, got %T", t, raw))
		}
		return w.decodeDict(m, t, path)
	}
	return w.decodePlain(raw, t, path)
}

// decodeUnknown handles interface-typed destinations. Mappings carrying the type
// key are rebuilt; everything else passes through with its children walked.
func (w *walker) decodeUnknown(raw any, t reflect.Type, path string) (reflect.Value, error) {
	var out any
	switch v := raw.(type) {
	case map[string]any:
		if _, tagged := v[w.reg.typeKey]; tagged {
			rebuilt, err := w.decodeDict(v, t, path)
			if err == nil {
				return rebuilt, nil
			}
			if w.opts.strict || !errors.Is(err, ErrUnknownType) {
				return reflect.Value{}, err
			}
		}
		m := make(map[string]any, len(v))
		for k, e := range v {
			ev, err := w.decodeValue(e, anyType, keyPath(path, k))
			if err != nil {
				return reflect.Value{}, err
			}
			m[k] = ev.Interface()
		}
		out = m

	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			ev, err := w.decodeValue(e, anyType, indexPath(path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			s[i] = ev.Interface()
		}
		out = s

	default:
		out = raw
	}

	rv := reflect.ValueOf(out)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, newPathError(ErrUnconvertible, path, fmt.Errorf("%T does not implement %s", out, t))
	}
	if t == anyType {
		return rv, nil
	}
	return rv.Convert(t), nil
}

// decodePlain rebuilds raw as t by kind without consulting the registry for t itself.
func (w *walker) decodePlain(raw any, t reflect.Type, path string) (reflect.Value, error) {
	rv := reflect.ValueOf(raw)
	unconvertible := func() (reflect.Value, error) {
		return reflect.Value{}, newPathError(ErrUnconvertible, path, fmt.Errorf("cannot assign %T to %s", raw, t))
	}

	switch t.Kind() {
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			switch b := raw.(type) {
			case []byte:
				return reflect.ValueOf(bytes.Clone(b)).Convert(t), nil
			case string:
				dec, err := base64.StdEncoding.DecodeString(b)
				if err != nil {
					return reflect.Value{}, newPathError(ErrUnconvertible, path, err)
				}
				return reflect.ValueOf(dec).Convert(t), nil
			}
		}
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return unconvertible()
		}
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := w.decodeValue(rv.Index(i).Interface(), t.Elem(), indexPath(path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case reflect.Array:
		if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() != t.Len() {
			return unconvertible()
		}
		out := reflect.New(t).Elem()
		for i := 0; i < rv.Len(); i++ {
			ev, err := w.decodeValue(rv.Index(i).Interface(), t.Elem(), indexPath(path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case reflect.Map:
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || t.Key().Kind() != reflect.String {
			return unconvertible()
		}
		out := reflect.MakeMapWithSize(t, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			ev, err := w.decodeValue(iter.Value().Interface(), t.Elem(), keyPath(path, k))
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
		return out, nil

	case reflect.Bool, reflect.String:
		if rv.Kind() == t.Kind() {
			return rv.Convert(t), nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		v, err := convertNumber(rv, t)
		if err != nil {
			return reflect.Value{}, newPathError(ErrUnconvertible, path, err)
		}
		return v, nil
	}

	if rv.Type().AssignableTo(t) {
		return rv.Convert(t), nil
	}
	if rv.Kind() == reflect.String && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(rv.String())); err != nil {
			return reflect.Value{}, newPathError(ErrUnconvertible, path, err)
		}
		return ptr.Elem(), nil
	}
	return unconvertible()
}

// convertNumber converts between numeric kinds, rejecting overflow and
// fractional values bound for integer types.
func convertNumber(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	dst := reflect.New(t).Elem()

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		switch {
		case isInt(t) && !dst.OverflowInt(n):
			dst.SetInt(n)
		case isUint(t) && n >= 0 && !dst.OverflowUint(uint64(n)):
			dst.SetUint(uint64(n))
		case isFloat(t):
			dst.SetFloat(float64(n))
		default:
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		switch {
		case isInt(t) && u <= math.MaxInt64 && !dst.OverflowInt(int64(u)):
			dst.SetInt(int64(u))
		case isUint(t) && !dst.OverflowUint(u):
			dst.SetUint(u)
		case isFloat(t):
			dst.SetFloat(float64(u))
		default:
			return reflect.Value{}, fmt.Errorf("%d overflows %s", u, t)
		}

	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		switch {
		case isFloat(t) && !dst.OverflowFloat(f):
			dst.SetFloat(f)
		case (isInt(t) || isUint(t)) && f != math.Trunc(f):
			return reflect.Value{}, fmt.Errorf("%v is not an integer", f)
		case isInt(t) && f >= math.MinInt64 && f < math.MaxInt64 && !dst.OverflowInt(int64(f)):
			dst.SetInt(int64(f))
		case isUint(t) && f >= 0 && f < math.MaxUint64 && !dst.OverflowUint(uint64(f)):
			dst.SetUint(uint64(f))
		default:
			return reflect.Value{}, fmt.Errorf("%v overflows %s", f, t)
		}

	default:
		return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", rv.Type(), t)
	}

	return dst, nil
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}
