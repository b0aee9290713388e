package autodict

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/zoobzio/sentinel"
)

// Descriptor is the registry entry for a dictable type. It is immutable once registered.
type Descriptor struct {
	id        string
	typ       reflect.Type
	toDict    ToFunc
	fromDict  FromFunc
	construct FromFunc
	fields    *orderedmap.OrderedMap[string, field] // nil for non-struct types
	canTo     bool
	canFrom   bool

	// set when the converter came from an option rather than a method
	customTo   bool
	customFrom bool
}

// ID returns the type identifier embedded in mappings.
func (d *Descriptor) ID() string { return d.id }

// Type returns the registered Go type.
func (d *Descriptor) Type() reflect.Type { return d.typ }

// HasCustomToDict reports whether forward conversion bypasses field reflection.
func (d *Descriptor) HasCustomToDict() bool { return d.toDict != nil }

// HasCustomFromDict reports whether reverse conversion bypasses field reflection.
func (d *Descriptor) HasCustomFromDict() bool { return d.fromDict != nil }

// CanToDict reports whether the type may be converted to a mapping.
func (d *Descriptor) CanToDict() bool { return d.canTo }

// CanFromDict reports whether the type may be rebuilt from a mapping.
func (d *Descriptor) CanFromDict() bool { return d.canFrom }

// Keys returns the mapping keys of the declared fields in declaration order.
func (d *Descriptor) Keys() []string {
	if d.fields == nil {
		return nil
	}
	keys := make([]string, 0, d.fields.Len())
	for el := d.fields.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Registry maps type identifiers to descriptors. Create one at startup,
// register every dictable type, and hand it to New.
//
// Registries are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Descriptor
	byType map[reflect.Type]*Descriptor

	typeKey   string
	qualified bool
	keyNamer  func(string) string
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:     make(map[string]*Descriptor),
		byType:   make(map[reflect.Type]*Descriptor),
		typeKey:  DefaultTypeKey,
		keyNamer: defaultKeyNamer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TypeKey returns the reserved key holding type identifiers.
func (r *Registry) TypeKey() string {
	return r.typeKey
}

// Register marks T as dictable. Pointer types register their element type.
func Register[T any](r *Registry, opts ...RegisterOption) error {
	rt := reflect.TypeFor[T]()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == reflect.TypeFor[T]() && rt.Kind() == reflect.Struct {
		// Warm sentinel's cache so scanType finds the metadata.
		sentinel.Scan[T]()
	}
	return r.RegisterType(rt, opts...)
}

// RegisterType marks rt as dictable. Registering the same type under the same
// identifier with the same options again is a no-op; any other reuse of an identifier or type fails
// with ErrDuplicateRegistration.
func (r *Registry) RegisterType(rt reflect.Type, opts ...RegisterOption) error {
	if rt == nil {
		return &TypeError{Err: ErrUnregisteredType, Detail: "nil type"}
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.Interface {
		return &TypeError{Err: ErrUnregisteredType, TypeName: rt.String(), Detail: "interface types cannot be registered"}
	}

	reg := registration{}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.id == "" {
		reg.id = r.defaultID(rt)
	}

	desc, err := r.buildDescriptor(rt, reg)
	if err != nil {
		return err
	}

	inserted, err := r.insert(desc)
	if err != nil || !inserted {
		return err
	}

	emitTypeRegistered(context.Background(), rt.String(), desc.id, len(desc.Keys()))
	return nil
}

// insert adds desc unless an identical registration exists.
func (r *Registry) insert(desc *Descriptor) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[desc.id]; ok {
		if existing.typ == desc.typ {
			if existing.sameShape(desc) {
				return false, nil
			}
			return false, &TypeError{Err: ErrDuplicateRegistration, TypeName: desc.typ.String(), ID: desc.id,
				Detail: "already registered with different converters or directions"}
		}
		return false, &TypeError{Err: ErrDuplicateRegistration, TypeName: desc.typ.String(), ID: desc.id,
			Detail: fmt.Sprintf("identifier already taken by %s", existing.typ)}
	}
	if existing, ok := r.byType[desc.typ]; ok {
		return false, &TypeError{Err: ErrDuplicateRegistration, TypeName: desc.typ.String(), ID: desc.id,
			Detail: fmt.Sprintf("type already registered as %q", existing.id)}
	}

	r.byID[desc.id] = desc
	r.byType[desc.typ] = desc
	return true, nil
}

// sameShape reports whether two descriptors for one type agree on direction
// and on which converters are present.
func (d *Descriptor) sameShape(o *Descriptor) bool {
	return d.canTo == o.canTo &&
		d.canFrom == o.canFrom &&
		(d.toDict == nil) == (o.toDict == nil) &&
		(d.fromDict == nil) == (o.fromDict == nil) &&
		(d.construct == nil) == (o.construct == nil) &&
		d.customTo == o.customTo &&
		d.customFrom == o.customFrom
}

func (r *Registry) buildDescriptor(rt reflect.Type, reg registration) (*Descriptor, error) {
	desc := &Descriptor{
		id:         reg.id,
		typ:        rt,
		toDict:     reg.toDict,
		fromDict:   reg.fromDict,
		construct:  reg.construct,
		canTo:      !reg.noTo,
		canFrom:    !reg.noFrom,
		customTo:   reg.toDict != nil,
		customFrom: reg.fromDict != nil,
	}

	if desc.toDict == nil {
		desc.toDict = marshalerFor(rt)
	}
	if desc.fromDict == nil {
		desc.fromDict = unmarshalerFor(rt)
	}

	if rt.Kind() == reflect.Struct {
		fields, err := declaredFields(rt, scanType(rt), r.keyNamer, r.typeKey)
		if err != nil {
			return nil, err
		}
		desc.fields = fields
	}

	return desc, nil
}

func (r *Registry) defaultID(rt reflect.Type) string {
	if r.qualified && rt.PkgPath() != "" {
		return rt.PkgPath() + "." + rt.Name()
	}
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}

// LookupByID returns the descriptor registered under id.
func (r *Registry) LookupByID(id string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.byID[id]
	if !ok {
		return nil, newTypeError(ErrUnknownType, "", id)
	}
	return desc, nil
}

// LookupByType returns the descriptor of rt, dereferencing pointer types.
func (r *Registry) LookupByType(rt reflect.Type) (*Descriptor, error) {
	if rt == nil {
		return nil, newTypeError(ErrUnknownType, "<nil>", "")
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	desc, ok := r.lookup(rt)
	if !ok {
		return nil, newTypeError(ErrUnknownType, rt.String(), "")
	}
	return desc, nil
}

// lookup is the exact-type read path.
func (r *Registry) lookup(rt reflect.Type) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byType[rt]
	return desc, ok
}

// Descriptors returns every registered descriptor sorted by identifier.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, 0, len(r.byID))
	for _, desc := range r.byID {
		out = append(out, desc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
