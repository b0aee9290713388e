// Package autodict converts registered Go values to plain mappings and back.
//
// A mapping is a map[string]any whose values are primitive scalars, []any
// sequences or nested mappings: something any serializer can encode without
// knowing your types. Each mapping produced for a registered value carries
// the type identifier under a reserved key (default "@"), which lets the
// reverse transform recover the original type.
//
// # Registry
//
// Types are marked dictable on an explicit registry created at startup:
//
//	reg := autodict.NewRegistry()
//	autodict.Register[Student](reg)
//	autodict.Register[Apartment](reg)
//
// The identifier defaults to the type name ("Student"). WithQualifiedNames
// switches the default to the package-qualified name and WithName overrides
// it per type.
//
// # Tag Syntax
//
// Mapping keys come from the dict struct tag, falling back to the snake_case
// field name:
//
//	type Student struct {
//	    Name     string `dict:"name"`
//	    Age      int    `dict:"age"`
//	    Nickname string `dict:",omitempty"`
//	    Secret   string `dict:"-"`
//	}
//
// # Basic Usage
//
//	ad := autodict.New(reg)
//
//	m, _ := ad.ToDict(ctx, Student{Name: "limo", Age: 90})
//	// map[string]any{"name": "limo", "age": 90, "@": "Student"}
//
//	v, _ := ad.FromDict(ctx, m)
//	// Student{Name: "limo", Age: 90}
//
//	s, _ := autodict.FromDictAs[Student](ctx, ad, map[string]any{"name": "limo", "age": 90})
//
// # Custom Conversion
//
// A type takes over its own conversion with converter funcs at registration
// or by implementing DictMarshaler and DictUnmarshaler:
//
//	autodict.Register[Point](reg,
//	    autodict.ToDictFunc(func(p Point) (map[string]any, error) { ... }),
//	    autodict.FromDictFunc(func(m map[string]any) (Point, error) { ... }),
//	)
//
// ConstructorFunc registers a fallback used when field-by-field
// reconstruction fails. ToDictOnly and FromDictOnly restrict a type to one
// direction.
//
// # Codec Providers
//
// The following codec implementations are available as submodules:
//
//   - json - JSON encoding (application/json)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
//   - cbor - CBOR encoding (application/cbor)
//
// AutoDict.Encode and AutoDict.Decode combine a transform with a codec.
//
// # Errors
//
// Failures are reported with sentinel errors (ErrUnregisteredType,
// ErrUnknownType, ErrMissingTypeInfo, ErrReconstruction, ...) wrapped in
// TypeError, PathError, ReconstructionError or CodecError. Use errors.Is and
// errors.As. Cyclic values are rejected with ErrCyclicReference.
package autodict
