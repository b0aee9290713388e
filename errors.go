package autodict

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnregisteredType indicates a value or target type was never marked dictable,
	// or was marked for the other direction only.
	ErrUnregisteredType = errors.New("unregistered type")

	// ErrUnknownType indicates a registry lookup by identifier or type found nothing.
	ErrUnknownType = errors.New("unknown type")

	// ErrMissingTypeInfo indicates a reverse transform had neither an explicit type
	// nor an embedded type identifier.
	ErrMissingTypeInfo = errors.New("missing type info")

	// ErrReconstruction indicates every reconstruction strategy for a type failed.
	ErrReconstruction = errors.New("reconstruction failed")

	// ErrDuplicateRegistration indicates a conflicting registration of an identifier or type.
	ErrDuplicateRegistration = errors.New("duplicate registration")

	// ErrCyclicReference indicates the walk revisited a value on its own path,
	// or exceeded the configured depth.
	ErrCyclicReference = errors.New("cyclic reference")

	// ErrReservedKey indicates a mapping key collides with the reserved type key.
	ErrReservedKey = errors.New("reserved key collision")

	// ErrInvalidTag indicates a dict struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrNotMapping indicates ToDict was given a value that does not produce a mapping.
	ErrNotMapping = errors.New("not a mapping")

	// ErrUnconvertible indicates a mapped value cannot be assigned to its declared field type.
	ErrUnconvertible = errors.New("unconvertible value")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")
)

// TypeError represents a registry-level failure.
// It wraps a sentinel error with the type name and identifier involved.
type TypeError struct {
	Err      error  // Underlying sentinel error (ErrUnknownType, ErrUnregisteredType, etc.)
	TypeName string // Go type name, if known
	ID       string // Type identifier, if known
	Detail   string // Optional extra context
}

func (e *TypeError) Error() string {
	msg := e.Err.Error()
	switch {
	case e.TypeName != "" && e.ID != "":
		msg = fmt.Sprintf("%s %s (id %q)", msg, e.TypeName, e.ID)
	case e.TypeName != "":
		msg = fmt.Sprintf("%s %s", msg, e.TypeName)
	case e.ID != "":
		msg = fmt.Sprintf("%s (id %q)", msg, e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// PathError represents a failure at a specific location inside the walked value.
type PathError struct {
	Err   error  // Underlying sentinel error (ErrCyclicReference, ErrUnconvertible, etc.)
	Path  string // Location of the failing value, e.g. students[1].age
	Cause error  // Original error, if any
}

func (e *PathError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %v", e.Err.Error(), path, e.Cause)
	}
	return fmt.Sprintf("%s at %s", e.Err.Error(), path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ReconstructionError reports that a registered type could not be rebuilt from a mapping.
// It unwraps to both ErrReconstruction and the underlying cause.
type ReconstructionError struct {
	TypeName string
	Path     string
	Cause    error
}

func (e *ReconstructionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s for %s at %s: %v", ErrReconstruction.Error(), e.TypeName, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s for %s: %v", ErrReconstruction.Error(), e.TypeName, e.Cause)
}

func (e *ReconstructionError) Unwrap() []error {
	return []error{ErrReconstruction, e.Cause}
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	Cause error // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func newTypeError(sentinel error, typeName, id string) error {
	return &TypeError{
		Err:      sentinel,
		TypeName: typeName,
		ID:       id,
	}
}

func newPathError(sentinel error, path string, cause error) error {
	return &PathError{
		Err:   sentinel,
		Path:  path,
		Cause: cause,
	}
}

func newCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}

// isTaxonomyError reports whether err already carries this package's diagnostics,
// in which case it propagates to the caller unchanged.
func isTaxonomyError(err error) bool {
	var te *TypeError
	var pe *PathError
	var re *ReconstructionError
	return errors.As(err, &te) || errors.As(err, &re) ||
		(errors.As(err, &pe) && !errors.Is(err, ErrUnconvertible))
}
