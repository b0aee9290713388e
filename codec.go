package autodict

import (
	"context"
	"time"
)

// Codec provides content-type aware marshaling of mappings.
// Implementations live in the json, yaml, msgpack, bson and cbor submodules.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// Encode converts obj with ToDict and marshals the mapping with c.
func (a *AutoDict) Encode(ctx context.Context, c Codec, obj any, opts ...Option) ([]byte, error) {
	start := time.Now()

	var retErr error
	var retData []byte
	defer func() {
		emitEncodeComplete(ctx, c.ContentType(), len(retData), time.Since(start), retErr)
	}()

	m, err := a.ToDict(ctx, obj, opts...)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	data, err := c.Marshal(m)
	if err != nil {
		retErr = newCodecError(ErrMarshal, err)
		return nil, retErr
	}
	retData = data
	return retData, nil
}

// Decode unmarshals data with c and rebuilds the value it names.
func (a *AutoDict) Decode(ctx context.Context, c Codec, data []byte, opts ...Option) (any, error) {
	start := time.Now()

	var retErr error
	defer func() {
		emitDecodeComplete(ctx, c.ContentType(), len(data), time.Since(start), retErr)
	}()

	m, err := unmarshalMapping(c, data)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	var out any
	out, retErr = a.FromDict(ctx, m, opts...)
	return out, retErr
}

// DecodeInto unmarshals data with c and rebuilds it into target.
func (a *AutoDict) DecodeInto(ctx context.Context, c Codec, data []byte, target any, opts ...Option) error {
	start := time.Now()

	var retErr error
	defer func() {
		emitDecodeComplete(ctx, c.ContentType(), len(data), time.Since(start), retErr)
	}()

	m, err := unmarshalMapping(c, data)
	if err != nil {
		retErr = err
		return retErr
	}

	retErr = a.FromDictInto(ctx, m, target, opts...)
	return retErr
}

func unmarshalMapping(c Codec, data []byte) (map[string]any, error) {
	var m map[string]any
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, newCodecError(ErrUnmarshal, err)
	}
	return m, nil
}
