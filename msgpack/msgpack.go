// Package msgpack provides a MessagePack codec for autodict mappings.
package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/autodict"
)

// msgpackCodec implements autodict.Codec for MessagePack.
type msgpackCodec struct {
	sortKeys bool
}

// Option configures the MessagePack codec.
type Option func(*msgpackCodec)

// WithSortedKeys makes Marshal write map keys in sorted order,
// producing identical bytes for equal mappings.
func WithSortedKeys() Option {
	return func(c *msgpackCodec) {
		c.sortKeys = true
	}
}

// New returns a MessagePack codec.
func New(opts ...Option) autodict.Codec {
	c := &msgpackCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	if !c.sortKeys {
		return msgpack.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
