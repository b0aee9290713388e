// Package json provides a JSON codec for autodict mappings.
//
// Integers decode as float64; autodict converts them back to the declared
// field type. []byte values travel as base64 strings.
package json

import (
	"encoding/json"

	"github.com/zoobzio/autodict"
)

// jsonCodec implements autodict.Codec for JSON.
type jsonCodec struct {
	prefix string
	indent string
}

// Option configures the JSON codec.
type Option func(*jsonCodec)

// WithIndent makes Marshal produce indented output.
func WithIndent(prefix, indent string) Option {
	return func(c *jsonCodec) {
		c.prefix = prefix
		c.indent = indent
	}
}

// New returns a JSON codec.
func New(opts ...Option) autodict.Codec {
	c := &jsonCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	if c.prefix != "" || c.indent != "" {
		return json.MarshalIndent(v, c.prefix, c.indent)
	}
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
