// Package yaml provides a YAML codec for autodict mappings.
package yaml

import (
	"bytes"

	"github.com/zoobzio/autodict"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements autodict.Codec for YAML.
type yamlCodec struct {
	indent int
}

// Option configures the YAML codec.
type Option func(*yamlCodec)

// WithIndent sets the number of spaces used per nesting level.
func WithIndent(spaces int) Option {
	return func(c *yamlCodec) {
		if spaces > 0 {
			c.indent = spaces
		}
	}
}

// New returns a YAML codec.
func New(opts ...Option) autodict.Codec {
	c := &yamlCodec{indent: 4}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
