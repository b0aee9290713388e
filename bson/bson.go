// Package bson provides a BSON codec for autodict mappings.
//
// BSON documents decode into driver types (primitive.D, primitive.A,
// primitive.Binary). When the target is a *map[string]any those are
// normalised back into plain mappings, sequences and []byte.
package bson

import (
	"github.com/zoobzio/autodict"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonCodec implements autodict.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() autodict.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*map[string]any)
	if !ok {
		return bson.Unmarshal(data, v)
	}

	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	*m = normalizeMap(doc)
	return nil
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch val := v.(type) {
	case primitive.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case primitive.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	case primitive.Binary:
		return val.Data
	default:
		return v
	}
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, e := range s {
		out[i] = normalize(e)
	}
	return out
}
