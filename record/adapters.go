package record

import (
	"encoding/json"
	"math"
	"strconv"
)

var _ Serializer = Value{}

// JSONValue adapts a dynamic JSON value for record encoding.
//
// The wrapped value is expected in the shapes produced by encoding/json with
// Decoder.UseNumber: nil, bool, json.Number, string, []any, map[string]any.
// Numbers are narrowed in the encoder's dispatch order: a number
// representable as int64 stores as a signed integer, one representable only
// as uint64 stores unsigned, everything else stores as float.
type JSONValue struct {
	V any
}

// JSON wraps a decoded JSON value for record encoding.
func JSON(v any) JSONValue {
	return JSONValue{V: v}
}

var _ Serializer = JSONValue{}

// IsNull reports whether the wrapped value is JSON null.
func (j JSONValue) IsNull() bool {
	return j.V == nil
}

// IsNested reports whether the wrapped value is a JSON array or object.
func (j JSONValue) IsNested() bool {
	switch j.V.(type) {
	case []any, map[string]any:
		return true
	default:
		return false
	}
}

// AsBool extracts a boolean.
func (j JSONValue) AsBool() (bool, bool) {
	b, ok := j.V.(bool)

	return b, ok
}

// AsInt64 extracts a signed integer from a json.Number.
func (j JSONValue) AsInt64() (int64, bool) {
	n, ok := j.V.(json.Number)
	if !ok {
		return 0, false
	}

	i, err := n.Int64()
	if err != nil {
		return 0, false
	}

	return i, true
}

// AsUint64 extracts an unsigned integer from a json.Number.
func (j JSONValue) AsUint64() (uint64, bool) {
	n, ok := j.V.(json.Number)
	if !ok {
		return 0, false
	}

	u, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}

	return u, true
}

// AsFloat64 extracts a float from a json.Number. Decoders without UseNumber
// produce float64 directly; that shape is accepted too.
func (j JSONValue) AsFloat64() (float64, bool) {
	switch n := j.V.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return f, true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// AsString extracts a string.
func (j JSONValue) AsString() (string, bool) {
	s, ok := j.V.(string)

	return s, ok
}

// AppendCBOR appends the CBOR encoding of the wrapped value to dst.
//
// json.Number instances are narrowed to native numerics first; the CBOR
// codec would otherwise encode them as text.
func (j JSONValue) AppendCBOR(dst []byte) ([]byte, error) {
	return marshalCBOR(dst, normalizeJSON(j.V))
}

// normalizeJSON replaces json.Number with native numeric types, recursively.
func normalizeJSON(x any) any {
	switch t := x.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if f, err := t.Float64(); err == nil {
			return f
		}

		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeJSON(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeJSON(e)
		}

		return out
	default:
		return x
	}
}

// JSONBuilder reconstructs JSON-shaped values (any) from record fields.
type JSONBuilder struct{}

var _ Builder[any] = JSONBuilder{}

func (JSONBuilder) Null() any             { return nil }
func (JSONBuilder) Bool(b bool) any       { return b }
func (JSONBuilder) Int64(i int64) any     { return i }
func (JSONBuilder) Uint64(u uint64) any   { return u }
func (JSONBuilder) Float64(f float64) any { return f }
func (JSONBuilder) String(s string) any   { return s }

func (JSONBuilder) CBOR(data []byte) (any, bool) {
	return unmarshalCBOR(data)
}

// CBORValue adapts a dynamic CBOR value for record encoding.
//
// The wrapped value is expected in the shapes produced by
// github.com/fxamacker/cbor when decoding into any: nil, bool, uint64 (for
// non-negative integers), int64 (for negative integers), float64, string,
// []any, map[string]any.
type CBORValue struct {
	V any
}

// CBOR wraps a decoded CBOR value for record encoding.
func CBOR(v any) CBORValue {
	return CBORValue{V: v}
}

var _ Serializer = CBORValue{}

// IsNull reports whether the wrapped value is CBOR null.
func (c CBORValue) IsNull() bool {
	return c.V == nil
}

// IsNested reports whether the wrapped value is a CBOR array or map.
func (c CBORValue) IsNested() bool {
	switch c.V.(type) {
	case []any, map[string]any, map[any]any:
		return true
	default:
		return false
	}
}

// AsBool extracts a boolean.
func (c CBORValue) AsBool() (bool, bool) {
	b, ok := c.V.(bool)

	return b, ok
}

// AsInt64 extracts a signed integer. Non-negative integers decode as uint64;
// those within the int64 range narrow here so they take the signed path.
func (c CBORValue) AsInt64() (int64, bool) {
	switch n := c.V.(type) {
	case int64:
		return n, true
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}

		return 0, false
	default:
		return 0, false
	}
}

// AsUint64 extracts an unsigned integer.
func (c CBORValue) AsUint64() (uint64, bool) {
	u, ok := c.V.(uint64)

	return u, ok
}

// AsFloat64 extracts a float.
func (c CBORValue) AsFloat64() (float64, bool) {
	f, ok := c.V.(float64)

	return f, ok
}

// AsString extracts a string.
func (c CBORValue) AsString() (string, bool) {
	s, ok := c.V.(string)

	return s, ok
}

// AppendCBOR appends the CBOR re-encoding of the wrapped value to dst.
func (c CBORValue) AppendCBOR(dst []byte) ([]byte, error) {
	return marshalCBOR(dst, c.V)
}

// CBORBuilder reconstructs CBOR-shaped values (any) from record fields.
type CBORBuilder struct{}

var _ Builder[any] = CBORBuilder{}

func (CBORBuilder) Null() any             { return nil }
func (CBORBuilder) Bool(b bool) any       { return b }
func (CBORBuilder) Int64(i int64) any     { return i }
func (CBORBuilder) Uint64(u uint64) any   { return u }
func (CBORBuilder) Float64(f float64) any { return f }
func (CBORBuilder) String(s string) any   { return s }

func (CBORBuilder) CBOR(data []byte) (any, bool) {
	return unmarshalCBOR(data)
}
