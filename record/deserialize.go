package record

import (
	"math"
	"unicode/utf8"

	"github.com/spookydb/spookydb/format"
)

// Builder is the read-side capability set: constructors invoked by
// DecodeField based on the stored type tag to reconstruct a value of type V.
type Builder[V any] interface {
	// Null constructs a null value.
	Null() V

	// Bool constructs a boolean value.
	Bool(b bool) V

	// Int64 constructs a signed 64-bit integer value.
	Int64(i int64) V

	// Uint64 constructs an unsigned 64-bit integer value.
	Uint64(u uint64) V

	// Float64 constructs a 64-bit float value.
	Float64(f float64) V

	// String constructs a string value.
	String(s string) V

	// CBOR reconstructs a nested value from CBOR bytes. Returns false if the
	// bytes do not decode.
	CBOR(data []byte) (V, bool)
}

// DecodeField reconstructs a value from a raw field reference.
//
// Scalar payloads whose byte length does not match the width implied by the
// tag decode as absent rather than failing, matching the semantics of the
// typed accessors. Unknown tags decode as absent.
func DecodeField[V any](b Builder[V], f FieldRef) (V, bool) {
	var zero V

	switch f.TypeTag {
	case format.TagNull:
		return b.Null(), true
	case format.TagBool:
		if len(f.Data) != 1 {
			return zero, false
		}

		return b.Bool(f.Data[0] != 0), true
	case format.TagInt64:
		if len(f.Data) != 8 {
			return zero, false
		}

		return b.Int64(int64(engine.Uint64(f.Data))), true //nolint: gosec
	case format.TagFloat:
		if len(f.Data) != 8 {
			return zero, false
		}

		return b.Float64(math.Float64frombits(engine.Uint64(f.Data))), true
	case format.TagUint64:
		if len(f.Data) != 8 {
			return zero, false
		}

		return b.Uint64(engine.Uint64(f.Data)), true
	case format.TagString:
		if !utf8.Valid(f.Data) {
			return zero, false
		}

		return b.String(string(f.Data)), true
	case format.TagNested:
		return b.CBOR(f.Data)
	default:
		return zero, false
	}
}

// ValueBuilder reconstructs native Values from record fields.
type ValueBuilder struct{}

var _ Builder[Value] = ValueBuilder{}

func (ValueBuilder) Null() Value             { return Null() }
func (ValueBuilder) Bool(b bool) Value       { return Bool(b) }
func (ValueBuilder) Int64(i int64) Value     { return Int(i) }
func (ValueBuilder) Uint64(u uint64) Value   { return Uint(u) }
func (ValueBuilder) Float64(f float64) Value { return Float(f) }
func (ValueBuilder) String(s string) Value   { return Str(s) }

func (ValueBuilder) CBOR(data []byte) (Value, bool) {
	x, ok := unmarshalCBOR(data)
	if !ok {
		return Value{}, false
	}

	return valueFromAny(x), true
}
