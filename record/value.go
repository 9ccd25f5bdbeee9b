package record

import (
	"math"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
	KindObject
)

// Value is the native dynamic value type of the record layer.
//
// It is a tagged union over eight variants: null, bool, int64, uint64,
// float64 and string, plus array and object, which both store as the nested
// tag.
// The zero Value is Null. Values are cheap to copy; Array and Object share
// their backing storage between copies.
type Value struct {
	kind Kind
	num  uint64 // bool, int64, uint64, float64 bit patterns
	str  string
	arr  []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}

	return Value{kind: KindBool, num: n}
}

// Int returns a signed 64-bit integer Value.
func Int(i int64) Value {
	return Value{kind: KindInt, num: uint64(i)} //nolint: gosec
}

// Uint returns an unsigned 64-bit integer Value.
func Uint(u uint64) Value {
	return Value{kind: KindUint, num: u}
}

// Float returns a 64-bit float Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, num: math.Float64bits(f)}
}

// Str returns a string Value.
func Str(s string) Value {
	return Value{kind: KindString, str: s}
}

// Array returns an array Value holding the given elements.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Object returns an object Value wrapping the given map. The map is not
// copied; the caller must not mutate it while the Value is in use.
func Object(fields map[string]Value) Value {
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsNested reports whether v is an array or object.
func (v Value) IsNested() bool {
	return v.kind == KindArray || v.kind == KindObject
}

// AsBool returns the boolean value, if v is a boolean.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}

	return v.num != 0, true
}

// AsInt64 returns the signed integer value, if v is a signed integer.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}

	return int64(v.num), true //nolint: gosec
}

// AsUint64 returns the unsigned integer value, if v is an unsigned integer.
func (v Value) AsUint64() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}

	return v.num, true
}

// AsFloat64 returns the float value, if v is a float.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}

	return math.Float64frombits(v.num), true
}

// AsString returns the string value, if v is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}

	return v.str, true
}

// AsArray returns the element slice, if v is an array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}

	return v.arr, true
}

// AsObject returns the field map, if v is an object.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}

	return v.obj, true
}

// Get returns the named member of an object Value.
func (v Value) Get(key string) (Value, bool) {
	obj, ok := v.AsObject()
	if !ok {
		return Value{}, false
	}

	member, ok := obj[key]

	return member, ok
}

// NumberAsFloat64 returns any numeric variant widened to float64.
func (v Value) NumberAsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(int64(v.num)), true //nolint: gosec
	case KindUint:
		return float64(v.num), true
	case KindFloat:
		return math.Float64frombits(v.num), true
	default:
		return 0, false
	}
}

// AppendCBOR appends the CBOR encoding of v to dst. Part of the Serializer
// capability set; only invoked for nested values.
func (v Value) AppendCBOR(dst []byte) ([]byte, error) {
	return marshalCBOR(dst, v.toAny())
}

// toAny converts v to the plain Go shape the CBOR codec understands.
func (v Value) toAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.num != 0
	case KindInt:
		return int64(v.num) //nolint: gosec
	case KindUint:
		return v.num
	case KindFloat:
		return math.Float64frombits(v.num)
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.toAny()
		}

		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.toAny()
		}

		return out
	default:
		return nil
	}
}

// valueFromAny converts a plain Go value (as produced by the CBOR or JSON
// decoders) into a Value.
func valueFromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case int64:
		return Int(t)
	case int:
		return Int(int64(t))
	case uint64:
		return Uint(t)
	case float64:
		return Float(t)
	case string:
		return Str(t)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = valueFromAny(e)
		}

		return Value{kind: KindArray, arr: elems}
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = valueFromAny(e)
		}

		return Object(fields)
	case map[any]any:
		// CBOR maps with non-string keys; only string-keyed entries are
		// kept, the others are dropped.
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			if ks, ok := k.(string); ok {
				fields[ks] = valueFromAny(e)
			}
		}

		return Object(fields)
	default:
		return Null()
	}
}
