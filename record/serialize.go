package record

import (
	"cmp"
	"math"
	"slices"

	"github.com/spookydb/spookydb/endian"
	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/internal/hash"
	"github.com/spookydb/spookydb/section"
)

// engine is the wire byte order of the record format.
var engine = endian.GetLittleEndianEngine()

// Serializer is the write-side capability set a value type must expose to be
// encoded into a record field.
//
// The field encoder queries these in a strict order (see EncodeField); the
// ordering resolves ambiguity for value types where several predicates can
// fire, e.g. a generic JSON number that is representable both as an integer
// and as a float.
type Serializer interface {
	// IsNull reports whether the value is null.
	IsNull() bool

	// IsNested reports whether the value is an array or object.
	IsNested() bool

	// AsBool extracts a boolean value, if this is a boolean.
	AsBool() (bool, bool)

	// AsInt64 extracts a signed 64-bit integer, if representable as one.
	AsInt64() (int64, bool)

	// AsUint64 extracts an unsigned 64-bit integer, if representable as one.
	AsUint64() (uint64, bool)

	// AsFloat64 extracts a 64-bit float, if representable as one.
	AsFloat64() (float64, bool)

	// AsString extracts a string, if this is a string.
	AsString() (string, bool)

	// AppendCBOR appends the CBOR encoding of the value to dst. It is only
	// invoked when IsNested reports true.
	AppendCBOR(dst []byte) ([]byte, error)
}

// EncodeField appends the wire payload of a single field value to dst and
// returns the extended slice together with the type tag that describes it.
//
// Dispatch order is strict and the first match fires:
// null, bool, int64, uint64, float64, string, nested. A value matching none
// of the capabilities encodes as null.
func EncodeField(dst []byte, v Serializer) ([]byte, format.Tag, error) {
	if v.IsNull() {
		return dst, format.TagNull, nil
	}

	if b, ok := v.AsBool(); ok {
		var bb byte
		if b {
			bb = 1
		}

		return append(dst, bb), format.TagBool, nil
	}

	if i, ok := v.AsInt64(); ok {
		return engine.AppendUint64(dst, uint64(i)), format.TagInt64, nil //nolint: gosec
	}

	if u, ok := v.AsUint64(); ok {
		return engine.AppendUint64(dst, u), format.TagUint64, nil
	}

	if f, ok := v.AsFloat64(); ok {
		return engine.AppendUint64(dst, floatBits(f)), format.TagFloat, nil
	}

	if s, ok := v.AsString(); ok {
		return append(dst, s...), format.TagString, nil
	}

	if v.IsNested() {
		out, err := v.AppendCBOR(dst)
		if err != nil {
			return dst, format.TagNull, err
		}

		return out, format.TagNested, nil
	}

	// Unknown shape, store as null.
	return dst, format.TagNull, nil
}

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}

// stagedField is one entry of the fixed-size staging area used while
// encoding a record.
type stagedField[V Serializer] struct {
	value V
	hash  uint64
}

// Serialize encodes an ordered mapping of field names to values into a
// freshly allocated record buffer.
//
// The staging area is a fixed 32-entry array on the stack; inputs with more
// fields fail with ErrTooManyFields before any allocation. Fields are sorted
// by name hash so the index satisfies the binary-search contract; two
// distinct names hashing to the same value fail with ErrHashCollision.
//
// Returns:
//   - []byte: Encoded record buffer
//   - int: Number of fields written
//   - error: ErrTooManyFields, ErrHashCollision, or a CBOR encoding error
func Serialize[V Serializer](fields map[string]V) ([]byte, int, error) {
	n := len(fields)
	if n > section.MaxFieldCount {
		return nil, 0, errs.ErrTooManyFields
	}

	// Rough capacity estimate: header + index + 16 bytes of payload per field.
	buf := make([]byte, 0, section.DataStart(n)+n*16)

	buf, err := serializeInto(fields, buf)
	if err != nil {
		return nil, 0, err
	}

	return buf, n, nil
}

// SerializeInto encodes fields into buf, clearing it first but retaining its
// capacity. This is the bulk-ingest path: one buffer amortized over many
// records.
//
// Returns the filled buffer (which may have been reallocated) and the number
// of fields written.
func SerializeInto[V Serializer](fields map[string]V, buf []byte) ([]byte, int, error) {
	n := len(fields)
	if n > section.MaxFieldCount {
		return buf, 0, errs.ErrTooManyFields
	}

	out, err := serializeInto(fields, buf[:0])
	if err != nil {
		return buf, 0, err
	}

	return out, n, nil
}

func serializeInto[V Serializer](fields map[string]V, buf []byte) ([]byte, error) {
	n := len(fields)

	// Fixed-capacity staging buffer; no heap allocation for <=32 fields.
	var stagingArr [section.MaxFieldCount]stagedField[V]
	staging := stagingArr[:0]

	for name, value := range fields {
		staging = append(staging, stagedField[V]{value: value, hash: hash.ID(name)})
	}

	// Sort by hash so the index supports binary search.
	slices.SortFunc(staging, func(a, b stagedField[V]) int {
		return cmp.Compare(a.hash, b.hash)
	})

	// Duplicate hashes would make one field unreachable; reject them.
	for i := 1; i < len(staging); i++ {
		if staging[i].hash == staging[i-1].hash {
			return buf, errs.ErrHashCollision
		}
	}

	// Reserve header and index; the zeroed region is back-filled below.
	dataStart := section.DataStart(n)
	buf = slices.Grow(buf, dataStart)[:dataStart]
	for i := range buf[:dataStart] {
		buf[i] = 0
	}
	engine.PutUint32(buf[0:4], uint32(n)) //nolint: gosec

	for i := range staging {
		dataOffset := len(buf)

		var (
			tag format.Tag
			err error
		)
		buf, tag, err = EncodeField(buf, staging[i].value)
		if err != nil {
			return buf, err
		}

		entry := section.NewIndexEntry(staging[i].hash, dataOffset, len(buf)-dataOffset, tag)
		entry.WriteToSlice(buf, section.EntryOffset(i), engine)
	}

	return buf, nil
}
