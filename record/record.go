package record

import (
	"fmt"
	"iter"
	"math"
	"unicode/utf8"

	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/internal/hash"
	"github.com/spookydb/spookydb/section"
)

// Record is a zero-copy immutable view over a record buffer.
//
// No parsing happens until a specific field is requested. Record has copy
// semantics: it is a slice header plus a field count. The view borrows the
// buffer; it is valid only while the buffer is.
type Record struct {
	data       []byte
	fieldCount int
}

// NewRecord validates a byte slice as a record buffer and returns an
// immutable view over it.
//
// Validation checks that the buffer holds the header and the full index for
// the declared field count. Builds with the spookydebug tag additionally
// verify the sorted-index invariant.
//
// Returns ErrInvalidBuffer on failure.
func NewRecord(data []byte) (Record, error) {
	fieldCount, err := validateBuffer(data)
	if err != nil {
		return Record{}, err
	}

	return Record{data: data, fieldCount: fieldCount}, nil
}

// validateBuffer is the whole-buffer validator: length covers the header,
// and the header plus declared index fit the buffer.
func validateBuffer(data []byte) (int, error) {
	fieldCount, err := section.ParseFieldCount(data, engine)
	if err != nil {
		return 0, err
	}

	if len(data) < section.DataStart(fieldCount) {
		return 0, errs.ErrInvalidBuffer
	}

	if debugChecks {
		var prev uint64
		for i := range fieldCount {
			entry, err := section.ParseEntryAt(data, i, engine)
			if err != nil {
				return 0, err
			}
			if i > 0 && entry.NameHash < prev {
				return 0, fmt.Errorf("%w: index not sorted at entry %d", errs.ErrInvalidBuffer, i)
			}
			if !entry.TypeTag.Valid() {
				return 0, fmt.Errorf("%w: tag %d at entry %d", errs.ErrUnknownTypeTag, entry.TypeTag, i)
			}
			prev = entry.NameHash
		}
	}

	return fieldCount, nil
}

// Data returns the underlying buffer.
func (r Record) Data() []byte {
	return r.data
}

// FieldCount returns the number of fields in the record.
func (r Record) FieldCount() int {
	return r.fieldCount
}

// readIndex decodes index entry i. Callers guarantee i < fieldCount; the
// buffer bounds were checked at construction.
func (r Record) readIndex(i int) (section.IndexEntry, error) {
	return section.ParseEntryAt(r.data, i, engine)
}

// findField locates a field by name.
//
// A linear scan wins for tiny indexes; binary search takes over at five
// fields, relying on the sorted-index invariant.
//
// Returns the index position and decoded entry, or ErrFieldNotFound.
func (r Record) findField(name string) (int, section.IndexEntry, error) {
	return r.findHash(hash.ID(name))
}

func (r Record) findHash(h uint64) (int, section.IndexEntry, error) {
	n := r.fieldCount
	if n == 0 {
		return 0, section.IndexEntry{}, errs.ErrFieldNotFound
	}

	if n <= 4 {
		return r.linearHashSearch(n, h)
	}

	return r.binaryHashSearch(n, h)
}

func (r Record) linearHashSearch(n int, h uint64) (int, section.IndexEntry, error) {
	for i := range n {
		if section.HashAt(r.data, i, engine) == h {
			entry, err := r.readIndex(i)
			if err != nil {
				return 0, section.IndexEntry{}, err
			}

			return i, entry, nil
		}
	}

	return 0, section.IndexEntry{}, errs.ErrFieldNotFound
}

func (r Record) binaryHashSearch(n int, h uint64) (int, section.IndexEntry, error) {
	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo)/2
		midHash := section.HashAt(r.data, mid, engine)

		switch {
		case midHash == h:
			entry, err := r.readIndex(mid)
			if err != nil {
				return 0, section.IndexEntry{}, err
			}

			return mid, entry, nil
		case midHash < h:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	return 0, section.IndexEntry{}, errs.ErrFieldNotFound
}

// payload returns the data slice of an index entry.
func (r Record) payload(entry section.IndexEntry) []byte {
	off := int(entry.DataOffset)

	return r.data[off : off+int(entry.DataLength)]
}

// GetString returns a string field. The returned string copies the payload
// bytes; invalid UTF-8 reads as absent.
func (r Record) GetString(name string) (string, bool) {
	_, entry, err := r.findField(name)
	if err != nil || entry.TypeTag != format.TagString {
		return "", false
	}

	data := r.payload(entry)
	if !utf8.Valid(data) {
		return "", false
	}

	return string(data), true
}

// GetInt64 returns a signed 64-bit integer field.
func (r Record) GetInt64(name string) (int64, bool) {
	_, entry, err := r.findField(name)
	if err != nil || entry.TypeTag != format.TagInt64 || entry.DataLength != 8 {
		return 0, false
	}

	return int64(engine.Uint64(r.payload(entry))), true //nolint: gosec
}

// GetUint64 returns an unsigned 64-bit integer field.
func (r Record) GetUint64(name string) (uint64, bool) {
	_, entry, err := r.findField(name)
	if err != nil || entry.TypeTag != format.TagUint64 || entry.DataLength != 8 {
		return 0, false
	}

	return engine.Uint64(r.payload(entry)), true
}

// GetFloat64 returns a 64-bit float field.
func (r Record) GetFloat64(name string) (float64, bool) {
	_, entry, err := r.findField(name)
	if err != nil || entry.TypeTag != format.TagFloat || entry.DataLength != 8 {
		return 0, false
	}

	return math.Float64frombits(engine.Uint64(r.payload(entry))), true
}

// GetBool returns a boolean field.
func (r Record) GetBool(name string) (bool, bool) {
	_, entry, err := r.findField(name)
	if err != nil || entry.TypeTag != format.TagBool || entry.DataLength != 1 {
		return false, false
	}

	return r.payload(entry)[0] != 0, true
}

// GetRaw returns a zero-copy reference to a field, with no type check.
func (r Record) GetRaw(name string) (FieldRef, bool) {
	_, entry, err := r.findField(name)
	if err != nil {
		return FieldRef{}, false
	}

	return FieldRef{
		NameHash: entry.NameHash,
		TypeTag:  entry.TypeTag,
		Data:     r.payload(entry),
	}, true
}

// GetNumberAsFloat64 returns any numeric field widened to float64.
func (r Record) GetNumberAsFloat64(name string) (float64, bool) {
	_, entry, err := r.findField(name)
	if err != nil || entry.DataLength != 8 {
		return 0, false
	}

	bits := engine.Uint64(r.payload(entry))

	switch entry.TypeTag {
	case format.TagFloat:
		return math.Float64frombits(bits), true
	case format.TagInt64:
		return float64(int64(bits)), true //nolint: gosec
	case format.TagUint64:
		return float64(bits), true
	default:
		return 0, false
	}
}

// HasField reports whether the record contains the named field.
func (r Record) HasField(name string) bool {
	_, _, err := r.findField(name)

	return err == nil
}

// FieldType returns the type tag of the named field.
func (r Record) FieldType(name string) (format.Tag, bool) {
	_, entry, err := r.findField(name)
	if err != nil {
		return 0, false
	}

	return entry.TypeTag, true
}

// Fields returns an iterator over all fields in index order, hence in
// ascending name-hash order. The yielded references are zero-copy.
func (r Record) Fields() iter.Seq[FieldRef] {
	return func(yield func(FieldRef) bool) {
		for i := range r.fieldCount {
			entry, err := r.readIndex(i)
			if err != nil {
				return
			}

			ref := FieldRef{
				NameHash: entry.NameHash,
				TypeTag:  entry.TypeTag,
				Data:     r.payload(entry),
			}
			if !yield(ref) {
				return
			}
		}
	}
}

// Reconstruct returns the record as a dynamic value.
//
// Field names are not stored in the buffer, so a faithful object cannot be
// synthesized; Reconstruct returns the null sentinel. Callers that know the
// field names should use DecodeNamed per field, or the store's typed read
// which takes an explicit name list.
func (r Record) Reconstruct() Value {
	return Null()
}

// DecodeNamed reconstructs the named field of r into any value family via
// its Builder. Returns absent when the field is missing or its payload does
// not decode.
func DecodeNamed[V any](r Record, b Builder[V], name string) (V, bool) {
	var zero V

	ref, ok := r.GetRaw(name)
	if !ok {
		return zero, false
	}

	return DecodeField(b, ref)
}

// GetValue reconstructs the named field as a native Value.
func (r Record) GetValue(name string) (Value, bool) {
	return DecodeNamed(r, ValueBuilder{}, name)
}
