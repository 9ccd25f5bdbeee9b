package record

import (
	"fmt"
	"iter"
	"math"
	"unicode/utf8"

	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/internal/pool"
	"github.com/spookydb/spookydb/section"
)

// RecordMut is an owned, mutable view over a record buffer.
//
// It supports the full read capability of Record plus three mutation paths
// with different costs:
//
//   - in-place overwrite for fixed-width scalars and same-length strings
//     (no layout change, generation unchanged),
//   - splice for variable-length rewrites (layout change, generation bumped),
//   - full rebuild for AddField/RemoveField (generation bumped).
//
// The generation counter guards cached FieldSlots: a slot resolved before a
// layout-changing mutation must not be used after it. Builds with the
// spookydebug tag panic on stale use; release builds use the slot's recorded
// offset unchecked: it may point at different field data, or past the end of
// a buffer that has since shrunk, where Go's bounds checks may panic.
//
// RecordMut is not safe for concurrent use.
type RecordMut struct {
	buf        []byte
	fieldCount int
	generation uint64
}

// NewRecordMut creates a mutable record view, taking ownership of buf.
//
// The buffer must be a valid record produced by Serialize or a previous
// Bytes/IntoBytes; it is validated the same way NewRecord validates.
func NewRecordMut(buf []byte) (*RecordMut, error) {
	fieldCount, err := validateBuffer(buf)
	if err != nil {
		return nil, err
	}

	return &RecordMut{buf: buf, fieldCount: fieldCount}, nil
}

// NewEmptyRecordMut creates a mutable record with zero fields: a 20-byte
// zeroed header and nothing else.
func NewEmptyRecordMut() *RecordMut {
	return &RecordMut{buf: make([]byte, section.HeaderSize)}
}

// AsRecord borrows the buffer as an immutable view. The view is valid until
// the next mutation of m.
func (m *RecordMut) AsRecord() Record {
	return Record{data: m.buf, fieldCount: m.fieldCount}
}

// Bytes borrows the underlying buffer.
func (m *RecordMut) Bytes() []byte {
	return m.buf
}

// IntoBytes returns the underlying buffer, leaving m empty. Use this to hand
// the record to the persistence layer without a copy.
func (m *RecordMut) IntoBytes() []byte {
	buf := m.buf
	m.buf = nil
	m.fieldCount = 0

	return buf
}

// ByteLen returns the total byte size of the record.
func (m *RecordMut) ByteLen() int {
	return len(m.buf)
}

// FieldCount returns the number of fields in the record.
func (m *RecordMut) FieldCount() int {
	return m.fieldCount
}

// Generation returns the current generation counter. It increments on every
// layout-changing mutation.
func (m *RecordMut) Generation() uint64 {
	return m.generation
}

// Read capability, delegated to the immutable view.

// GetString returns a string field.
func (m *RecordMut) GetString(name string) (string, bool) { return m.AsRecord().GetString(name) }

// GetInt64 returns a signed 64-bit integer field.
func (m *RecordMut) GetInt64(name string) (int64, bool) { return m.AsRecord().GetInt64(name) }

// GetUint64 returns an unsigned 64-bit integer field.
func (m *RecordMut) GetUint64(name string) (uint64, bool) { return m.AsRecord().GetUint64(name) }

// GetFloat64 returns a 64-bit float field.
func (m *RecordMut) GetFloat64(name string) (float64, bool) { return m.AsRecord().GetFloat64(name) }

// GetBool returns a boolean field.
func (m *RecordMut) GetBool(name string) (bool, bool) { return m.AsRecord().GetBool(name) }

// GetRaw returns a zero-copy reference to a field, with no type check.
func (m *RecordMut) GetRaw(name string) (FieldRef, bool) { return m.AsRecord().GetRaw(name) }

// GetNumberAsFloat64 returns any numeric field widened to float64.
func (m *RecordMut) GetNumberAsFloat64(name string) (float64, bool) {
	return m.AsRecord().GetNumberAsFloat64(name)
}

// HasField reports whether the record contains the named field.
func (m *RecordMut) HasField(name string) bool { return m.AsRecord().HasField(name) }

// FieldType returns the type tag of the named field.
func (m *RecordMut) FieldType(name string) (format.Tag, bool) { return m.AsRecord().FieldType(name) }

// Fields returns an iterator over all fields in index order.
func (m *RecordMut) Fields() iter.Seq[FieldRef] { return m.AsRecord().Fields() }

// Internal: index writes.

func (m *RecordMut) writeIndexOffset(i, offset int) {
	idx := section.EntryOffset(i)
	engine.PutUint32(m.buf[idx+8:idx+12], uint32(offset)) //nolint: gosec
}

func (m *RecordMut) writeIndexLength(i, length int) {
	idx := section.EntryOffset(i)
	engine.PutUint32(m.buf[idx+12:idx+16], uint32(length)) //nolint: gosec
}

func (m *RecordMut) writeIndexTag(i int, tag format.Tag) {
	m.buf[section.EntryOffset(i)+16] = byte(tag)
}

func (m *RecordMut) readIndexOffset(i int) int {
	idx := section.EntryOffset(i)

	return int(engine.Uint32(m.buf[idx+8 : idx+12]))
}

// fixupOffsetsAfterSplice shifts data offsets by delta bytes for all fields
// whose data starts strictly after spliceOffset, and for later index entries
// that start exactly at it (they follow a zero-length payload). The field at
// skipPos, the one just modified, is excluded.
func (m *RecordMut) fixupOffsetsAfterSplice(skipPos, spliceOffset, delta int) {
	for i := range m.fieldCount {
		if i == skipPos {
			continue
		}

		offset := m.readIndexOffset(i)
		if offset > spliceOffset || (offset == spliceOffset && i > skipPos) {
			m.writeIndexOffset(i, offset+delta)
		}
	}
}

// spliceData replaces oldLen bytes at offset with newData, handling grow,
// shrink, and same-size cases.
func (m *RecordMut) spliceData(offset, oldLen int, newData []byte) {
	newLen := len(newData)
	oldEnd := offset + oldLen

	switch {
	case newLen == oldLen:
		copy(m.buf[offset:oldEnd], newData)
	case newLen > oldLen:
		growth := newLen - oldLen
		m.buf = append(m.buf, make([]byte, growth)...)
		// Shift tail right, then write the new payload.
		copy(m.buf[oldEnd+growth:], m.buf[oldEnd:len(m.buf)-growth])
		copy(m.buf[offset:offset+newLen], newData)
	default:
		shrink := oldLen - newLen
		copy(m.buf[offset:offset+newLen], newData)
		// Shift tail left and truncate.
		copy(m.buf[oldEnd-shrink:], m.buf[oldEnd:])
		m.buf = m.buf[:len(m.buf)-shrink]
	}
}

// Typed setters, fast path: in-place overwrite, zero allocation.

// SetInt64 overwrites a signed integer field in place.
//
// Returns TypeMismatch if the field holds a different tag, ErrFieldNotFound
// if absent. The generation is unchanged.
func (m *RecordMut) SetInt64(name string, value int64) error {
	_, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}
	if entry.TypeTag != format.TagInt64 {
		return errs.NewTypeMismatch(uint8(format.TagInt64), uint8(entry.TypeTag))
	}

	off := int(entry.DataOffset)
	engine.PutUint64(m.buf[off:off+8], uint64(value)) //nolint: gosec

	return nil
}

// SetUint64 overwrites an unsigned integer field in place.
func (m *RecordMut) SetUint64(name string, value uint64) error {
	_, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}
	if entry.TypeTag != format.TagUint64 {
		return errs.NewTypeMismatch(uint8(format.TagUint64), uint8(entry.TypeTag))
	}

	off := int(entry.DataOffset)
	engine.PutUint64(m.buf[off:off+8], value)

	return nil
}

// SetFloat64 overwrites a float field in place.
func (m *RecordMut) SetFloat64(name string, value float64) error {
	_, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}
	if entry.TypeTag != format.TagFloat {
		return errs.NewTypeMismatch(uint8(format.TagFloat), uint8(entry.TypeTag))
	}

	off := int(entry.DataOffset)
	engine.PutUint64(m.buf[off:off+8], math.Float64bits(value))

	return nil
}

// SetBool overwrites a boolean field in place.
func (m *RecordMut) SetBool(name string, value bool) error {
	_, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}
	if entry.TypeTag != format.TagBool {
		return errs.NewTypeMismatch(uint8(format.TagBool), uint8(entry.TypeTag))
	}

	var b byte
	if value {
		b = 1
	}
	m.buf[entry.DataOffset] = b

	return nil
}

// String setters.

// SetString writes a string field: in place when the byte length matches,
// via splice otherwise. The splice path updates the entry length, shifts
// subsequent offsets, and bumps the generation.
func (m *RecordMut) SetString(name, value string) error {
	pos, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}
	if entry.TypeTag != format.TagString {
		return errs.NewTypeMismatch(uint8(format.TagString), uint8(entry.TypeTag))
	}

	off := int(entry.DataOffset)
	oldLen := int(entry.DataLength)

	if len(value) == oldLen {
		copy(m.buf[off:off+oldLen], value)

		return nil
	}

	delta := len(value) - oldLen
	m.spliceData(off, oldLen, []byte(value))
	m.writeIndexLength(pos, len(value))
	m.fixupOffsetsAfterSplice(pos, off, delta)
	m.generation++ // layout changed

	return nil
}

// SetStringExact writes a string field only if the new value has exactly the
// stored byte length; returns LengthMismatch otherwise. Guaranteed in-place.
func (m *RecordMut) SetStringExact(name, value string) error {
	_, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}
	if entry.TypeTag != format.TagString {
		return errs.NewTypeMismatch(uint8(format.TagString), uint8(entry.TypeTag))
	}
	if len(value) != int(entry.DataLength) {
		return errs.NewLengthMismatch(int(entry.DataLength), len(value))
	}

	off := int(entry.DataOffset)
	copy(m.buf[off:off+len(value)], value)

	return nil
}

// Generic setter: handles any type or size change.

// SetField sets an existing field to any value. Same-size payloads are
// overwritten in place (rewriting the tag if it changed); different sizes
// take the splice path and bump the generation.
func (m *RecordMut) SetField(name string, value Serializer) error {
	pos, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}

	scratch := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(scratch)

	newBytes, newTag, err := EncodeField(scratch.B, value)
	if err != nil {
		return err
	}
	scratch.B = newBytes

	off := int(entry.DataOffset)
	oldLen := int(entry.DataLength)

	if len(newBytes) == oldLen {
		if len(newBytes) > 0 {
			copy(m.buf[off:off+oldLen], newBytes)
		}
		if newTag != entry.TypeTag {
			m.writeIndexTag(pos, newTag)
		}

		return nil
	}

	delta := len(newBytes) - oldLen
	m.spliceData(off, oldLen, newBytes)
	m.writeIndexLength(pos, len(newBytes))
	m.writeIndexTag(pos, newTag)
	m.fixupOffsetsAfterSplice(pos, off, delta)
	m.generation++ // layout changed

	return nil
}

// SetNull sets an existing field to null.
func (m *RecordMut) SetNull(name string) error {
	return m.SetField(name, Null())
}

// FieldSlot: O(1) cached access.

// Resolve performs one field lookup and returns a FieldSlot caching the
// position, offset, length, tag, and current generation. The slot feeds the
// _At accessors, which skip all hashing and searching.
//
// The slot is valid until a layout-changing mutation; see FieldSlot.
func (m *RecordMut) Resolve(name string) (FieldSlot, error) {
	pos, entry, err := m.AsRecord().findField(name)
	if err != nil {
		return FieldSlot{}, err
	}

	return FieldSlot{
		indexPos:   pos,
		dataOffset: int(entry.DataOffset),
		dataLen:    int(entry.DataLength),
		typeTag:    entry.TypeTag,
		generation: m.generation,
	}, nil
}

// assertFresh panics on stale slot use in spookydebug builds.
func (m *RecordMut) assertFresh(slot *FieldSlot) {
	if debugChecks && slot.generation != m.generation {
		panic(fmt.Errorf("%w: slot generation %d, record generation %d",
			errs.ErrStaleSlot, slot.generation, m.generation))
	}
}

// GetInt64At reads a signed integer field through a cached slot.
func (m *RecordMut) GetInt64At(slot *FieldSlot) (int64, bool) {
	m.assertFresh(slot)
	if slot.typeTag != format.TagInt64 || slot.dataLen != 8 {
		return 0, false
	}

	return int64(engine.Uint64(m.buf[slot.dataOffset : slot.dataOffset+8])), true //nolint: gosec
}

// GetUint64At reads an unsigned integer field through a cached slot.
func (m *RecordMut) GetUint64At(slot *FieldSlot) (uint64, bool) {
	m.assertFresh(slot)
	if slot.typeTag != format.TagUint64 || slot.dataLen != 8 {
		return 0, false
	}

	return engine.Uint64(m.buf[slot.dataOffset : slot.dataOffset+8]), true
}

// GetFloat64At reads a float field through a cached slot.
func (m *RecordMut) GetFloat64At(slot *FieldSlot) (float64, bool) {
	m.assertFresh(slot)
	if slot.typeTag != format.TagFloat || slot.dataLen != 8 {
		return 0, false
	}

	return math.Float64frombits(engine.Uint64(m.buf[slot.dataOffset : slot.dataOffset+8])), true
}

// GetBoolAt reads a boolean field through a cached slot.
func (m *RecordMut) GetBoolAt(slot *FieldSlot) (bool, bool) {
	m.assertFresh(slot)
	if slot.typeTag != format.TagBool || slot.dataLen != 1 {
		return false, false
	}

	return m.buf[slot.dataOffset] != 0, true
}

// GetStringAt reads a string field through a cached slot.
func (m *RecordMut) GetStringAt(slot *FieldSlot) (string, bool) {
	m.assertFresh(slot)
	if slot.typeTag != format.TagString {
		return "", false
	}

	data := m.buf[slot.dataOffset : slot.dataOffset+slot.dataLen]
	if !utf8.Valid(data) {
		return "", false
	}

	return string(data), true
}

// SetInt64At writes a signed integer field through a cached slot. In-place.
func (m *RecordMut) SetInt64At(slot *FieldSlot, value int64) error {
	m.assertFresh(slot)
	if slot.typeTag != format.TagInt64 {
		return errs.NewTypeMismatch(uint8(format.TagInt64), uint8(slot.typeTag))
	}

	engine.PutUint64(m.buf[slot.dataOffset:slot.dataOffset+8], uint64(value)) //nolint: gosec

	return nil
}

// SetUint64At writes an unsigned integer field through a cached slot. In-place.
func (m *RecordMut) SetUint64At(slot *FieldSlot, value uint64) error {
	m.assertFresh(slot)
	if slot.typeTag != format.TagUint64 {
		return errs.NewTypeMismatch(uint8(format.TagUint64), uint8(slot.typeTag))
	}

	engine.PutUint64(m.buf[slot.dataOffset:slot.dataOffset+8], value)

	return nil
}

// SetFloat64At writes a float field through a cached slot. In-place.
func (m *RecordMut) SetFloat64At(slot *FieldSlot, value float64) error {
	m.assertFresh(slot)
	if slot.typeTag != format.TagFloat {
		return errs.NewTypeMismatch(uint8(format.TagFloat), uint8(slot.typeTag))
	}

	engine.PutUint64(m.buf[slot.dataOffset:slot.dataOffset+8], math.Float64bits(value))

	return nil
}

// SetBoolAt writes a boolean field through a cached slot. In-place.
func (m *RecordMut) SetBoolAt(slot *FieldSlot, value bool) error {
	m.assertFresh(slot)
	if slot.typeTag != format.TagBool {
		return errs.NewTypeMismatch(uint8(format.TagBool), uint8(slot.typeTag))
	}

	var b byte
	if value {
		b = 1
	}
	m.buf[slot.dataOffset] = b

	return nil
}

// SetStringAt writes a string field through a cached slot.
//
// Conservative strategy: only same-byte-length writes are accepted; a
// different length returns LengthMismatch. Callers fall back to SetString
// and re-resolve on mismatch. Same-length writes are in-place and do not
// invalidate the slot.
func (m *RecordMut) SetStringAt(slot *FieldSlot, value string) error {
	m.assertFresh(slot)
	if slot.typeTag != format.TagString {
		return errs.NewTypeMismatch(uint8(format.TagString), uint8(slot.typeTag))
	}
	if len(value) != slot.dataLen {
		return errs.NewLengthMismatch(slot.dataLen, len(value))
	}

	copy(m.buf[slot.dataOffset:slot.dataOffset+slot.dataLen], value)

	return nil
}
