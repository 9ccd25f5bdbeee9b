package record

import (
	"github.com/spookydb/spookydb/format"
)

// FieldRef is a raw, zero-copy reference to one field of a record buffer.
//
// Data aliases the record buffer; the reference is valid only while the
// buffer is. No deserialization happens until the bytes are decoded.
type FieldRef struct {
	// NameHash is the xxHash64 of the field name.
	NameHash uint64

	// TypeTag identifies the payload encoding.
	TypeTag format.Tag

	// Data is the payload slice inside the record buffer.
	Data []byte
}

// FieldSlot is a cached field position for O(1) repeat access.
//
// A slot holds everything needed to read or write its field without hashing
// or searching. It is valid only while its generation matches the owning
// RecordMut's generation; any layout-changing mutation (AddField,
// RemoveField, variable-length SetString/SetField) invalidates it.
// Builds with the spookydebug tag assert freshness on every use.
type FieldSlot struct {
	indexPos   int
	dataOffset int
	dataLen    int
	typeTag    format.Tag
	generation uint64
}

// TypeTag returns the type tag recorded when the slot was resolved.
func (s FieldSlot) TypeTag() format.Tag {
	return s.typeTag
}

// DataLength returns the payload length recorded when the slot was resolved.
func (s FieldSlot) DataLength() int {
	return s.dataLen
}

// Generation returns the record generation the slot was resolved against.
func (s FieldSlot) Generation() uint64 {
	return s.generation
}
