package section

import (
	"github.com/spookydb/spookydb/endian"
	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
)

// IndexEntry records the location of a single field in the record buffer.
// It is a fixed size of 20 bytes on the wire.
//
// Entries are stored sorted by NameHash ascending so readers can binary
// search the index. DataOffset is absolute: it points into the record
// buffer, not into the data region.
type IndexEntry struct {
	// NameHash is the xxHash64 of the field name. The name itself is not
	// stored and cannot be recovered from the buffer.
	//
	// Offset: 0, Size: 8 bytes
	NameHash uint64

	// DataOffset is the absolute byte offset of the field payload.
	//
	// Offset: 8, Size: 4 bytes
	DataOffset uint32

	// DataLength is the payload length in bytes.
	//
	// Offset: 12, Size: 4 bytes
	DataLength uint32

	// TypeTag identifies the payload encoding.
	//
	// Offset: 16, Size: 1 byte, followed by 3 bytes of zero padding
	TypeTag format.Tag
}

// NewIndexEntry creates an IndexEntry for a field payload at the given
// absolute offset.
func NewIndexEntry(nameHash uint64, dataOffset, dataLength int, tag format.Tag) IndexEntry {
	return IndexEntry{
		NameHash:   nameHash,
		DataOffset: uint32(dataOffset), //nolint: gosec
		DataLength: uint32(dataLength), //nolint: gosec
		TypeTag:    tag,
	}
}

// Bytes returns the index entry as a byte slice using the specified endian engine.
func (e *IndexEntry) Bytes(engine endian.EndianEngine) []byte {
	var b [IndexEntrySize]byte // stack allocation, it's faster than heap allocation
	engine.PutUint64(b[0:8], e.NameHash)
	engine.PutUint32(b[8:12], e.DataOffset)
	engine.PutUint32(b[12:16], e.DataLength)
	b[16] = byte(e.TypeTag)
	// b[17:20] stay zero (padding)

	return b[:]
}

// WriteToSlice writes the entry to a pre-allocated slice and returns the next
// write position.
//
// This is the most efficient method when writing multiple entries
// sequentially, e.g. while back-filling the index after the data region.
//
// Parameters:
//   - data: Pre-allocated byte slice (must have space for 20 bytes at offset)
//   - offset: Starting position in data slice
//   - engine: Endian engine for byte order
//
// Returns:
//   - int: Next write position (offset + 20)
func (e *IndexEntry) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) int {
	engine.PutUint64(data[offset:offset+8], e.NameHash)
	engine.PutUint32(data[offset+8:offset+12], e.DataOffset)
	engine.PutUint32(data[offset+12:offset+16], e.DataLength)
	data[offset+16] = byte(e.TypeTag)
	data[offset+17] = 0
	data[offset+18] = 0
	data[offset+19] = 0

	return offset + IndexEntrySize
}

// ParseIndexEntry parses an IndexEntry from a byte slice.
//
// The slice must be at least 20 bytes; the loads are unaligned because no
// padding precedes the index section.
//
// Returns:
//   - IndexEntry: Parsed index entry
//   - error: ErrInvalidBuffer if data is too short
func ParseIndexEntry(data []byte, engine endian.EndianEngine) (IndexEntry, error) {
	if len(data) < IndexEntrySize {
		return IndexEntry{}, errs.ErrInvalidBuffer
	}

	return IndexEntry{
		NameHash:   engine.Uint64(data[0:8]),
		DataOffset: engine.Uint32(data[8:12]),
		DataLength: engine.Uint32(data[12:16]),
		TypeTag:    format.Tag(data[16]),
	}, nil
}

// ParseEntryAt parses index entry i from a full record buffer.
//
// Callers must have validated the buffer length against the field count;
// ParseEntryAt only guards the slice it reads.
func ParseEntryAt(buf []byte, i int, engine endian.EndianEngine) (IndexEntry, error) {
	off := EntryOffset(i)
	if off+IndexEntrySize > len(buf) {
		return IndexEntry{}, errs.ErrInvalidBuffer
	}

	return ParseIndexEntry(buf[off:off+IndexEntrySize], engine)
}

// HashAt reads only the name hash of index entry i from a full record buffer.
//
// This is the binary-search hot path: one unaligned 8-byte load, no entry
// decode. Callers must have validated i against the field count.
func HashAt(buf []byte, i int, engine endian.EndianEngine) uint64 {
	off := EntryOffset(i)

	return engine.Uint64(buf[off : off+8])
}
