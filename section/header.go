package section

import (
	"github.com/spookydb/spookydb/endian"
	"github.com/spookydb/spookydb/errs"
)

// Header represents the fixed-size header of a record buffer.
//
// It is 20 bytes on the wire: a 4-byte little-endian field count followed by
// 16 reserved bytes written as zero. The reserved bytes are parsed and kept
// so a future format revision can round-trip them.
type Header struct {
	// FieldCount is the number of fields stored in the record, max 32.
	FieldCount uint32

	// Reserved must be zero in the current format.
	Reserved [16]byte
}

// NewHeader creates a new Header with the given field count.
//
// Returns ErrTooManyFields if fieldCount exceeds MaxFieldCount.
func NewHeader(fieldCount int) (Header, error) {
	if fieldCount < 0 || fieldCount > MaxFieldCount {
		return Header{}, errs.ErrTooManyFields
	}

	return Header{FieldCount: uint32(fieldCount)}, nil //nolint: gosec
}

// Parse parses the header from a byte slice using the specified endian engine.
//
// Returns ErrInvalidBuffer if data is shorter than HeaderSize.
func (h *Header) Parse(data []byte, engine endian.EndianEngine) error {
	if len(data) < HeaderSize {
		return errs.ErrInvalidBuffer
	}

	h.FieldCount = engine.Uint32(data[0:4])
	copy(h.Reserved[:], data[4:HeaderSize])

	return nil
}

// Bytes returns the header as a byte slice using the specified endian engine.
func (h *Header) Bytes(engine endian.EndianEngine) []byte {
	var b [HeaderSize]byte // stack allocation, it's faster than heap allocation
	engine.PutUint32(b[0:4], h.FieldCount)
	copy(b[4:HeaderSize], h.Reserved[:])

	return b[:]
}

// WriteToSlice writes the header into a pre-allocated slice.
//
// The slice must have space for HeaderSize bytes at offset 0.
func (h *Header) WriteToSlice(data []byte, engine endian.EndianEngine) {
	engine.PutUint32(data[0:4], h.FieldCount)
	copy(data[4:HeaderSize], h.Reserved[:])
}

// ParseFieldCount reads only the field count from a record buffer prefix.
//
// This is the hot path for view construction, which does not need the
// reserved bytes.
func ParseFieldCount(data []byte, engine endian.EndianEngine) (int, error) {
	if len(data) < HeaderSize {
		return 0, errs.ErrInvalidBuffer
	}

	return int(engine.Uint32(data[0:4])), nil
}
