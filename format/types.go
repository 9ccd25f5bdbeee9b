// Package format defines the type tags of the spookydb record format and
// the compression type identifiers used for at-rest record values.
package format

type (
	// Tag is the 1-byte field type tag stored in each index entry.
	Tag uint8

	// CompressionType identifies an at-rest value compression codec.
	CompressionType uint8
)

const (
	TagNull   Tag = 0 // TagNull represents a null field with a 0-byte payload.
	TagBool   Tag = 1 // TagBool represents a boolean with a 1-byte payload (0 or 1).
	TagInt64  Tag = 2 // TagInt64 represents a signed 64-bit integer, 8 bytes little-endian.
	TagFloat  Tag = 3 // TagFloat represents an IEEE-754 64-bit float, 8 bytes little-endian.
	TagString Tag = 4 // TagString represents raw UTF-8 bytes, no terminator or length prefix.
	TagNested Tag = 5 // TagNested represents a CBOR-encoded array or object.
	TagUint64 Tag = 6 // TagUint64 represents an unsigned 64-bit integer, 8 bytes little-endian.

	CompressionNone CompressionType = 0x0 // CompressionNone stores record values uncompressed.
	CompressionZstd CompressionType = 0x1 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x2 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x3 // CompressionLZ4 represents LZ4 block compression.
)

// Valid reports whether t is one of the defined type tags.
func (t Tag) Valid() bool {
	return t <= TagUint64
}

// PayloadSize returns the fixed payload size in bytes for t, or -1 for
// variable-length tags (string, nested).
func (t Tag) PayloadSize() int {
	switch t {
	case TagNull:
		return 0
	case TagBool:
		return 1
	case TagInt64, TagFloat, TagUint64:
		return 8
	default:
		return -1
	}
}

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagBool:
		return "Bool"
	case TagInt64:
		return "Int64"
	case TagFloat:
		return "Float64"
	case TagString:
		return "String"
	case TagNested:
		return "Nested"
	case TagUint64:
		return "Uint64"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
