// Package section implements the wire-format primitives of the record
// buffer: the fixed 20-byte header and the 20-byte index entries.
//
// A record buffer has three regions:
//
//	┌──────────────────────────────────────────────┐
//	│ Header (20 bytes)                            │
//	│   field_count: uint32 (LE)                   │
//	│   reserved:    [16]byte (zero)               │
//	├──────────────────────────────────────────────┤
//	│ Index (20 bytes × field_count)               │
//	│   name_hash:   uint64 (LE)   ← sorted        │
//	│   data_offset: uint32 (LE)                   │
//	│   data_length: uint32 (LE)                   │
//	│   type_tag:    uint8                         │
//	│   padding:     [3]byte (zero)                │
//	├──────────────────────────────────────────────┤
//	│ Data (variable)                              │
//	│   field payloads packed sequentially         │
//	└──────────────────────────────────────────────┘
//
// The index is sorted by name_hash ascending; readers binary-search it.
// Offsets in index entries are absolute byte offsets into the buffer.
// No padding is inserted before the index, so entry fields are read with
// unaligned little-endian loads.
package section
