// Package spookydb provides an embedded record store built around a compact
// self-describing binary record format.
//
// Structured records are encoded into a single contiguous buffer: a fixed
// header, an index of 20-byte entries sorted by xxHash64 field-name hash,
// and the packed field payloads. Any field can be located in O(log n) by
// name without parsing the rest of the buffer, or in O(1) through a cached
// FieldSlot. On top of the format sits a persistence envelope that stores
// record bytes in an embedded transactional key-value store, keeps
// per-table membership sets in memory for zero-I/O existence queries, and
// caches recently written records in a bounded LRU.
//
// # Basic Usage
//
// Encoding and reading a record:
//
//	fields := map[string]record.Value{
//	    "name": record.Str("Alice"),
//	    "age":  record.Int(28),
//	}
//	buf, _, err := record.Serialize(fields)
//	rec, err := record.NewRecord(buf)
//	age, ok := rec.GetInt64("age") // 28, true
//
// Mutating in place:
//
//	mut, err := record.NewRecordMut(buf)
//	_ = mut.SetInt64("age", 29) // in-place, no reallocation
//
// Persisting:
//
//	db, err := store.Open("/var/lib/myapp/spooky")
//	defer db.Close()
//	_, _, err = db.ApplyMutation("users", store.OpCreate, "u1", mut.Bytes(), nil)
//
// # Package Structure
//
// This package provides thin top-level wrappers around the record and store
// packages, which hold the full API: record for the binary format and
// views, store for the persistence envelope, section for the raw wire
// primitives, and compress for the at-rest value codecs.
package spookydb

import (
	"github.com/spookydb/spookydb/internal/hash"
	"github.com/spookydb/spookydb/record"
	"github.com/spookydb/spookydb/store"
)

// FieldID computes the xxHash64 id of a field name, as stored in record
// index entries. Identical across all writers and readers.
func FieldID(name string) uint64 {
	return hash.ID(name)
}

// Serialize encodes a map of native Values into a record buffer.
func Serialize(fields map[string]record.Value) ([]byte, int, error) {
	return record.Serialize(fields)
}

// NewRecord validates a byte slice and returns an immutable record view.
func NewRecord(data []byte) (record.Record, error) {
	return record.NewRecord(data)
}

// NewRecordMut creates a mutable record view, taking ownership of buf.
func NewRecordMut(buf []byte) (*record.RecordMut, error) {
	return record.NewRecordMut(buf)
}

// Open opens or creates a store in the given directory.
func Open(path string, opts ...store.Option) (*store.Store, error) {
	return store.Open(path, opts...)
}
