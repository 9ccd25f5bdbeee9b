// Package record implements serialization, deserialization, and views over
// the spookydb binary record format.
//
// A record is a single contiguous byte buffer: a 20-byte header, an index of
// 20-byte entries sorted by field-name hash, and the packed field payloads
// (see the section package for the exact layout). Reading a field never
// parses the whole buffer: the field is located by binary search over the
// index, or in O(1) through a cached FieldSlot.
//
// # Value representations
//
// Values are polymorphic over two capability sets instead of one concrete
// union type:
//
//   - Serializer is the write-side set: predicates and narrowing accessors
//     the field encoder queries in a strict order (null, bool, int64,
//     uint64, float64, string, nested).
//   - Builder[V] is the read-side set: constructors the field decoder
//     dispatches to based on the stored type tag.
//
// Three value families implement them: the native Value union
// (ValueBuilder), JSON values as produced by encoding/json with UseNumber
// (JSONValue / JSONBuilder), and CBOR values as produced by
// github.com/fxamacker/cbor (CBORValue / CBORBuilder). A record written from
// one family can be read back into any other.
//
// # Views
//
// Record is an immutable, copyable view over a borrowed buffer. RecordMut
// owns its buffer and additionally supports in-place overwrite,
// length-preserving writes, variable-length splice, and structural
// add/remove. Layout-changing mutations bump the view's generation counter,
// invalidating previously resolved FieldSlots; builds with the spookydebug
// tag assert slot freshness on every _At access.
package record
