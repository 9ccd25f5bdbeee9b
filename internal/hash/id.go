package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given field name.
//
// The hash is seed-0 and fixed project-wide: the same name must produce the
// same 64-bit id in every writer and reader of a record, since buffers store
// only hashes and lookups binary-search on them.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Bytes computes the xxHash64 of a raw byte slice.
func Bytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}
