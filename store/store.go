// Package store implements the spookydb persistence envelope: durable
// per-record storage in an embedded transactional key-value store, an
// in-memory membership set for zero-I/O existence queries, and a bounded
// write-through LRU cache of record bytes for disk-free hot reads.
//
// A Store is single-owner and synchronous. Mutating methods require
// exclusive use; read methods may run concurrently with each other but not
// with a mutation. Callers needing multi-threaded access externalize
// synchronization. The atomicity protocol is commit-before-mutate-in-memory:
// disk commits first, and the membership set and cache are only updated
// after a successful commit, so a failed commit never corrupts the
// in-memory view.
package store

import (
	"bytes"
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/spookydb/spookydb/compress"
	"github.com/spookydb/spookydb/endian"
	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/internal/options"
	"github.com/spookydb/spookydb/record"
)

const (
	dbFileName   = "spooky.db"
	lockFileName = "LOCK"

	// keyScratchSize covers realistic "<table>:<id>" keys without a heap
	// allocation per write.
	keyScratchSize = 512
)

var (
	bucketRecords  = []byte("records")
	bucketVersions = []byte("versions")
)

var engine = endian.GetLittleEndianEngine()

// Store is the top-level persistence handle.
//
// It owns the embedded store, the membership set, and the row cache
// exclusively; there is no shared-ownership wrapper and no internal locking.
type Store struct {
	db     *bolt.DB
	flk    *flock.Flock
	logger log.Logger

	// membership maps table name to its ZSet. Rebuilt at open, mutated only
	// in the post-commit pass of write operations.
	membership map[string]ZSet

	// cache holds uncompressed record bytes, keyed by (table, id). Writes
	// promote; reads peek without promoting, so eviction order reflects
	// write time only.
	cache *lru.Cache[RowKey, []byte]

	compression format.CompressionType
	codec       compress.Codec

	// keyBuf is the write-path scratch for composite keys. Mutating methods
	// hold the store exclusively, so no lock guards it.
	keyBuf []byte

	closed bool
}

// Open opens or creates a store in the given directory.
//
// Opening acquires a directory lock, opens the embedded store file, ensures
// the records and versions tables exist (idempotent, one committed write
// transaction), and rebuilds the in-memory membership set from a scan of all
// persisted record keys. The row cache starts cold and warms only through
// writes.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errs.NewStore("open", err)
	}

	flk := flock.New(filepath.Join(path, lockFileName))
	locked, err := flk.TryLock()
	if err != nil {
		return nil, errs.NewStore("lock", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", errs.ErrStoreLocked, path)
	}

	db, err := bolt.Open(filepath.Join(path, dbFileName), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		_ = flk.Unlock()

		return nil, errs.NewStore("open", err)
	}
	db.NoSync = !cfg.syncWrites

	codec, err := compress.GetCodec(cfg.compression)
	if err != nil {
		_ = db.Close()
		_ = flk.Unlock()

		return nil, errs.NewStore("open", err)
	}

	s := &Store{
		db:          db,
		flk:         flk,
		logger:      cfg.logger,
		membership:  make(map[string]ZSet),
		compression: cfg.compression,
		codec:       codec,
		keyBuf:      make([]byte, 0, keyScratchSize),
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketVersions); err != nil {
			return err
		}

		return nil
	}); err != nil {
		_ = db.Close()
		_ = flk.Unlock()

		return nil, errs.NewStore("create tables", err)
	}

	if err := s.rebuildMembership(); err != nil {
		_ = db.Close()
		_ = flk.Unlock()

		return nil, err
	}

	s.cache, err = lru.New[RowKey, []byte](cfg.cacheCapacity)
	if err != nil {
		_ = db.Close()
		_ = flk.Unlock()

		return nil, errs.NewStore("cache", err)
	}

	total := 0
	for _, zset := range s.membership {
		total += len(zset)
	}
	level.Info(s.logger).Log("msg", "store opened", "path", path,
		"tables", len(s.membership), "records", total, "compression", cfg.compression)

	return s, nil
}

// rebuildMembership scans all record keys and reconstructs the per-table
// membership maps. Keys are "<table>:<id>"; the first ':' is the delimiter.
func (s *Store) rebuildMembership() error {
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, _ []byte) error {
			sep := bytes.IndexByte(k, ':')
			if sep < 0 {
				return nil // not a composite key; ignore
			}

			table := string(k[:sep])
			id := string(k[sep+1:])

			zset, ok := s.membership[table]
			if !ok {
				zset = make(ZSet)
				s.membership[table] = zset
			}
			zset[id] = 1

			return nil
		})
	})
	if err != nil {
		return errs.NewStore("rebuild membership", err)
	}

	return nil
}

// Close closes the embedded store and releases the directory lock.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.db.Close()
	if uerr := s.flk.Unlock(); err == nil {
		err = uerr
	}
	if err != nil {
		return errs.NewStore("close", err)
	}

	return nil
}

// Read operations. All take the store by shared reference: they never touch
// the membership set or the cache mutably.

// TableZSet borrows the membership map of one table. Zero I/O.
//
// The returned map is live internal state: it is valid to read until the
// next mutating call on the store, and must not be modified. Callers that
// need a stable view across mutations should copy it first.
func (s *Store) TableZSet(table string) (ZSet, bool) {
	zset, ok := s.membership[table]

	return zset, ok
}

// ZSetWeight returns 1 if the record is present, 0 otherwise. Zero I/O.
func (s *Store) ZSetWeight(table, id string) Weight {
	return s.membership[table][id]
}

// RecordBytes returns a copy of the record's bytes.
//
// The lookup order is membership guard (absent records return without
// touching store or cache), then a cache peek (no recency promotion), then a
// read transaction against the records table. A disk hit does not populate
// the cache: cache contents change only through writes.
func (s *Store) RecordBytes(table, id string) ([]byte, bool, error) {
	if s.membership[table][id] == 0 {
		return nil, false, nil
	}

	if data, ok := s.cache.Peek(RowKey{Table: table, ID: id}); ok {
		return bytes.Clone(data), true, nil
	}

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get(flatKey(nil, table, id))
		if v == nil {
			return nil
		}

		decoded, err := s.decodeStoredValue(v)
		if err != nil {
			return err
		}
		out = decoded

		return nil
	})
	if err != nil {
		return nil, false, errs.NewStore("get record", err)
	}
	if out == nil {
		return nil, false, nil
	}

	return out, true, nil
}

// RowRecord returns a validated immutable view over the cached bytes of a
// record. Cache-only: membership guard, then a cache peek; a miss returns
// absent without touching disk. Callers needing the disk fallback use
// RecordBytes.
//
// The returned view borrows the cache entry; it is valid until the next
// mutation of this record.
func (s *Store) RowRecord(table, id string) (record.Record, bool) {
	if s.membership[table][id] == 0 {
		return record.Record{}, false
	}

	data, ok := s.cache.Peek(RowKey{Table: table, ID: id})
	if !ok {
		return record.Record{}, false
	}

	rec, err := record.NewRecord(data)
	if err != nil {
		return record.Record{}, false
	}

	return rec, true
}

// RecordValue fetches a record (cache or disk) and reconstructs the named
// fields as a native object Value. Fields absent from the record are
// skipped.
func (s *Store) RecordValue(table, id string, fields []string) (record.Value, bool, error) {
	m, found, err := TypedRecord(s, record.ValueBuilder{}, table, id, fields)
	if err != nil || !found {
		return record.Value{}, found, err
	}

	return record.Object(m), true, nil
}

// TypedRecord fetches a record (cache or disk) and reconstructs the named
// fields into any value family via its Builder. The result maps each
// supplied name to its decoded value; names not present in the record are
// skipped.
func TypedRecord[V any](s *Store, b record.Builder[V], table, id string, fields []string) (map[string]V, bool, error) {
	data, found, err := s.RecordBytes(table, id)
	if err != nil || !found {
		return nil, found, err
	}

	rec, err := record.NewRecord(data)
	if err != nil {
		return nil, false, errs.NewSerialization(err)
	}

	out := make(map[string]V, len(fields))
	for _, name := range fields {
		if v, ok := record.DecodeNamed(rec, b, name); ok {
			out[name] = v
		}
	}

	return out, true, nil
}

// Version returns the stored version number of a record, if one was written.
// The membership guard runs first, so versions of deleted records read as
// absent without I/O.
func (s *Store) Version(table, id string) (uint64, bool, error) {
	if s.membership[table][id] == 0 {
		return 0, false, nil
	}

	var (
		version uint64
		found   bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketVersions).Get(flatKey(nil, table, id))
		if len(v) != 8 {
			return nil
		}
		version = engine.Uint64(v)
		found = true

		return nil
	})
	if err != nil {
		return 0, false, errs.NewStore("get version", err)
	}

	return version, found, nil
}

// ScanTable iterates one table's records in id order, yielding each id and
// a copy of its bytes. The iteration runs inside a single read transaction;
// breaking out of the loop ends the transaction.
func (s *Store) ScanTable(table string) iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		prefix := flatKey(nil, table, "") // "<table>:"

		_ = s.db.View(func(tx *bolt.Tx) error {
			c := tx.Bucket(bucketRecords).Cursor()
			for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				decoded, err := s.decodeStoredValue(v)
				if err != nil {
					return err
				}
				if !yield(string(k[len(prefix):]), decoded) {
					return nil
				}
			}

			return nil
		})
	}
}

// Table metadata.

// TableExists reports whether the membership set knows this table.
func (s *Store) TableExists(table string) bool {
	_, ok := s.membership[table]

	return ok
}

// TableNames iterates the names of all known tables, in unspecified order.
func (s *Store) TableNames() iter.Seq[string] {
	return maps.Keys(s.membership)
}

// TableLen returns the number of present records in a table. Zero I/O.
func (s *Store) TableLen(table string) int {
	return len(s.membership[table])
}

// EnsureTable registers a table in the membership set if absent. The name is
// validated against the key schema (no ':').
func (s *Store) EnsureTable(table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}

	if _, ok := s.membership[table]; !ok {
		s.membership[table] = make(ZSet)
	}

	return nil
}

// Internal helpers.

// validateTableName rejects table names containing the composite-key
// delimiter.
func validateTableName(table string) error {
	if strings.IndexByte(table, ':') >= 0 {
		return fmt.Errorf("%w: table name %q contains ':'", errs.ErrInvalidKey, table)
	}

	return nil
}

// flatKey appends "<table>:<id>" to dst and returns it. Record ids may
// contain ':'; only the first delimiter in the composite key is significant.
func flatKey(dst []byte, table, id string) []byte {
	dst = append(dst, table...)
	dst = append(dst, ':')

	return append(dst, id...)
}

// flatKeyScratch builds the composite key into the store's reused write
// scratch. Only write paths call this; they hold the store exclusively.
func (s *Store) flatKeyScratch(table, id string) []byte {
	s.keyBuf = flatKey(s.keyBuf[:0], table, id)

	return s.keyBuf
}

// encodeStoredValue frames record bytes for storage: a one-byte codec
// prefix, then the (possibly compressed) payload.
func (s *Store) encodeStoredValue(data []byte) ([]byte, error) {
	if s.compression == format.CompressionNone {
		out := make([]byte, 0, len(data)+1)
		out = append(out, byte(format.CompressionNone))

		return append(out, data...), nil
	}

	compressed, err := s.codec.Compress(data)
	if err != nil {
		return nil, err
	}
	if len(compressed) == 0 && len(data) > 0 {
		// Incompressible input (LZ4 block signals this with empty output);
		// store raw instead.
		out := make([]byte, 0, len(data)+1)
		out = append(out, byte(format.CompressionNone))

		return append(out, data...), nil
	}

	out := make([]byte, 0, len(compressed)+1)
	out = append(out, byte(s.compression))

	return append(out, compressed...), nil
}

// decodeStoredValue reverses encodeStoredValue. The returned slice is a
// fresh allocation: bbolt value memory is only valid inside its transaction.
func (s *Store) decodeStoredValue(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}

	ctype := format.CompressionType(v[0])
	payload := v[1:]

	if ctype == format.CompressionNone {
		return bytes.Clone(payload), nil
	}

	codec, err := compress.GetCodec(ctype)
	if err != nil {
		return nil, err
	}

	return codec.Decompress(payload)
}
