package store

import (
	"slices"

	"github.com/go-kit/log/level"
	bolt "go.etcd.io/bbolt"

	"github.com/spookydb/spookydb/errs"
)

// Write operations. All follow the commit-before-mutate-in-memory
// discipline: the embedded store commits first, and membership and cache
// are updated only afterwards. A commit failure leaves in-memory state
// untouched.

// ApplyMutation applies a single mutation in its own write transaction.
//
// For OpDelete the record and version entries are removed. Otherwise data
// (when non-nil) replaces the record bytes and version (when non-nil)
// replaces the version entry. After a successful commit the membership map
// and row cache are updated to match.
//
// Returns the record id and the nominal weight delta of the operation
// (+1 create, 0 update, -1 delete). A delete of an absent id still reports
// -1, but the membership map is clamped at absence and never goes negative.
func (s *Store) ApplyMutation(table string, op Op, id string, data []byte, version *uint64) (string, Weight, error) {
	if s.closed {
		return "", 0, errs.ErrStoreClosed
	}
	if err := validateTableName(table); err != nil {
		return "", 0, err
	}

	// Serialize-facing CPU work happens before the write transaction.
	var stored []byte
	if op.ChangesContent() && data != nil {
		var err error
		stored, err = s.encodeStoredValue(data)
		if err != nil {
			return "", 0, errs.NewSerialization(err)
		}
	}

	key := s.flatKeyScratch(table, id)

	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		versions := tx.Bucket(bucketVersions)

		if op == OpDelete {
			if err := records.Delete(key); err != nil {
				return err
			}

			return versions.Delete(key)
		}

		if stored != nil {
			if err := records.Put(key, stored); err != nil {
				return err
			}
		}
		if version != nil {
			if err := versions.Put(key, versionBytes(*version)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", 0, errs.NewStore("apply mutation", err)
	}

	// Commit succeeded; now mutate in-memory state.
	s.applyMemory(table, op, id, data)

	return id, op.WeightDelta(), nil
}

// ApplyBatch applies a sequence of mutations in one write transaction, so
// the whole batch costs a single durable commit.
//
// All table names are validated up front; the first invalid name fails the
// batch before any disk work. Mutations apply to disk in input order and
// become visible in memory in input order after the commit. The returned
// BatchResult accumulates per-table membership deltas (spurious deltas for
// deletes of absent ids and creates of present ids are suppressed), content
// updates, and the list of touched tables in first-appearance order.
func (s *Store) ApplyBatch(mutations []Mutation) (*BatchResult, error) {
	if s.closed {
		return nil, errs.ErrStoreClosed
	}

	keys := make([][]byte, len(mutations))
	stored := make([][]byte, len(mutations))
	for i := range mutations {
		mut := &mutations[i]
		if err := validateTableName(mut.Table); err != nil {
			return nil, err
		}

		keys[i] = flatKey(nil, mut.Table, mut.ID)

		if mut.Op.ChangesContent() && mut.Data != nil {
			enc, err := s.encodeStoredValue(mut.Data)
			if err != nil {
				return nil, errs.NewSerialization(err)
			}
			stored[i] = enc
		}
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		versions := tx.Bucket(bucketVersions)

		for i := range mutations {
			mut := &mutations[i]

			if mut.Op == OpDelete {
				if err := records.Delete(keys[i]); err != nil {
					return err
				}
				if err := versions.Delete(keys[i]); err != nil {
					return err
				}

				continue
			}

			if stored[i] != nil {
				if err := records.Put(keys[i], stored[i]); err != nil {
					return err
				}
			}
			if mut.Version != nil {
				if err := versions.Put(keys[i], versionBytes(*mut.Version)); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, errs.NewStore("apply batch", err)
	}

	// Commit succeeded; second pass over the input mutates in-memory state
	// and accumulates the result.
	result := &BatchResult{
		MembershipDeltas: make(map[string]ZSet),
		ContentUpdates:   make(map[string]map[string]struct{}),
	}

	for i := range mutations {
		mut := &mutations[i]

		// Observe presence before mutating: needed to suppress spurious
		// deltas for deletes of absent ids (and creates of present ones).
		wasPresent := s.membership[mut.Table][mut.ID] != 0

		s.applyMemory(mut.Table, mut.Op, mut.ID, mut.Data)

		switch mut.Op {
		case OpCreate:
			if !wasPresent {
				deltaSet(result.MembershipDeltas, mut.Table, mut.ID, 1)
			}
			contentSet(result.ContentUpdates, mut.Table, mut.ID)
		case OpUpdate:
			contentSet(result.ContentUpdates, mut.Table, mut.ID)
		case OpDelete:
			if wasPresent {
				deltaSet(result.MembershipDeltas, mut.Table, mut.ID, -1)
			}
		}

		// Tables are few per batch; a slice scan beats a set here.
		if !slices.Contains(result.ChangedTables, mut.Table) {
			result.ChangedTables = append(result.ChangedTables, mut.Table)
		}
	}

	level.Debug(s.logger).Log("msg", "batch applied",
		"mutations", len(mutations), "tables", len(result.ChangedTables))

	return result, nil
}

// BulkLoad ingests records in one write transaction; every entry is
// implicitly a create. Used for initial hydration. The row cache may not
// hold all loaded records when the batch exceeds its capacity; eviction is
// correct behavior, the records remain on disk.
func (s *Store) BulkLoad(records []BulkRecord) error {
	if s.closed {
		return errs.ErrStoreClosed
	}

	keys := make([][]byte, len(records))
	stored := make([][]byte, len(records))
	for i := range records {
		rec := &records[i]
		if err := validateTableName(rec.Table); err != nil {
			return err
		}

		keys[i] = flatKey(nil, rec.Table, rec.ID)

		enc, err := s.encodeStoredValue(rec.Data)
		if err != nil {
			return errs.NewSerialization(err)
		}
		stored[i] = enc
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		recordsBkt := tx.Bucket(bucketRecords)
		versionsBkt := tx.Bucket(bucketVersions)

		for i := range records {
			if err := recordsBkt.Put(keys[i], stored[i]); err != nil {
				return err
			}
			if records[i].Version != nil {
				if err := versionsBkt.Put(keys[i], versionBytes(*records[i].Version)); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return errs.NewStore("bulk load", err)
	}

	for i := range records {
		s.applyMemory(records[i].Table, OpCreate, records[i].ID, records[i].Data)
	}

	level.Debug(s.logger).Log("msg", "bulk load applied", "records", len(records))

	return nil
}

// applyMemory updates the membership map and row cache for one committed
// mutation. Only called after a successful commit.
func (s *Store) applyMemory(table string, op Op, id string, data []byte) {
	if op == OpDelete {
		if zset, ok := s.membership[table]; ok {
			delete(zset, id)
		}
		s.cache.Remove(RowKey{Table: table, ID: id})

		return
	}

	zset, ok := s.membership[table]
	if !ok {
		zset = make(ZSet)
		s.membership[table] = zset
	}
	zset[id] = 1

	if data != nil {
		// Write-through: the cache holds its own copy of the uncompressed
		// bytes and promotes on insert.
		s.cache.Add(RowKey{Table: table, ID: id}, slices.Clone(data))
	}
}

func deltaSet(deltas map[string]ZSet, table, id string, w Weight) {
	zset, ok := deltas[table]
	if !ok {
		zset = make(ZSet)
		deltas[table] = zset
	}
	zset[id] = w
}

func contentSet(updates map[string]map[string]struct{}, table, id string) {
	set, ok := updates[table]
	if !ok {
		set = make(map[string]struct{})
		updates[table] = set
	}
	set[id] = struct{}{}
}

func versionBytes(v uint64) []byte {
	return engine.AppendUint64(nil, v)
}
