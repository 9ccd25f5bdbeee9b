package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/record"
)

func TestApplyMutation_CreateUpdateDelete(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})

	id, delta, err := s.ApplyMutation("t", OpCreate, "r", data, nil)
	require.NoError(t, err)
	require.Equal(t, "r", id)
	require.Equal(t, Weight(1), delta)
	require.Equal(t, Weight(1), s.ZSetWeight("t", "r"))
	require.Equal(t, 1, s.TableLen("t"))

	updated := recordBytes(t, map[string]record.Value{"n": record.Int(2)})
	_, delta, err = s.ApplyMutation("t", OpUpdate, "r", updated, nil)
	require.NoError(t, err)
	require.Zero(t, delta)
	require.Equal(t, 1, s.TableLen("t"))

	got, found, err := s.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, updated, got)

	_, delta, err = s.ApplyMutation("t", OpDelete, "r", nil, nil)
	require.NoError(t, err)
	require.Equal(t, Weight(-1), delta)
	require.Zero(t, s.ZSetWeight("t", "r"))
	require.Zero(t, s.TableLen("t"))

	_, found, err = s.RecordBytes("t", "r")
	require.NoError(t, err)
	require.False(t, found)
	_, ok := s.RowRecord("t", "r")
	require.False(t, ok)
}

func TestApplyMutation_InvalidTable(t *testing.T) {
	s, _ := openTestStore(t)

	_, _, err := s.ApplyMutation("bad:name", OpCreate, "r", nil, nil)
	require.ErrorIs(t, err, errs.ErrInvalidKey)
}

func TestApplyMutation_DeleteOfNonexistent(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.EnsureTable("t"))

	// The nominal delta is reported, but membership is clamped at absence.
	id, delta, err := s.ApplyMutation("t", OpDelete, "ghost", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "ghost", id)
	require.Equal(t, Weight(-1), delta)
	require.Zero(t, s.TableLen("t"))
	require.Zero(t, s.ZSetWeight("t", "ghost"))
}

func TestApplyBatch_SingleCommitManyTables(t *testing.T) {
	s, _ := openTestStore(t)

	tables := []string{"users", "orders", "items"}
	var mutations []Mutation
	for i := range 60 {
		table := tables[i%3]
		data := recordBytes(t, map[string]record.Value{"i": record.Int(int64(i))})
		mutations = append(mutations, Mutation{
			Table: table,
			ID:    fmt.Sprintf("r%d", i),
			Op:    OpCreate,
			Data:  data,
		})
	}

	result, err := s.ApplyBatch(mutations)
	require.NoError(t, err)

	// Tables appear once, in first-appearance order.
	require.Equal(t, []string{"users", "orders", "items"}, result.ChangedTables)

	for _, table := range tables {
		require.Len(t, result.MembershipDeltas[table], 20)
		require.Len(t, result.ContentUpdates[table], 20)
		require.Equal(t, 20, s.TableLen(table))
		for id, delta := range result.MembershipDeltas[table] {
			require.Equal(t, Weight(1), delta)
			require.Equal(t, Weight(1), s.ZSetWeight(table, id))
		}
	}
}

func TestApplyBatch_DeltaSuppression(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})
	_, _, err := s.ApplyMutation("t", OpCreate, "existing", data, nil)
	require.NoError(t, err)

	result, err := s.ApplyBatch([]Mutation{
		{Table: "t", ID: "fresh", Op: OpCreate, Data: data},
		{Table: "t", ID: "existing", Op: OpUpdate, Data: data},
		{Table: "t", ID: "ghost", Op: OpDelete},
		{Table: "t", ID: "existing", Op: OpDelete},
	})
	require.NoError(t, err)

	// Update contributes no delta; the delete of an absent id is
	// suppressed; the real create and the real delete survive.
	deltas := result.MembershipDeltas["t"]
	require.Equal(t, ZSet{"fresh": 1, "existing": -1}, deltas)

	require.Equal(t, []string{"t"}, result.ChangedTables)
	require.Equal(t, map[string]struct{}{"fresh": {}, "existing": {}}, result.ContentUpdates["t"])

	require.Equal(t, Weight(1), s.ZSetWeight("t", "fresh"))
	require.Zero(t, s.ZSetWeight("t", "existing"))
}

func TestApplyBatch_ValidatesUpFront(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})
	_, err := s.ApplyBatch([]Mutation{
		{Table: "ok", ID: "r1", Op: OpCreate, Data: data},
		{Table: "bad:name", ID: "r2", Op: OpCreate, Data: data},
	})
	require.ErrorIs(t, err, errs.ErrInvalidKey)

	// The whole batch failed before any disk work: no in-memory change.
	require.False(t, s.TableExists("ok"))
	_, found, err := s.RecordBytes("ok", "r1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestApplyBatch_InputOrderVisibility(t *testing.T) {
	s, _ := openTestStore(t)

	first := recordBytes(t, map[string]record.Value{"v": record.Int(1)})
	second := recordBytes(t, map[string]record.Value{"v": record.Int(2)})

	// Later mutations of the same id win, in input order.
	result, err := s.ApplyBatch([]Mutation{
		{Table: "t", ID: "r", Op: OpCreate, Data: first},
		{Table: "t", ID: "r", Op: OpUpdate, Data: second},
	})
	require.NoError(t, err)
	require.Equal(t, ZSet{"r": 1}, result.MembershipDeltas["t"])

	got, found, err := s.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, second, got)
}

func TestApplyBatch_Versions(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})
	v := uint64(42)

	_, err := s.ApplyBatch([]Mutation{
		{Table: "t", ID: "r", Op: OpCreate, Data: data, Version: &v},
	})
	require.NoError(t, err)

	got, found, err := s.Version("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), got)
}

func TestBulkLoad(t *testing.T) {
	s, _ := openTestStore(t, WithCacheCapacity(3))

	var records []BulkRecord
	for i := range 10 {
		data := recordBytes(t, map[string]record.Value{"i": record.Int(int64(i))})
		records = append(records, BulkRecord{
			Table: "t",
			ID:    fmt.Sprintf("r%d", i),
			Data:  data,
		})
	}

	require.NoError(t, s.BulkLoad(records))
	require.Equal(t, 10, s.TableLen("t"))

	// The cache holds only the newest writes; everything is on disk.
	cached := 0
	for i := range 10 {
		if _, ok := s.RowRecord("t", fmt.Sprintf("r%d", i)); ok {
			cached++
		}
	}
	require.Equal(t, 3, cached)

	for i := range 10 {
		_, found, err := s.RecordBytes("t", fmt.Sprintf("r%d", i))
		require.NoError(t, err)
		require.True(t, found)
	}
}

func TestWriteThroughCacheConsistency(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"v": record.Int(1)})
	_, _, err := s.ApplyMutation("t", OpCreate, "r", data, nil)
	require.NoError(t, err)

	updated := recordBytes(t, map[string]record.Value{"v": record.Int(2)})
	_, _, err = s.ApplyMutation("t", OpUpdate, "r", updated, nil)
	require.NoError(t, err)

	// The cached row view reflects the update immediately.
	rec, ok := s.RowRecord("t", "r")
	require.True(t, ok)
	v, ok := rec.GetInt64("v")
	require.True(t, ok)
	require.Equal(t, int64(2), v)

	_, _, err = s.ApplyMutation("t", OpDelete, "r", nil, nil)
	require.NoError(t, err)
	_, ok = s.RowRecord("t", "r")
	require.False(t, ok)
}
