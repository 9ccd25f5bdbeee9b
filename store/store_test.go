package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/record"
)

func openTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	s, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, dir
}

func recordBytes(t *testing.T, fields map[string]record.Value) []byte {
	t.Helper()

	buf, _, err := record.Serialize(fields)
	require.NoError(t, err)

	return buf
}

func TestOpen_EmptyStore(t *testing.T) {
	s, _ := openTestStore(t)

	require.False(t, s.TableExists("users"))
	require.Zero(t, s.TableLen("users"))
	require.Zero(t, s.ZSetWeight("users", "u1"))

	count := 0
	for range s.TableNames() {
		count++
	}
	require.Zero(t, count)
}

func TestOpen_SecondOpenIsLocked(t *testing.T) {
	s, dir := openTestStore(t)
	_ = s

	_, err := Open(dir)
	require.Error(t, err)
}

func TestEnsureTable(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.EnsureTable("users"))
	require.True(t, s.TableExists("users"))
	require.Zero(t, s.TableLen("users"))

	// Idempotent.
	require.NoError(t, s.EnsureTable("users"))

	// The delimiter is reserved.
	require.ErrorIs(t, s.EnsureTable("users:v2"), errs.ErrInvalidKey)
}

func TestMembershipRebuildAfterReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	data := recordBytes(t, map[string]record.Value{"name": record.Str("Alice")})
	_, _, err = s.ApplyMutation("users", OpCreate, "u1", data, nil)
	require.NoError(t, err)
	_, _, err = s.ApplyMutation("orders", OpCreate, "o:1", data, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	require.True(t, s2.TableExists("users"))
	require.True(t, s2.TableExists("orders"))
	require.Equal(t, Weight(1), s2.ZSetWeight("users", "u1"))

	// Record ids may contain ':'; only the first delimiter splits.
	require.Equal(t, Weight(1), s2.ZSetWeight("orders", "o:1"))

	names := map[string]bool{}
	for name := range s2.TableNames() {
		names[name] = true
	}
	require.Equal(t, map[string]bool{"users": true, "orders": true}, names)
}

func TestColdCacheAfterReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	data := recordBytes(t, map[string]record.Value{"name": record.Str("Alice")})
	_, _, err = s.ApplyMutation("t", OpCreate, "r", data, nil)
	require.NoError(t, err)

	// Fresh write is cached: the row view is served without disk.
	rec, ok := s.RowRecord("t", "r")
	require.True(t, ok)
	name, ok := rec.GetString("name")
	require.True(t, ok)
	require.Equal(t, "Alice", name)

	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	// The cache is cold: RowRecord misses, RecordBytes falls back to disk.
	_, ok = s2.RowRecord("t", "r")
	require.False(t, ok)

	got, found, err := s2.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, data, got)

	// No read-through: the miss did not populate the cache.
	_, ok = s2.RowRecord("t", "r")
	require.False(t, ok)
}

func TestRecordBytes_MembershipGuard(t *testing.T) {
	s, _ := openTestStore(t)

	_, found, err := s.RecordBytes("ghost", "g1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRecordBytes_ReturnsCopy(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})
	_, _, err := s.ApplyMutation("t", OpCreate, "r", data, nil)
	require.NoError(t, err)

	got, found, err := s.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)

	// Mutating the returned slice must not corrupt the cache.
	got[0] ^= 0xFF

	again, found, err := s.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, data, again)
}

func TestRecordValueAndTypedRecord(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{
		"name":   record.Str("Alice"),
		"age":    record.Int(28),
		"active": record.Bool(true),
	})
	_, _, err := s.ApplyMutation("users", OpCreate, "u1", data, nil)
	require.NoError(t, err)

	val, found, err := s.RecordValue("users", "u1", []string{"name", "age", "missing"})
	require.NoError(t, err)
	require.True(t, found)

	obj, ok := val.AsObject()
	require.True(t, ok)
	require.Len(t, obj, 2, "missing fields are skipped")

	name, _ := obj["name"].AsString()
	require.Equal(t, "Alice", name)
	age, _ := obj["age"].AsInt64()
	require.Equal(t, int64(28), age)

	jsonObj, found, err := TypedRecord(s, record.JSONBuilder{}, "users", "u1", []string{"active"})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, map[string]any{"active": true}, jsonObj)

	_, found, err = s.RecordValue("users", "nope", []string{"name"})
	require.NoError(t, err)
	require.False(t, found)
}

func TestVersion(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})

	// No version supplied: absent.
	_, _, err := s.ApplyMutation("t", OpCreate, "r1", data, nil)
	require.NoError(t, err)
	_, found, err := s.Version("t", "r1")
	require.NoError(t, err)
	require.False(t, found)

	v := uint64(7)
	_, _, err = s.ApplyMutation("t", OpCreate, "r2", data, &v)
	require.NoError(t, err)

	got, found, err := s.Version("t", "r2")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(7), got)

	// Deleted records read as absent without I/O.
	_, _, err = s.ApplyMutation("t", OpDelete, "r2", nil, nil)
	require.NoError(t, err)
	_, found, err = s.Version("t", "r2")
	require.NoError(t, err)
	require.False(t, found)
}

func TestScanTable(t *testing.T) {
	s, _ := openTestStore(t)

	for i := range 5 {
		id := fmt.Sprintf("r%d", i)
		data := recordBytes(t, map[string]record.Value{"i": record.Int(int64(i))})
		_, _, err := s.ApplyMutation("t", OpCreate, id, data, nil)
		require.NoError(t, err)
	}
	// Another table must not leak into the scan.
	other := recordBytes(t, map[string]record.Value{"x": record.Int(0)})
	_, _, err := s.ApplyMutation("t2", OpCreate, "z", other, nil)
	require.NoError(t, err)

	var ids []string
	for id, data := range s.ScanTable("t") {
		rec, err := record.NewRecord(data)
		require.NoError(t, err)
		_, ok := rec.GetInt64("i")
		require.True(t, ok)
		ids = append(ids, id)
	}
	require.Equal(t, []string{"r0", "r1", "r2", "r3", "r4"}, ids, "scan yields ids in key order")
}

func TestCacheEviction(t *testing.T) {
	s, _ := openTestStore(t, WithCacheCapacity(2))

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})
	for _, id := range []string{"a", "b", "c"} {
		_, _, err := s.ApplyMutation("t", OpCreate, id, data, nil)
		require.NoError(t, err)
	}

	// Oldest write evicted; the record is still on disk.
	_, ok := s.RowRecord("t", "a")
	require.False(t, ok)

	_, found, err := s.RecordBytes("t", "a")
	require.NoError(t, err)
	require.True(t, found)

	_, ok = s.RowRecord("t", "c")
	require.True(t, ok)
}

func TestValueCompressionAtRest(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, WithValueCompression(format.CompressionS2))
	require.NoError(t, err)

	data := recordBytes(t, map[string]record.Value{"name": record.Str("Alice")})
	_, _, err = s.ApplyMutation("t", OpCreate, "r", data, nil)
	require.NoError(t, err)

	got, found, err := s.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, data, got)
	require.NoError(t, s.Close())

	// Reopening with a different codec still reads old rows: each stored
	// value records the codec that wrote it.
	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, found, err = s2.RecordBytes("t", "r")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, data, got)
}

func TestTableZSetBorrow(t *testing.T) {
	s, _ := openTestStore(t)

	data := recordBytes(t, map[string]record.Value{"n": record.Int(1)})
	_, _, err := s.ApplyMutation("t", OpCreate, "r", data, nil)
	require.NoError(t, err)

	zset, ok := s.TableZSet("t")
	require.True(t, ok)
	require.Equal(t, Weight(1), zset["r"])

	_, ok = s.TableZSet("missing")
	require.False(t, ok)
}

func TestClosedStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "double close is a no-op")

	_, _, err = s.ApplyMutation("t", OpCreate, "r", nil, nil)
	require.ErrorIs(t, err, errs.ErrStoreClosed)

	_, err = s.ApplyBatch(nil)
	require.ErrorIs(t, err, errs.ErrStoreClosed)

	require.ErrorIs(t, s.BulkLoad(nil), errs.ErrStoreClosed)
}
