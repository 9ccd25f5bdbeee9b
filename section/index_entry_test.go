package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spookydb/spookydb/endian"
	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
)

func TestIndexEntry_RoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	entry := NewIndexEntry(0xDEADBEEFCAFEBABE, 60, 9, format.TagString)
	data := entry.Bytes(engine)
	require.Len(t, data, IndexEntrySize)

	parsed, err := ParseIndexEntry(data, engine)
	require.NoError(t, err)
	require.Equal(t, entry, parsed)

	// Padding bytes must be zero.
	require.Equal(t, []byte{0, 0, 0}, data[17:20])
}

func TestIndexEntry_ParseShortBuffer(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	_, err := ParseIndexEntry(make([]byte, IndexEntrySize-1), engine)
	require.ErrorIs(t, err, errs.ErrInvalidBuffer)
}

func TestIndexEntry_WriteToSlice(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	buf := make([]byte, HeaderSize+2*IndexEntrySize)

	first := NewIndexEntry(1, 60, 8, format.TagInt64)
	second := NewIndexEntry(2, 68, 1, format.TagBool)

	next := first.WriteToSlice(buf, EntryOffset(0), engine)
	require.Equal(t, EntryOffset(1), next)
	second.WriteToSlice(buf, next, engine)

	p0, err := ParseEntryAt(buf, 0, engine)
	require.NoError(t, err)
	require.Equal(t, first, p0)

	p1, err := ParseEntryAt(buf, 1, engine)
	require.NoError(t, err)
	require.Equal(t, second, p1)

	require.Equal(t, uint64(1), HashAt(buf, 0, engine))
	require.Equal(t, uint64(2), HashAt(buf, 1, engine))
}

func TestEntryOffsets(t *testing.T) {
	require.Equal(t, 20, EntryOffset(0))
	require.Equal(t, 40, EntryOffset(1))
	require.Equal(t, 20, DataStart(0))
	require.Equal(t, 20+32*20, DataStart(MaxFieldCount))
}
