package record

import (
	"github.com/spookydb/spookydb/errs"
	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/internal/hash"
	"github.com/spookydb/spookydb/internal/pool"
	"github.com/spookydb/spookydb/section"
)

// Structural mutations: add and remove fields. Both rebuild the buffer from
// scratch, which is simpler and less error-prone than in-place index
// insertion with offset fixups, and both bump the generation.

// fieldSource describes where a field in the rebuilt buffer comes from.
type fieldSource struct {
	// existing is the position in the old index, or -1 for a new field.
	existing int
	hash     uint64
	data     []byte
	tag      format.Tag
}

// AddField inserts a new field, maintaining sorted index order.
//
// Returns ErrFieldExists if the name's hash is already present,
// ErrTooManyFields past the 32-field limit, or a CBOR error if a nested
// value fails to encode.
func (m *RecordMut) AddField(name string, value Serializer) error {
	h := hash.ID(name)

	if _, _, err := m.AsRecord().findHash(h); err == nil {
		return errs.ErrFieldExists
	}

	if m.fieldCount >= section.MaxFieldCount {
		return errs.ErrTooManyFields
	}

	scratch := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(scratch)

	newBytes, newTag, err := EncodeField(scratch.B, value)
	if err != nil {
		return err
	}
	scratch.B = newBytes

	insertPos := m.findInsertPos(h)
	oldN := m.fieldCount
	newN := oldN + 1

	newBuf, err := m.rebuildBuffer(oldN, newN, func(i int) fieldSource {
		if i == insertPos {
			return fieldSource{existing: -1, hash: h, data: newBytes, tag: newTag}
		}

		srcI := i
		if i > insertPos {
			srcI = i - 1
		}

		return fieldSource{existing: srcI}
	})
	if err != nil {
		return err
	}

	m.buf = newBuf
	m.fieldCount = newN
	m.generation++

	return nil
}

// RemoveField removes a field from the record.
//
// Returns ErrFieldNotFound if the name is absent.
func (m *RecordMut) RemoveField(name string) error {
	removePos, _, err := m.AsRecord().findField(name)
	if err != nil {
		return err
	}

	oldN := m.fieldCount
	newN := oldN - 1

	if newN == 0 {
		m.buf = m.buf[:0]
		m.buf = append(m.buf, make([]byte, section.HeaderSize)...)
		m.fieldCount = 0
		m.generation++

		return nil
	}

	newBuf, err := m.rebuildBuffer(oldN, newN, func(i int) fieldSource {
		srcI := i
		if i >= removePos {
			srcI = i + 1
		}

		return fieldSource{existing: srcI}
	})
	if err != nil {
		return err
	}

	m.buf = newBuf
	m.fieldCount = newN
	m.generation++

	return nil
}

// findInsertPos returns the sorted insertion position for a new hash.
func (m *RecordMut) findInsertPos(h uint64) int {
	lo, hi := 0, m.fieldCount
	for lo < hi {
		mid := lo + (hi-lo)/2
		if section.HashAt(m.buf, mid, engine) < h {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}

// rebuildBuffer constructs a fresh record buffer with newN fields, each
// sourced either from the old buffer or from newly encoded bytes as directed
// by source(i).
func (m *RecordMut) rebuildBuffer(oldN, newN int, source func(int) fieldSource) ([]byte, error) {
	// Pre-read all existing field metadata in one pass. The 32-field limit
	// bounds the stack array; a larger count means a corrupt buffer.
	if oldN > section.MaxFieldCount {
		return nil, errs.ErrInvalidBuffer
	}

	var oldEntries [section.MaxFieldCount]section.IndexEntry
	for i := range oldN {
		entry, err := section.ParseEntryAt(m.buf, i, engine)
		if err != nil {
			return nil, err
		}
		oldEntries[i] = entry
	}

	newDataStart := section.DataStart(newN)
	totalData := 0
	for i := range newN {
		src := source(i)
		if src.existing < 0 {
			totalData += len(src.data)
		} else {
			totalData += int(oldEntries[src.existing].DataLength)
		}
	}

	newBuf := make([]byte, newDataStart+totalData)
	engine.PutUint32(newBuf[0:4], uint32(newN)) //nolint: gosec

	dataCursor := newDataStart

	for dstI := range newN {
		src := source(dstI)

		var (
			h   uint64
			n   int
			tag format.Tag
		)
		if src.existing < 0 {
			copy(newBuf[dataCursor:], src.data)
			h, n, tag = src.hash, len(src.data), src.tag
		} else {
			e := oldEntries[src.existing]
			if e.DataLength > 0 {
				start := int(e.DataOffset)
				copy(newBuf[dataCursor:], m.buf[start:start+int(e.DataLength)])
			}
			h, n, tag = e.NameHash, int(e.DataLength), e.TypeTag
		}

		entry := section.NewIndexEntry(h, dataCursor, n, tag)
		entry.WriteToSlice(newBuf, section.EntryOffset(dstI), engine)

		dataCursor += n
	}

	return newBuf, nil
}
