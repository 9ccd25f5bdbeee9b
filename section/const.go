package section

// offset and section sizes in the record buffer
const (
	HeaderSize     = 20         // fixed header size in bytes: 4-byte field count + 16 reserved
	IndexEntrySize = 20         // fixed index entry size in bytes: 8 + 4 + 4 + 1 + 3 padding
	IndexOffset    = HeaderSize // byte offset where the index section starts
	MaxFieldCount  = 32         // hard limit on fields per record, enforced at write time
)

// EntryOffset returns the byte offset of index entry i within a record buffer.
func EntryOffset(i int) int {
	return IndexOffset + i*IndexEntrySize
}

// DataStart returns the byte offset where the data region begins for a
// record holding fieldCount fields.
func DataStart(fieldCount int) int {
	return HeaderSize + fieldCount*IndexEntrySize
}
