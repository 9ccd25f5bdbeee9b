// Package compress provides the at-rest value codecs of the persistence
// layer: record buffers can be compressed before they are written to the
// embedded store and are decompressed transparently on disk reads.
//
// Record buffers are small (bounded by 32 fields) and often text-heavy, so
// the fast byte-oriented codecs (S2, LZ4) usually win over Zstd for this
// workload; Zstd is offered for stores that prioritize size on disk.
package compress

import (
	"fmt"

	"github.com/spookydb/spookydb/format"
)

// Compressor compresses a record buffer for storage.
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// The input slice is not modified. The returned slice is newly
	// allocated by the compressing codecs; NoOpCompressor returns the input
	// slice itself.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a record buffer from its stored form.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original bytes.
	//
	// Returns an error if the data is corrupted or was produced by a
	// different codec. The returned slice is newly allocated by the
	// compressing codecs; NoOpCompressor returns the input slice itself.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
