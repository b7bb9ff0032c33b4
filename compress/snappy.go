package compress

import (
	"github.com/klauspost/compress/s2"

	"github.com/codewiresh/cqlwire/primitive"
)

// Snappy implements Compressor with snappy block encoding, via the
// snappy-compatible s2 codec. Snappy blocks self-describe their inflated
// length, so the hint is only used for verification.
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) AppendCompressed(dst, src []byte) ([]byte, error) {
	return append(dst, s2.EncodeSnappy(nil, src)...), nil
}

func (Snappy) AppendDecompressed(dst, src []byte, decompressedLen uint32) ([]byte, error) {
	out, err := s2.Decode(nil, src)
	if err != nil {
		return nil, primitive.Integrityf("snappy decompress: %v", err)
	}
	if decompressedLen != 0 && len(out) != int(decompressedLen) {
		return nil, primitive.Integrityf("snappy inflated to %d bytes, expected %d", len(out), decompressedLen)
	}
	return append(dst, out...), nil
}

// Snappy blocks open with their own uncompressed-length varint, so the
// wire format adds no extra prefix: the WithLength pair is the raw block.

func (s Snappy) AppendCompressedWithLength(dst, src []byte) ([]byte, error) {
	return s.AppendCompressed(dst, src)
}

func (s Snappy) AppendDecompressedWithLength(dst, src []byte) ([]byte, error) {
	return s.AppendDecompressed(dst, src, 0)
}
