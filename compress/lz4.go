package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/codewiresh/cqlwire/primitive"
)

// LZ4 implements Compressor with LZ4 block compression. The protocol's LZ4
// framing is not self-describing, so the WithLength variants carry the
// 4-byte big-endian uncompressed length the server expects, and
// decompression verifies the inflated size against it exactly.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) AppendCompressed(dst, src []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(src))
	off := len(dst)
	dst = append(dst, make([]byte, bound)...)
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst[off:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return dst[:off+n], nil
}

func (LZ4) AppendDecompressed(dst, src []byte, decompressedLen uint32) ([]byte, error) {
	off := len(dst)
	dst = append(dst, make([]byte, decompressedLen)...)
	n, err := lz4.UncompressBlock(src, dst[off:])
	if err != nil {
		return nil, primitive.Integrityf("lz4 decompress: %v", err)
	}
	if uint32(n) != decompressedLen {
		return nil, primitive.Integrityf("lz4 inflated to %d bytes, expected %d", n, decompressedLen)
	}
	return dst[:off+n], nil
}

func (z LZ4) AppendCompressedWithLength(dst, src []byte) ([]byte, error) {
	dst = primitive.AppendUint(dst, uint32(len(src)))
	if len(src) == 0 {
		// A zero prefix stands alone; no block follows an empty body.
		return dst, nil
	}
	return z.AppendCompressed(dst, src)
}

func (z LZ4) AppendDecompressedWithLength(dst, src []byte) ([]byte, error) {
	if len(src) < 4 {
		return nil, primitive.Malformedf("lz4 body shorter than its length prefix: %d bytes", len(src))
	}
	want := uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
	if want == 0 && len(src) == 4 {
		return dst, nil
	}
	// A peer may also send an explicit block that inflates to nothing;
	// AppendDecompressed verifies the inflated size either way.
	return z.AppendDecompressed(dst, src[4:], want)
}
