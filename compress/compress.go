// Package compress provides the pluggable byte-block compressors used by
// the frame body path (protocol 3/4) and the per-chunk path of the
// protocol 5 checksummed framing. A compressor is chosen once during
// connection startup and applied uniformly for the connection's lifetime;
// nothing here re-negotiates per frame.
package compress

import (
	"github.com/codewiresh/cqlwire/primitive"
)

// Compressor compresses and decompresses opaque byte blocks. All methods
// append to dst and return the extended slice, so callers can reuse
// buffers. Implementations must be safe for concurrent use.
type Compressor interface {
	// Name returns the identifier sent in STARTUP's COMPRESSION option.
	Name() string

	// AppendCompressed appends the compressed form of src to dst.
	AppendCompressed(dst, src []byte) ([]byte, error)

	// AppendDecompressed appends the decompressed form of src to dst.
	// decompressedLen is the expected inflated size; implementations whose
	// format does not self-describe use it to size output, and all
	// implementations verify the result against it when it is non-zero.
	AppendDecompressed(dst, src []byte, decompressedLen uint32) ([]byte, error)

	// AppendCompressedWithLength is AppendCompressed preceded by a 4-byte
	// big-endian uncompressed-length prefix. This is the protocol 3/4
	// whole-body framing.
	AppendCompressedWithLength(dst, src []byte) ([]byte, error)

	// AppendDecompressedWithLength reads the 4-byte length prefix written
	// by AppendCompressedWithLength and fails with an integrity error if
	// the inflated size does not match it exactly.
	AppendDecompressedWithLength(dst, src []byte) ([]byte, error)
}

// None is the identity compressor. It exists for call sites that prefer a
// non-nil no-op over branching; a nil Compressor means the same thing.
type None struct{}

func (None) Name() string { return "" }

func (None) AppendCompressed(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (None) AppendDecompressed(dst, src []byte, decompressedLen uint32) ([]byte, error) {
	if decompressedLen != 0 && int(decompressedLen) != len(src) {
		return nil, primitive.Integrityf("identity payload is %d bytes, expected %d", len(src), decompressedLen)
	}
	return append(dst, src...), nil
}

func (None) AppendCompressedWithLength(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (None) AppendDecompressedWithLength(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}
