// Package frame implements the envelope codec: the fixed header carrying
// version, flags, stream id, opcode and body length, in front of an opaque
// body. Under protocol 3 and 4 the body may be whole-body compressed; under
// protocol 5 envelopes travel inside the checksummed chunk framing of
// package segment and are never compressed here.
//
// Decoding is non-blocking: it reports exactly how many further bytes the
// transport must buffer before retrying, instead of reading or suspending
// itself. The codec holds no state between calls.
package frame

import (
	"github.com/codewiresh/cqlwire/compress"
	"github.com/codewiresh/cqlwire/primitive"
)

// MaxBodyLength is the default cap on a declared body length. A wildly
// large length almost always means the stream is misaligned, so it is
// treated as malformed rather than honored.
const MaxBodyLength = 256 << 20

// Frame is one decoded envelope. Body is always the plain (decompressed)
// body bytes.
type Frame struct {
	Version  primitive.Version
	Response bool
	Flags    primitive.HeaderFlags
	Stream   int32
	Op       primitive.OpCode
	Body     []byte
}

// Codec encodes and decodes envelopes for one connection. Version and
// Compressor are fixed at startup negotiation and never change for the
// connection's lifetime. The zero Codec is not useful; Version must be set.
type Codec struct {
	Version    primitive.Version
	Compressor compress.Compressor

	// MaxBody overrides MaxBodyLength when positive.
	MaxBody int32
}

func (c *Codec) maxBody() int32 {
	if c.MaxBody > 0 {
		return c.MaxBody
	}
	return MaxBodyLength
}

// Encode serializes f. The frame's version must match the codec's; stream
// ids outside the negotiated width and bodies too large for the length
// field are constraint errors and produce no bytes.
func (c *Codec) Encode(f *Frame) ([]byte, error) {
	if !c.Version.Supported() {
		return nil, primitive.Malformedf("unsupported protocol version %d", byte(c.Version))
	}
	if f.Version != 0 && f.Version != c.Version {
		return nil, primitive.Constraintf("frame version %s differs from negotiated %s", f.Version, c.Version)
	}
	if !f.Flags.Valid() {
		return nil, primitive.Constraintf("reserved header flag bits set: 0x%02x", byte(f.Flags))
	}
	if f.Stream > c.Version.MaxStream() || f.Stream < c.Version.MinStream() {
		return nil, primitive.Constraintf("stream id %d outside %s range", f.Stream, c.Version)
	}
	if err := primitive.CheckIntLen("frame body", len(f.Body)); err != nil {
		return nil, err
	}

	body := f.Body
	if f.Flags&primitive.FlagCompressed != 0 {
		if c.Version >= primitive.Version5 {
			return nil, primitive.Constraintf("protocol 5 compresses per chunk, not per envelope")
		}
		if c.Compressor == nil {
			return nil, primitive.Constraintf("compressed flag set with no compressor negotiated")
		}
		var err error
		body, err = c.Compressor.AppendCompressedWithLength(nil, f.Body)
		if err != nil {
			return nil, err
		}
	}

	versionByte := byte(c.Version)
	if f.Response {
		versionByte |= primitive.DirectionMask
	}

	out := make([]byte, 0, c.Version.HeaderSize()+len(body))
	out = append(out, versionByte, byte(f.Flags))
	if c.Version >= primitive.Version5 {
		// Protocol 5 widens the stream id to 4 bytes, little-endian.
		s := uint32(f.Stream)
		out = append(out, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
	} else {
		out = primitive.AppendShort(out, uint16(int16(f.Stream)))
	}
	out = append(out, byte(f.Op))
	out = primitive.AppendInt(out, int32(len(body)))
	return append(out, body...), nil
}

// Result is the three-state outcome of Decode. Exactly one of Frame,
// NeedMore and Err is meaningful.
type Result struct {
	// Frame is the decoded envelope when a complete one was buffered.
	Frame *Frame

	// Consumed is how many input bytes the frame occupied.
	Consumed int

	// NeedMore is the minimum number of additional bytes the transport
	// must buffer before retrying. It is never set alongside Frame or Err.
	NeedMore int

	// Err reports malformed or unreadable bytes. The stream's alignment
	// can no longer be trusted after one.
	Err error
}

// Complete reports whether a frame was decoded.
func (r Result) Complete() bool { return r.Err == nil && r.Frame != nil }

func incomplete(need int) Result { return Result{NeedMore: need} }

func failed(err error) Result { return Result{Err: err} }

// Decode attempts to parse one envelope from the front of buf. It never
// blocks and never consumes bytes on an incomplete result.
func (c *Codec) Decode(buf []byte) Result {
	if !c.Version.Supported() {
		return failed(primitive.Malformedf("unsupported protocol version %d", byte(c.Version)))
	}
	headSize := c.Version.HeaderSize()
	if len(buf) < headSize {
		return incomplete(headSize - len(buf))
	}

	version := primitive.Version(buf[0] & primitive.VersionMask)
	if !version.Supported() {
		return failed(primitive.Malformedf("unknown version byte 0x%02x", buf[0]))
	}
	if version != c.Version {
		return failed(primitive.Malformedf("frame version %s on a %s connection", version, c.Version))
	}

	flags := primitive.HeaderFlags(buf[1])
	if !flags.Valid() {
		return failed(primitive.Malformedf("reserved header flag bits set: 0x%02x", buf[1]))
	}

	var stream int32
	var op primitive.OpCode
	if version >= primitive.Version5 {
		stream = int32(uint32(buf[2]) | uint32(buf[3])<<8 | uint32(buf[4])<<16 | uint32(buf[5])<<24)
		op = primitive.OpCode(buf[6])
	} else {
		stream = int32(int16(uint16(buf[2])<<8 | uint16(buf[3])))
		op = primitive.OpCode(buf[4])
	}
	if !op.Known() {
		return failed(primitive.Malformedf("unknown opcode 0x%02x", byte(op)))
	}

	length := int32(uint32(buf[headSize-4])<<24 | uint32(buf[headSize-3])<<16 |
		uint32(buf[headSize-2])<<8 | uint32(buf[headSize-1]))
	if length < 0 || length > c.maxBody() {
		return failed(primitive.Malformedf("frame body length %d out of range", length))
	}

	total := headSize + int(length)
	if len(buf) < total {
		return incomplete(total - len(buf))
	}

	body := buf[headSize:total]
	if flags&primitive.FlagCompressed != 0 {
		if version >= primitive.Version5 {
			return failed(primitive.Malformedf("compressed flag on a protocol 5 envelope"))
		}
		if c.Compressor == nil {
			return failed(primitive.Malformedf("compressed frame body with no compressor negotiated"))
		}
		plain, err := c.Compressor.AppendDecompressedWithLength(nil, body)
		if err != nil {
			return failed(err)
		}
		body = plain
	} else {
		// Frames outlive the transport's read buffer.
		body = append([]byte(nil), body...)
	}

	return Result{
		Frame: &Frame{
			Version:  version,
			Response: buf[0]&primitive.DirectionMask != 0,
			Flags:    flags,
			Stream:   stream,
			Op:       op,
			Body:     body,
		},
		Consumed: total,
	}
}
