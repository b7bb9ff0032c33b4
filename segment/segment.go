// Package segment implements the checksummed, chunked framing that
// protocol 5 wraps around frame envelopes. A logical body is split into
// ordered chunks, each carrying a CRC24-protected 3-byte header and a
// trailing CRC32 over header and payload. Chunks are only meaningful in
// arrival order, so inbound reassembly is explicit per-connection state
// (Reassembler) owned by the transport, never package-level.
//
// Any checksum mismatch poisons the byte stream: there is no way to find
// the next chunk boundary once a header cannot be trusted. The Reassembler
// latches the first integrity failure and rejects all further input; the
// caller must tear the connection down.
package segment

import (
	"encoding/binary"

	"github.com/codewiresh/cqlwire/compress"
	"github.com/codewiresh/cqlwire/primitive"
)

const (
	// DefaultMaxPayload is the protocol ceiling for one chunk payload: the
	// header length field is 17 bits wide.
	DefaultMaxPayload = 1<<17 - 1

	headerSize     = 3
	crc24Size      = 3
	crc32Size      = 4
	overhead       = headerSize + crc24Size + crc32Size
	lastFlag       = 1 << 17
	compressedFlag = 1 << 18
)

// Segmenter splits outbound logical bodies into wire chunks.
type Segmenter struct {
	// MaxPayload caps the per-chunk payload size. Zero means
	// DefaultMaxPayload. Values above the protocol ceiling are rejected.
	MaxPayload int

	// Compressor, when non-nil, is applied per chunk. A chunk whose
	// compressed form is not smaller ships uncompressed with the
	// compressed flag clear.
	Compressor compress.Compressor
}

func (s *Segmenter) maxPayload() int {
	if s.MaxPayload == 0 {
		return DefaultMaxPayload
	}
	return s.MaxPayload
}

// Split encodes body as an ordered chunk sequence. The final chunk carries
// the last-chunk flag; an empty body still produces one (empty, last)
// chunk.
func (s *Segmenter) Split(body []byte) ([][]byte, error) {
	maxp := s.maxPayload()
	if maxp < 0 || maxp > DefaultMaxPayload {
		return nil, primitive.Constraintf("chunk payload cap %d exceeds 17-bit ceiling %d", maxp, DefaultMaxPayload)
	}

	var chunks [][]byte
	for {
		n := len(body)
		last := n <= maxp
		if !last {
			n = maxp
		}
		chunk, err := s.encodeChunk(body[:n], last)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
		body = body[n:]
		if last {
			return chunks, nil
		}
	}
}

func (s *Segmenter) encodeChunk(payload []byte, last bool) ([]byte, error) {
	compressed := false
	if s.Compressor != nil && len(payload) > 0 {
		packed, err := s.Compressor.AppendCompressedWithLength(nil, payload)
		if err != nil {
			return nil, err
		}
		if len(packed) < len(payload) && len(packed) <= s.maxPayload() {
			payload = packed
			compressed = true
		}
	}

	header := uint32(len(payload))
	if last {
		header |= lastFlag
	}
	if compressed {
		header |= compressedFlag
	}

	chunk := make([]byte, 0, overhead+len(payload))
	chunk = append(chunk, byte(header), byte(header>>8), byte(header>>16))
	crc := CRC24(chunk[:headerSize])
	chunk = append(chunk, byte(crc), byte(crc>>8), byte(crc>>16))
	chunk = append(chunk, payload...)

	sum := CRC32(chunk[:headerSize])
	sum = crc32Over(sum, payload)
	var trailer [crc32Size]byte
	binary.LittleEndian.PutUint32(trailer[:], sum)
	return append(chunk, trailer[:]...), nil
}

// Result is the outcome of feeding buffered bytes to a Reassembler.
// Exactly one of the three states holds: Body is non-nil when a complete
// logical body was reassembled, NeedMore is positive when the buffer ends
// mid-chunk, and Err is set on integrity or framing failure.
type Result struct {
	// Body is the reassembled logical frame body. Non-nil only when the
	// chunk marked last has been consumed.
	Body []byte

	// Consumed is the number of bytes of the input that were used, whether
	// or not a body completed. The transport must discard them.
	Consumed int

	// NeedMore is the minimum number of further bytes required before
	// calling Feed again.
	NeedMore int

	// Err is fatal for the connection when set.
	Err error
}

// Complete reports whether a full logical body was produced.
func (r Result) Complete() bool { return r.Err == nil && r.Body != nil }

// Reassembler accumulates inbound chunks into logical bodies. It is
// connection-scoped mutable state and must be driven by one goroutine at a
// time; chunk order is semantically significant.
type Reassembler struct {
	// Compressor must match the connection's negotiated compressor; it is
	// required to accept chunks with the compressed flag set.
	Compressor compress.Compressor

	partial []byte
	failed  error
}

// Feed consumes chunks from the front of buf. It stops at the first
// complete logical body, at the point where buf runs out mid-chunk, or at
// the first failure. Partial bodies are retained inside the Reassembler
// between calls.
func (ra *Reassembler) Feed(buf []byte) Result {
	if ra.failed != nil {
		return Result{Err: ra.failed}
	}

	consumed := 0
	for {
		payload, last, n, need, err := ra.decodeChunk(buf[consumed:])
		if err != nil {
			ra.failed = err
			return Result{Consumed: consumed, Err: err}
		}
		if need > 0 {
			return Result{Consumed: consumed, NeedMore: need}
		}
		consumed += n
		ra.partial = append(ra.partial, payload...)
		if last {
			body := ra.partial
			if body == nil {
				body = []byte{}
			}
			ra.partial = nil
			return Result{Body: body, Consumed: consumed}
		}
	}
}

func (ra *Reassembler) decodeChunk(buf []byte) (payload []byte, last bool, consumed, needMore int, err error) {
	if len(buf) < headerSize+crc24Size {
		return nil, false, 0, headerSize + crc24Size - len(buf), nil
	}

	// The header CRC is checked before the declared length is trusted; a
	// corrupted length must not steer how many bytes we read.
	wantCRC := uint32(buf[3]) | uint32(buf[4])<<8 | uint32(buf[5])<<16
	if got := CRC24(buf[:headerSize]); got != wantCRC {
		return nil, false, 0, 0, primitive.Integrityf("chunk header crc24 mismatch: computed %06x, read %06x", got, wantCRC)
	}

	header := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
	payloadLen := int(header & (1<<17 - 1))
	last = header&lastFlag != 0
	compressed := header&compressedFlag != 0

	total := headerSize + crc24Size + payloadLen + crc32Size
	if len(buf) < total {
		return nil, false, 0, total - len(buf), nil
	}

	payload = buf[headerSize+crc24Size : headerSize+crc24Size+payloadLen]
	wantSum := binary.LittleEndian.Uint32(buf[total-crc32Size : total])
	sum := crc32Over(CRC32(buf[:headerSize]), payload)
	if sum != wantSum {
		return nil, false, 0, 0, primitive.Integrityf("chunk crc32 mismatch: computed %08x, read %08x", sum, wantSum)
	}

	if compressed {
		if ra.Compressor == nil {
			return nil, false, 0, 0, primitive.Malformedf("compressed chunk on a connection without a compressor")
		}
		payload, err = ra.Compressor.AppendDecompressedWithLength(nil, payload)
		if err != nil {
			return nil, false, 0, 0, err
		}
	} else {
		// The chunk buffer belongs to the transport; partial bodies must
		// survive the caller reusing it.
		payload = append([]byte(nil), payload...)
	}

	return payload, last, total, 0, nil
}
