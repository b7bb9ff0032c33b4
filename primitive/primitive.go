// Package primitive implements the low-level notations of the CQL native
// protocol: the fixed-width integers, length-prefixed strings and byte
// blobs, and the shared enumerations (versions, opcodes, header flags,
// consistency levels, error codes) that the higher layers build on.
//
// All multi-byte integers are big-endian two's-complement unless a specific
// notation says otherwise. Reading happens through a sticky-error Reader
// over a caller-owned byte slice; writing happens through append-style
// functions so callers control buffer reuse.
package primitive

import "fmt"

// Version identifies a native protocol version. The top bit of the wire
// version byte carries the frame direction and is not part of the version.
type Version byte

const (
	Version3 Version = 3
	Version4 Version = 4
	Version5 Version = 5
)

const (
	// DirectionMask selects the request/response bit of the version byte.
	DirectionMask byte = 0x80
	// VersionMask selects the protocol version bits of the version byte.
	VersionMask byte = 0x7F
)

// Supported reports whether v is a protocol version this module speaks.
func (v Version) Supported() bool {
	return v >= Version3 && v <= Version5
}

// HeaderSize returns the envelope header size in bytes for this version.
// Protocol 5 widens the stream id from 2 to 4 bytes.
func (v Version) HeaderSize() int {
	return 7 + v.StreamBytes()
}

// StreamBytes returns the wire width of the stream id for this version.
func (v Version) StreamBytes() int {
	if v >= Version5 {
		return 4
	}
	return 2
}

// MaxStream returns the largest stream id encodable under this version.
func (v Version) MaxStream() int32 {
	if v >= Version5 {
		return 1<<31 - 1
	}
	return 1<<15 - 1
}

// MinStream returns the most negative stream id encodable under this
// version. Negative stream ids are reserved for server-initiated frames
// (events) but must still round-trip.
func (v Version) MinStream() int32 {
	if v >= Version5 {
		return -1 << 31
	}
	return -1 << 15
}

func (v Version) String() string {
	return fmt.Sprintf("v%d", byte(v))
}

// HeaderFlags is the flags byte of the frame envelope header.
type HeaderFlags byte

const (
	FlagCompressed    HeaderFlags = 0x01
	FlagTracing       HeaderFlags = 0x02
	FlagCustomPayload HeaderFlags = 0x04
	FlagWarning       HeaderFlags = 0x08
	FlagBeta          HeaderFlags = 0x10

	// flagsReserved are the bits no supported version defines. Seeing one
	// set on the wire means the stream is not a protocol stream we
	// understand.
	flagsReserved HeaderFlags = 0xE0
)

// Valid reports whether no reserved flag bits are set.
func (f HeaderFlags) Valid() bool {
	return f&flagsReserved == 0
}

// OpCode identifies the message kind carried by a frame.
type OpCode byte

const (
	OpError         OpCode = 0x00
	OpStartup       OpCode = 0x01
	OpReady         OpCode = 0x02
	OpAuthenticate  OpCode = 0x03
	OpOptions       OpCode = 0x05
	OpSupported     OpCode = 0x06
	OpQuery         OpCode = 0x07
	OpResult        OpCode = 0x08
	OpPrepare       OpCode = 0x09
	OpExecute       OpCode = 0x0A
	OpRegister      OpCode = 0x0B
	OpEvent         OpCode = 0x0C
	OpBatch         OpCode = 0x0D
	OpAuthChallenge OpCode = 0x0E
	OpAuthResponse  OpCode = 0x0F
	OpAuthSuccess   OpCode = 0x10
)

// Known reports whether op is in the opcode table. 0x04 was retired before
// protocol 3 and is treated as unknown.
func (op OpCode) Known() bool {
	switch op {
	case OpError, OpStartup, OpReady, OpAuthenticate, OpOptions, OpSupported,
		OpQuery, OpResult, OpPrepare, OpExecute, OpRegister, OpEvent,
		OpBatch, OpAuthChallenge, OpAuthResponse, OpAuthSuccess:
		return true
	}
	return false
}

// IsRequest reports whether op is only ever sent by clients.
func (op OpCode) IsRequest() bool {
	switch op {
	case OpStartup, OpOptions, OpQuery, OpPrepare, OpExecute, OpRegister,
		OpBatch, OpAuthResponse:
		return true
	}
	return false
}

// IsResponse reports whether op is only ever sent by servers.
func (op OpCode) IsResponse() bool {
	return op.Known() && !op.IsRequest()
}

func (op OpCode) String() string {
	switch op {
	case OpError:
		return "ERROR"
	case OpStartup:
		return "STARTUP"
	case OpReady:
		return "READY"
	case OpAuthenticate:
		return "AUTHENTICATE"
	case OpOptions:
		return "OPTIONS"
	case OpSupported:
		return "SUPPORTED"
	case OpQuery:
		return "QUERY"
	case OpResult:
		return "RESULT"
	case OpPrepare:
		return "PREPARE"
	case OpExecute:
		return "EXECUTE"
	case OpRegister:
		return "REGISTER"
	case OpEvent:
		return "EVENT"
	case OpBatch:
		return "BATCH"
	case OpAuthChallenge:
		return "AUTH_CHALLENGE"
	case OpAuthResponse:
		return "AUTH_RESPONSE"
	case OpAuthSuccess:
		return "AUTH_SUCCESS"
	default:
		return fmt.Sprintf("UNKNOWN_OP_0x%02X", byte(op))
	}
}
