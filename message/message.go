// Package message maps opcodes to structured request and response payloads.
// It sits between the frame envelope and callers: building a request means
// filling a typed struct and handing it to RequestFrame; parsing a response
// means frame decode followed by ParseInbound, which also strips the
// tracing id, warnings and custom payload the response flags announce.
package message

import (
	"github.com/google/uuid"

	"github.com/codewiresh/cqlwire/frame"
	"github.com/codewiresh/cqlwire/primitive"
)

// Message is one opcode's payload, request or response side.
type Message interface {
	OpCode() primitive.OpCode

	// appendBody writes the payload for the given negotiated version.
	appendBody(p []byte, v primitive.Version) ([]byte, error)
}

// EncodeBody serializes the payload of m for version v.
func EncodeBody(m Message, v primitive.Version) ([]byte, error) {
	if !v.Supported() {
		return nil, primitive.Constraintf("unknown protocol version %d", v)
	}
	body, err := m.appendBody(nil, v)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// RequestFrame wraps m into a request envelope on the given stream.
func RequestFrame(v primitive.Version, stream int32, m Message) (*frame.Frame, error) {
	if !m.OpCode().IsRequest() {
		return nil, primitive.Constraintf("%s is not a request opcode", m.OpCode())
	}
	body, err := EncodeBody(m, v)
	if err != nil {
		return nil, err
	}
	return &frame.Frame{Version: v, Stream: stream, Op: m.OpCode(), Body: body}, nil
}

// ResponseFrame wraps m into a response envelope on the given stream.
func ResponseFrame(v primitive.Version, stream int32, m Message) (*frame.Frame, error) {
	if !m.OpCode().IsResponse() {
		return nil, primitive.Constraintf("%s is not a response opcode", m.OpCode())
	}
	body, err := EncodeBody(m, v)
	if err != nil {
		return nil, err
	}
	return &frame.Frame{Version: v, Response: true, Stream: stream, Op: m.OpCode(), Body: body}, nil
}

// DecodeRequest parses a request body. The body must be fully consumed.
func DecodeRequest(op primitive.OpCode, body []byte, v primitive.Version) (Message, error) {
	r := primitive.NewReader(body)
	var m Message
	var err error
	switch op {
	case primitive.OpStartup:
		m, err = decodeStartup(r)
	case primitive.OpOptions:
		m = &Options{}
	case primitive.OpQuery:
		m, err = decodeQuery(r, v)
	case primitive.OpPrepare:
		m, err = decodePrepare(r, v)
	case primitive.OpExecute:
		m, err = decodeExecute(r, v)
	case primitive.OpBatch:
		m, err = decodeBatch(r, v)
	case primitive.OpRegister:
		m, err = decodeRegister(r)
	case primitive.OpAuthResponse:
		m, err = decodeAuthResponse(r)
	default:
		return nil, primitive.Malformedf("opcode %s is not a request", op)
	}
	return finishDecode(m, err, r)
}

// DecodeResponse parses a response body. ERROR bodies come back as the
// typed error variant matching their code; the variants also satisfy the
// error interface.
func DecodeResponse(op primitive.OpCode, body []byte, v primitive.Version) (Message, error) {
	r := primitive.NewReader(body)
	var m Message
	var err error
	switch op {
	case primitive.OpError:
		m, err = decodeError(r, v)
	case primitive.OpReady:
		m = &Ready{}
	case primitive.OpAuthenticate:
		m, err = decodeAuthenticate(r)
	case primitive.OpSupported:
		m, err = decodeSupported(r)
	case primitive.OpResult:
		m, err = decodeResult(r, v)
	case primitive.OpEvent:
		m, err = decodeEvent(r, v)
	case primitive.OpAuthChallenge:
		m, err = decodeAuthChallenge(r)
	case primitive.OpAuthSuccess:
		m, err = decodeAuthSuccess(r)
	default:
		return nil, primitive.Malformedf("opcode %s is not a response", op)
	}
	return finishDecode(m, err, r)
}

func finishDecode(m Message, err error, r *primitive.Reader) (Message, error) {
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if n := r.Remaining(); n != 0 {
		return nil, primitive.Malformedf("%d trailing bytes after %s body", n, m.OpCode())
	}
	return m, nil
}

// Inbound is a fully parsed response: the payload plus whatever envelope
// extras the response flags announced.
type Inbound struct {
	Stream    int32
	TracingID *uuid.UUID
	Warnings  []string
	Custom    map[string][]byte
	Message   Message
}

// ParseInbound decodes a response frame's body, stripping the tracing id,
// custom payload and warnings prefixes in their wire order first.
func ParseInbound(f *frame.Frame) (*Inbound, error) {
	if !f.Response {
		return nil, primitive.Malformedf("frame on stream %d is not a response", f.Stream)
	}
	in := &Inbound{Stream: f.Stream}
	r := primitive.NewReader(f.Body)
	if f.Flags&primitive.FlagTracing != 0 {
		id := r.ReadUUID()
		if r.Err() == nil {
			in.TracingID = &id
		}
	}
	if f.Flags&primitive.FlagCustomPayload != 0 {
		in.Custom = r.ReadBytesMap()
	}
	if f.Flags&primitive.FlagWarning != 0 {
		in.Warnings = r.ReadStringList()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	m, err := DecodeResponse(f.Op, r.Rest(), f.Version)
	if err != nil {
		return nil, err
	}
	in.Message = m
	return in, nil
}
