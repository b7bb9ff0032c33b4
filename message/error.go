package message

import (
	"fmt"
	"net"

	"github.com/codewiresh/cqlwire/primitive"
)

// ServerError is the base of every ERROR response: the numeric code and the
// human-readable message. Codes with documented extra fields decode to one
// of the typed variants below, which embed ServerError; anything else comes
// back as a bare ServerError so an unknown code is never a decode failure.
//
// All variants satisfy both Message and error.
type ServerError struct {
	Code    primitive.ErrorCode
	Message string
}

func (*ServerError) OpCode() primitive.OpCode { return primitive.OpError }

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s (0x%04X): %s", e.Code, int32(e.Code), e.Message)
}

func (e *ServerError) base(p []byte) []byte {
	p = primitive.AppendInt(p, int32(e.Code))
	return primitive.AppendString(p, e.Message)
}

func (e *ServerError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return e.base(p), nil
}

// UnavailableError: not enough live replicas to meet the consistency level.
type UnavailableError struct {
	ServerError
	Consistency primitive.Consistency
	Required    int32
	Alive       int32
}

func (e *UnavailableError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendConsistency(p, e.Consistency)
	p = primitive.AppendInt(p, e.Required)
	return primitive.AppendInt(p, e.Alive), nil
}

// ReadTimeoutError: replicas did not answer a read in time.
type ReadTimeoutError struct {
	ServerError
	Consistency primitive.Consistency
	Received    int32
	BlockFor    int32
	DataPresent bool
}

func (e *ReadTimeoutError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendConsistency(p, e.Consistency)
	p = primitive.AppendInt(p, e.Received)
	p = primitive.AppendInt(p, e.BlockFor)
	return append(p, boolByte(e.DataPresent)), nil
}

// WriteTimeoutError: replicas did not acknowledge a write in time.
// WriteType names the write phase that timed out (SIMPLE, BATCH,
// BATCH_LOG, UNLOGGED_BATCH, COUNTER, CAS, VIEW, CDC).
type WriteTimeoutError struct {
	ServerError
	Consistency primitive.Consistency
	Received    int32
	BlockFor    int32
	WriteType   string
}

func (e *WriteTimeoutError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendConsistency(p, e.Consistency)
	p = primitive.AppendInt(p, e.Received)
	p = primitive.AppendInt(p, e.BlockFor)
	return primitive.AppendString(p, e.WriteType), nil
}

// FailureReason is one replica's error in a v5 failure reason map.
type FailureReason struct {
	Endpoint net.IP
	Code     uint16
}

// ReadFailureError: replicas replied with errors rather than timing out.
// Under v5 Reasons lists each failed replica; under v3/v4 only NumFailures
// travels. NumFailures always holds the count either way.
type ReadFailureError struct {
	ServerError
	Consistency primitive.Consistency
	Received    int32
	BlockFor    int32
	NumFailures int32
	Reasons     []FailureReason
	DataPresent bool
}

func (e *ReadFailureError) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendConsistency(p, e.Consistency)
	p = primitive.AppendInt(p, e.Received)
	p = primitive.AppendInt(p, e.BlockFor)
	p = appendFailures(p, v, e.NumFailures, e.Reasons)
	return append(p, boolByte(e.DataPresent)), nil
}

// WriteFailureError is the write-side counterpart of ReadFailureError.
type WriteFailureError struct {
	ServerError
	Consistency primitive.Consistency
	Received    int32
	BlockFor    int32
	NumFailures int32
	Reasons     []FailureReason
	WriteType   string
}

func (e *WriteFailureError) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendConsistency(p, e.Consistency)
	p = primitive.AppendInt(p, e.Received)
	p = primitive.AppendInt(p, e.BlockFor)
	p = appendFailures(p, v, e.NumFailures, e.Reasons)
	return primitive.AppendString(p, e.WriteType), nil
}

// FunctionFailureError: a user-defined function raised.
type FunctionFailureError struct {
	ServerError
	Keyspace string
	Function string
	ArgTypes []string
}

func (e *FunctionFailureError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendString(p, e.Keyspace)
	p = primitive.AppendString(p, e.Function)
	return primitive.AppendStringList(p, e.ArgTypes), nil
}

// AlreadyExistsError: DDL collided with an existing keyspace or table.
// Table is empty when the keyspace itself already existed.
type AlreadyExistsError struct {
	ServerError
	Keyspace string
	Table    string
}

func (e *AlreadyExistsError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = e.base(p)
	p = primitive.AppendString(p, e.Keyspace)
	return primitive.AppendString(p, e.Table), nil
}

// UnpreparedError: the server no longer knows the executed statement id;
// the client must re-prepare.
type UnpreparedError struct {
	ServerError
	ID []byte
}

func (e *UnpreparedError) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = e.base(p)
	return primitive.AppendShortBytes(p, e.ID), nil
}

func appendFailures(p []byte, v primitive.Version, num int32, reasons []FailureReason) []byte {
	if v < primitive.Version5 {
		return primitive.AppendInt(p, num)
	}
	p = primitive.AppendInt(p, int32(len(reasons)))
	for _, fr := range reasons {
		p = primitive.AppendInetAddr(p, fr.Endpoint)
		p = primitive.AppendShort(p, fr.Code)
	}
	return p
}

func readFailures(r *primitive.Reader, v primitive.Version) (int32, []FailureReason) {
	if v < primitive.Version5 {
		return r.ReadInt(), nil
	}
	n := r.ReadInt()
	var reasons []FailureReason
	for i := int32(0); i < n && r.Err() == nil; i++ {
		reasons = append(reasons, FailureReason{
			Endpoint: r.ReadInetAddr(),
			Code:     r.ReadShort(),
		})
	}
	return n, reasons
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func decodeError(r *primitive.Reader, v primitive.Version) (Message, error) {
	base := ServerError{
		Code:    primitive.ErrorCode(r.ReadInt()),
		Message: r.ReadString(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	switch base.Code {
	case primitive.ErrCodeUnavailable:
		return &UnavailableError{
			ServerError: base,
			Consistency: r.ReadConsistency(),
			Required:    r.ReadInt(),
			Alive:       r.ReadInt(),
		}, nil
	case primitive.ErrCodeReadTimeout:
		return &ReadTimeoutError{
			ServerError: base,
			Consistency: r.ReadConsistency(),
			Received:    r.ReadInt(),
			BlockFor:    r.ReadInt(),
			DataPresent: r.ReadUint8() != 0,
		}, nil
	case primitive.ErrCodeWriteTimeout:
		return &WriteTimeoutError{
			ServerError: base,
			Consistency: r.ReadConsistency(),
			Received:    r.ReadInt(),
			BlockFor:    r.ReadInt(),
			WriteType:   r.ReadString(),
		}, nil
	case primitive.ErrCodeReadFailure:
		e := &ReadFailureError{
			ServerError: base,
			Consistency: r.ReadConsistency(),
			Received:    r.ReadInt(),
			BlockFor:    r.ReadInt(),
		}
		e.NumFailures, e.Reasons = readFailures(r, v)
		e.DataPresent = r.ReadUint8() != 0
		return e, nil
	case primitive.ErrCodeWriteFailure:
		e := &WriteFailureError{
			ServerError: base,
			Consistency: r.ReadConsistency(),
			Received:    r.ReadInt(),
			BlockFor:    r.ReadInt(),
		}
		e.NumFailures, e.Reasons = readFailures(r, v)
		e.WriteType = r.ReadString()
		return e, nil
	case primitive.ErrCodeFunctionFailure:
		return &FunctionFailureError{
			ServerError: base,
			Keyspace:    r.ReadString(),
			Function:    r.ReadString(),
			ArgTypes:    r.ReadStringList(),
		}, nil
	case primitive.ErrCodeAlreadyExists:
		return &AlreadyExistsError{
			ServerError: base,
			Keyspace:    r.ReadString(),
			Table:       r.ReadString(),
		}, nil
	case primitive.ErrCodeUnprepared:
		return &UnpreparedError{
			ServerError: base,
			ID:          r.ReadShortBytes(),
		}, nil
	}
	return &base, nil
}
