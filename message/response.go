package message

import (
	"net"

	"github.com/codewiresh/cqlwire/primitive"
)

// Ready acknowledges a STARTUP on an unauthenticated cluster.
type Ready struct{}

func (*Ready) OpCode() primitive.OpCode { return primitive.OpReady }

func (*Ready) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return p, nil
}

// Authenticate asks the client to begin a SASL exchange with the named
// authenticator class.
type Authenticate struct {
	Authenticator string
}

func (*Authenticate) OpCode() primitive.OpCode { return primitive.OpAuthenticate }

func (m *Authenticate) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	if err := primitive.CheckShortLen("authenticator", len(m.Authenticator)); err != nil {
		return nil, err
	}
	return primitive.AppendString(p, m.Authenticator), nil
}

func decodeAuthenticate(r *primitive.Reader) (Message, error) {
	return &Authenticate{Authenticator: r.ReadString()}, nil
}

// Supported answers an Options request with the server's accepted STARTUP
// options, for example the compression algorithms it speaks.
type Supported struct {
	Options map[string][]string
}

func (*Supported) OpCode() primitive.OpCode { return primitive.OpSupported }

func (m *Supported) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return primitive.AppendStringMultiMap(p, m.Options), nil
}

func decodeSupported(r *primitive.Reader) (Message, error) {
	return &Supported{Options: r.ReadStringMultiMap()}, nil
}

// AuthChallenge continues a SASL exchange; the client answers with another
// AuthResponse.
type AuthChallenge struct {
	Token []byte
}

func (*AuthChallenge) OpCode() primitive.OpCode { return primitive.OpAuthChallenge }

func (m *AuthChallenge) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return primitive.AppendBytes(p, m.Token), nil
}

func decodeAuthChallenge(r *primitive.Reader) (Message, error) {
	return &AuthChallenge{Token: r.ReadBytes()}, nil
}

// AuthSuccess ends a SASL exchange. The token is authenticator-specific
// and often nil.
type AuthSuccess struct {
	Token []byte
}

func (*AuthSuccess) OpCode() primitive.OpCode { return primitive.OpAuthSuccess }

func (m *AuthSuccess) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return primitive.AppendBytes(p, m.Token), nil
}

func decodeAuthSuccess(r *primitive.Reader) (Message, error) {
	return &AuthSuccess{Token: r.ReadBytes()}, nil
}

// Event type strings as they appear on the wire.
const (
	EventTopologyChange = "TOPOLOGY_CHANGE"
	EventStatusChange   = "STATUS_CHANGE"
	EventSchemaChange   = "SCHEMA_CHANGE"
)

// TopologyChangeEvent announces a node joining or leaving the cluster.
// Change is NEW_NODE, REMOVED_NODE or MOVED_NODE.
type TopologyChangeEvent struct {
	Change  string
	Address net.IP
	Port    int32
}

func (*TopologyChangeEvent) OpCode() primitive.OpCode { return primitive.OpEvent }

func (m *TopologyChangeEvent) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = primitive.AppendString(p, EventTopologyChange)
	p = primitive.AppendString(p, m.Change)
	return primitive.AppendInet(p, m.Address, m.Port), nil
}

// StatusChangeEvent announces a node going UP or DOWN.
type StatusChangeEvent struct {
	Change  string
	Address net.IP
	Port    int32
}

func (*StatusChangeEvent) OpCode() primitive.OpCode { return primitive.OpEvent }

func (m *StatusChangeEvent) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	p = primitive.AppendString(p, EventStatusChange)
	p = primitive.AppendString(p, m.Change)
	return primitive.AppendInet(p, m.Address, m.Port), nil
}

// SchemaChangeEvent announces a DDL change. It shares the SchemaChange
// payload with the RESULT variant of the same name.
type SchemaChangeEvent struct {
	SchemaChange
}

func (*SchemaChangeEvent) OpCode() primitive.OpCode { return primitive.OpEvent }

func (m *SchemaChangeEvent) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	p = primitive.AppendString(p, EventSchemaChange)
	return m.SchemaChange.append(p, v)
}

func decodeEvent(r *primitive.Reader, v primitive.Version) (Message, error) {
	typ := r.ReadString()
	if err := r.Err(); err != nil {
		return nil, err
	}
	switch typ {
	case EventTopologyChange:
		m := &TopologyChangeEvent{Change: r.ReadString()}
		m.Address, m.Port = r.ReadInet()
		return m, nil
	case EventStatusChange:
		m := &StatusChangeEvent{Change: r.ReadString()}
		m.Address, m.Port = r.ReadInet()
		return m, nil
	case EventSchemaChange:
		m := &SchemaChangeEvent{}
		if err := m.SchemaChange.decode(r, v); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, primitive.Malformedf("unknown event type %q", typ)
}
