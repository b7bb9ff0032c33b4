package message

import (
	"github.com/codewiresh/cqlwire/primitive"
)

// Keys understood in the STARTUP option map.
const (
	StartupCQLVersion    = "CQL_VERSION"
	StartupCompression   = "COMPRESSION"
	StartupDriverName    = "DRIVER_NAME"
	StartupDriverVersion = "DRIVER_VERSION"

	DefaultCQLVersion = "3.0.0"
)

// Startup opens the connection-level handshake. Every connection sends it
// exactly once, before anything but OPTIONS.
type Startup struct {
	Options map[string]string
}

// NewStartup returns a Startup carrying the default CQL version and, when
// non-empty, the given compression algorithm name.
func NewStartup(compression string) *Startup {
	opts := map[string]string{StartupCQLVersion: DefaultCQLVersion}
	if compression != "" {
		opts[StartupCompression] = compression
	}
	return &Startup{Options: opts}
}

func (*Startup) OpCode() primitive.OpCode { return primitive.OpStartup }

func (m *Startup) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return primitive.AppendStringMap(p, m.Options), nil
}

func decodeStartup(r *primitive.Reader) (Message, error) {
	return &Startup{Options: r.ReadStringMap()}, nil
}

// Options asks the server which STARTUP options it supports. Its body is
// empty; the answer is a Supported response.
type Options struct{}

func (*Options) OpCode() primitive.OpCode { return primitive.OpOptions }

func (*Options) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return p, nil
}

// Query runs a CQL statement with bound parameters.
type Query struct {
	Query  string
	Params QueryParams
}

func (*Query) OpCode() primitive.OpCode { return primitive.OpQuery }

func (m *Query) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	if err := primitive.CheckIntLen("query string", len(m.Query)); err != nil {
		return nil, err
	}
	p = primitive.AppendLongString(p, m.Query)
	return m.Params.append(p, v)
}

func decodeQuery(r *primitive.Reader, v primitive.Version) (Message, error) {
	m := &Query{Query: r.ReadLongString()}
	if err := m.Params.decode(r, v); err != nil {
		return nil, err
	}
	return m, nil
}

// Prepare registers a statement for later Execute calls. The keyspace
// override exists from v5 on.
type Prepare struct {
	Query    string
	Keyspace string
}

func (*Prepare) OpCode() primitive.OpCode { return primitive.OpPrepare }

const prepareWithKeyspace = 0x01

func (m *Prepare) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	if err := primitive.CheckIntLen("query string", len(m.Query)); err != nil {
		return nil, err
	}
	p = primitive.AppendLongString(p, m.Query)
	if v < primitive.Version5 {
		if m.Keyspace != "" {
			return nil, primitive.Constraintf("prepare keyspace needs protocol v5, have %s", v)
		}
		return p, nil
	}
	var flags int32
	if m.Keyspace != "" {
		flags |= prepareWithKeyspace
	}
	p = primitive.AppendInt(p, flags)
	if m.Keyspace != "" {
		p = primitive.AppendString(p, m.Keyspace)
	}
	return p, nil
}

func decodePrepare(r *primitive.Reader, v primitive.Version) (Message, error) {
	m := &Prepare{Query: r.ReadLongString()}
	if v < primitive.Version5 {
		return m, nil
	}
	flags := r.ReadInt()
	if flags&^int32(prepareWithKeyspace) != 0 {
		return nil, primitive.Malformedf("reserved prepare flags 0x%X", flags)
	}
	if flags&prepareWithKeyspace != 0 {
		m.Keyspace = r.ReadString()
	}
	return m, nil
}

// Execute runs a previously prepared statement. ResultMetadataID echoes the
// metadata version the client knows, so the server can flag staleness; it
// exists from v5 on.
type Execute struct {
	ID               []byte
	ResultMetadataID []byte
	Params           QueryParams
}

func (*Execute) OpCode() primitive.OpCode { return primitive.OpExecute }

func (m *Execute) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	if err := primitive.CheckShortLen("statement id", len(m.ID)); err != nil {
		return nil, err
	}
	p = primitive.AppendShortBytes(p, m.ID)
	if v >= primitive.Version5 {
		p = primitive.AppendShortBytes(p, m.ResultMetadataID)
	} else if len(m.ResultMetadataID) != 0 {
		return nil, primitive.Constraintf("result metadata id needs protocol v5, have %s", v)
	}
	return m.Params.append(p, v)
}

func decodeExecute(r *primitive.Reader, v primitive.Version) (Message, error) {
	m := &Execute{ID: r.ReadShortBytes()}
	if v >= primitive.Version5 {
		m.ResultMetadataID = r.ReadShortBytes()
	}
	if err := m.Params.decode(r, v); err != nil {
		return nil, err
	}
	return m, nil
}

// BatchType selects the batch semantics.
type BatchType byte

const (
	BatchLogged   BatchType = 0
	BatchUnlogged BatchType = 1
	BatchCounter  BatchType = 2
)

// BatchStatement is one entry of a Batch: either a raw query string or a
// prepared statement id, plus its positional values.
type BatchStatement struct {
	Query  string
	ID     []byte
	Values []primitive.Value
}

// Batch runs several statements as one unit. Batches carry only the
// params subset that applies to the whole batch; per-statement values are
// always positional.
type Batch struct {
	Type              BatchType
	Statements        []BatchStatement
	Consistency       primitive.Consistency
	SerialConsistency primitive.SerialConsistency
	HasTimestamp      bool
	Timestamp         int64
	Keyspace          string
	HasNowInSeconds   bool
	NowInSeconds      int32
}

func (*Batch) OpCode() primitive.OpCode { return primitive.OpBatch }

const (
	batchKindQuery    = 0
	batchKindPrepared = 1
)

func (m *Batch) appendBody(p []byte, v primitive.Version) ([]byte, error) {
	if m.Type > BatchCounter {
		return nil, primitive.Constraintf("unknown batch type %d", m.Type)
	}
	if err := primitive.CheckShortLen("batch statements", len(m.Statements)); err != nil {
		return nil, err
	}
	p = append(p, byte(m.Type))
	p = primitive.AppendShort(p, uint16(len(m.Statements)))
	for _, s := range m.Statements {
		if len(s.ID) > 0 {
			p = append(p, batchKindPrepared)
			p = primitive.AppendShortBytes(p, s.ID)
		} else {
			p = append(p, batchKindQuery)
			p = primitive.AppendLongString(p, s.Query)
		}
		if err := primitive.CheckShortLen("batch values", len(s.Values)); err != nil {
			return nil, err
		}
		p = primitive.AppendShort(p, uint16(len(s.Values)))
		for _, val := range s.Values {
			p = primitive.AppendValue(p, val)
		}
	}
	p = primitive.AppendConsistency(p, m.Consistency)

	var flags int32
	if m.SerialConsistency != 0 {
		flags |= flagSerialConsistency
	}
	if m.HasTimestamp {
		flags |= flagDefaultTimestamp
	}
	if m.Keyspace != "" {
		flags |= flagWithKeyspace
	}
	if m.HasNowInSeconds {
		flags |= flagNowInSeconds
	}
	if v < primitive.Version5 && flags&(flagWithKeyspace|flagNowInSeconds) != 0 {
		return nil, primitive.Constraintf("batch keyspace/now-in-seconds need protocol v5, have %s", v)
	}
	p = appendQueryFlags(p, v, flags)
	if m.SerialConsistency != 0 {
		p = primitive.AppendConsistency(p, primitive.Consistency(m.SerialConsistency))
	}
	if m.HasTimestamp {
		p = primitive.AppendLong(p, m.Timestamp)
	}
	if m.Keyspace != "" {
		p = primitive.AppendString(p, m.Keyspace)
	}
	if m.HasNowInSeconds {
		p = primitive.AppendInt(p, m.NowInSeconds)
	}
	return p, nil
}

func decodeBatch(r *primitive.Reader, v primitive.Version) (Message, error) {
	m := &Batch{Type: BatchType(r.ReadUint8())}
	if r.Err() == nil && m.Type > BatchCounter {
		return nil, primitive.Malformedf("unknown batch type %d", m.Type)
	}
	n := int(r.ReadShort())
	for i := 0; i < n && r.Err() == nil; i++ {
		var s BatchStatement
		switch kind := r.ReadUint8(); kind {
		case batchKindQuery:
			s.Query = r.ReadLongString()
		case batchKindPrepared:
			s.ID = r.ReadShortBytes()
		default:
			return nil, primitive.Malformedf("batch statement kind %d", kind)
		}
		nv := int(r.ReadShort())
		for j := 0; j < nv && r.Err() == nil; j++ {
			s.Values = append(s.Values, r.ReadValue())
		}
		m.Statements = append(m.Statements, s)
	}
	m.Consistency = r.ReadConsistency()
	flags, err := readQueryFlags(r, v)
	if err != nil {
		return nil, err
	}
	known := int32(flagSerialConsistency | flagDefaultTimestamp)
	if v >= primitive.Version5 {
		known |= flagWithKeyspace | flagNowInSeconds
	}
	if flags&^known != 0 {
		return nil, primitive.Malformedf("unsupported batch flags 0x%X under %s", flags, v)
	}
	if flags&flagSerialConsistency != 0 {
		m.SerialConsistency = primitive.SerialConsistency(r.ReadConsistency())
	}
	if flags&flagDefaultTimestamp != 0 {
		m.HasTimestamp = true
		m.Timestamp = r.ReadLong()
	}
	if flags&flagWithKeyspace != 0 {
		m.Keyspace = r.ReadString()
	}
	if flags&flagNowInSeconds != 0 {
		m.HasNowInSeconds = true
		m.NowInSeconds = r.ReadInt()
	}
	return m, nil
}

// Register subscribes the connection to server push events.
type Register struct {
	EventTypes []string
}

func (*Register) OpCode() primitive.OpCode { return primitive.OpRegister }

func (m *Register) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	if err := primitive.CheckShortLen("event types", len(m.EventTypes)); err != nil {
		return nil, err
	}
	return primitive.AppendStringList(p, m.EventTypes), nil
}

func decodeRegister(r *primitive.Reader) (Message, error) {
	return &Register{EventTypes: r.ReadStringList()}, nil
}

// AuthResponse answers an Authenticate or AuthChallenge with an opaque
// SASL token. A nil token is distinct from an empty one on the wire.
type AuthResponse struct {
	Token []byte
}

func (*AuthResponse) OpCode() primitive.OpCode { return primitive.OpAuthResponse }

func (m *AuthResponse) appendBody(p []byte, _ primitive.Version) ([]byte, error) {
	return primitive.AppendBytes(p, m.Token), nil
}

func decodeAuthResponse(r *primitive.Reader) (Message, error) {
	return &AuthResponse{Token: r.ReadBytes()}, nil
}
