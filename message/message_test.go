package message

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/codewiresh/cqlwire/frame"
	"github.com/codewiresh/cqlwire/primitive"
	"github.com/codewiresh/cqlwire/values"
)

// Decoders build empty slices where encoders may have carried nil ones;
// that difference is invisible on the wire.
var cmpValues = cmpopts.EquateEmpty()

func requestRoundTrip(t *testing.T, v primitive.Version, m Message) Message {
	t.Helper()
	body, err := EncodeBody(m, v)
	if err != nil {
		t.Fatalf("EncodeBody(%s, %s): %v", m.OpCode(), v, err)
	}
	back, err := DecodeRequest(m.OpCode(), body, v)
	if err != nil {
		t.Fatalf("DecodeRequest(%s, %s): %v", m.OpCode(), v, err)
	}
	if diff := cmp.Diff(m, back, cmpValues); diff != "" {
		t.Fatalf("%s round trip under %s (-want +got):\n%s", m.OpCode(), v, diff)
	}
	return back
}

func responseRoundTrip(t *testing.T, v primitive.Version, m Message) Message {
	t.Helper()
	body, err := EncodeBody(m, v)
	if err != nil {
		t.Fatalf("EncodeBody(%s, %s): %v", m.OpCode(), v, err)
	}
	back, err := DecodeResponse(m.OpCode(), body, v)
	if err != nil {
		t.Fatalf("DecodeResponse(%s, %s): %v", m.OpCode(), v, err)
	}
	if diff := cmp.Diff(m, back, cmpValues); diff != "" {
		t.Fatalf("%s round trip under %s (-want +got):\n%s", m.OpCode(), v, diff)
	}
	return back
}

func TestStartup(t *testing.T) {
	m := NewStartup("lz4")
	if m.Options[StartupCompression] != "lz4" || m.Options[StartupCQLVersion] != DefaultCQLVersion {
		t.Fatalf("NewStartup options: %v", m.Options)
	}
	requestRoundTrip(t, primitive.Version4, m)
	requestRoundTrip(t, primitive.Version4, &Startup{Options: map[string]string{
		StartupCQLVersion:    DefaultCQLVersion,
		StartupDriverName:    "cqlwire",
		StartupDriverVersion: "0.1.0",
	}})
}

func TestOptionsAndReady(t *testing.T) {
	body, err := EncodeBody(&Options{}, primitive.Version4)
	if err != nil || len(body) != 0 {
		t.Fatalf("Options body = % X, %v", body, err)
	}
	requestRoundTrip(t, primitive.Version3, &Options{})
	responseRoundTrip(t, primitive.Version3, &Ready{})
}

// Encoding a QUERY with consistency QUORUM and one bound int value 42 under
// v4, then pushing the wire bytes back through the envelope codec and the
// request decoder, must reproduce the parameter structure exactly.
func TestQueryThroughEnvelope(t *testing.T) {
	intVal, err := values.Marshal(values.Primitive(values.TypeInt), int32(42))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	q := &Query{
		Query: "SELECT v FROM ks.t WHERE k = ?",
		Params: QueryParams{
			Consistency: primitive.Quorum,
			Values:      []primitive.Value{primitive.BytesValue(intVal)},
		},
	}

	f, err := RequestFrame(primitive.Version4, 7, q)
	if err != nil {
		t.Fatalf("RequestFrame: %v", err)
	}
	codec := &frame.Codec{Version: primitive.Version4}
	wire, err := codec.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	res := codec.Decode(wire)
	if !res.Complete() || res.Err != nil {
		t.Fatalf("Decode: %+v", res)
	}
	if res.Consumed != len(wire) {
		t.Fatalf("consumed %d of %d", res.Consumed, len(wire))
	}
	back, err := DecodeRequest(res.Frame.Op, res.Frame.Body, primitive.Version4)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	got := back.(*Query)
	if diff := cmp.Diff(q, got); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
	if got.Params.Consistency != primitive.Quorum {
		t.Fatalf("consistency = %s", got.Params.Consistency)
	}
}

func TestQueryParamsAllFields(t *testing.T) {
	q := &Query{
		Query: "UPDATE t SET v = ? WHERE k = ?",
		Params: QueryParams{
			Consistency:       primitive.LocalQuorum,
			Values:            []primitive.Value{primitive.NullValue(), primitive.NotSetValue()},
			SkipMetadata:      true,
			PageSize:          5000,
			PagingState:       []byte{1, 2, 3},
			SerialConsistency: primitive.LocalSerial,
			HasTimestamp:      true,
			Timestamp:         1700000000000000,
		},
	}
	requestRoundTrip(t, primitive.Version3, q)
	requestRoundTrip(t, primitive.Version4, q)

	q.Params.Keyspace = "ks"
	q.Params.HasNowInSeconds = true
	q.Params.NowInSeconds = 12345
	requestRoundTrip(t, primitive.Version5, q)

	if _, err := EncodeBody(q, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("keyspace under v4 err = %v, want ErrConstraint", err)
	}
}

func TestNamedValues(t *testing.T) {
	q := &Query{
		Query: "SELECT * FROM t WHERE k = :k",
		Params: QueryParams{
			Consistency: primitive.One,
			Values:      []primitive.Value{primitive.BytesValue([]byte{9})},
			Names:       []string{"k"},
		},
	}
	requestRoundTrip(t, primitive.Version4, q)

	q.Params.Names = []string{"k", "extra"}
	if _, err := EncodeBody(q, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("name/value mismatch err = %v, want ErrConstraint", err)
	}
}

func TestPrepareVersionGate(t *testing.T) {
	requestRoundTrip(t, primitive.Version4, &Prepare{Query: "SELECT 1"})
	requestRoundTrip(t, primitive.Version5, &Prepare{Query: "SELECT 1", Keyspace: "ks"})
	requestRoundTrip(t, primitive.Version5, &Prepare{Query: "SELECT 1"})

	if _, err := EncodeBody(&Prepare{Query: "q", Keyspace: "ks"}, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("keyspace under v4 err = %v, want ErrConstraint", err)
	}
}

func TestExecute(t *testing.T) {
	m := &Execute{
		ID: []byte{0xDE, 0xAD},
		Params: QueryParams{
			Consistency: primitive.Quorum,
			Values:      []primitive.Value{primitive.BytesValue([]byte{0, 0, 0, 1})},
		},
	}
	requestRoundTrip(t, primitive.Version4, m)

	m.ResultMetadataID = []byte{0xBE, 0xEF}
	requestRoundTrip(t, primitive.Version5, m)
	if _, err := EncodeBody(m, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("metadata id under v4 err = %v, want ErrConstraint", err)
	}
}

func TestBatch(t *testing.T) {
	m := &Batch{
		Type: BatchUnlogged,
		Statements: []BatchStatement{
			{Query: "INSERT INTO t (k) VALUES (?)", Values: []primitive.Value{primitive.BytesValue([]byte{1})}},
			{ID: []byte{0xAA}, Values: []primitive.Value{primitive.NullValue()}},
		},
		Consistency:       primitive.Two,
		SerialConsistency: primitive.Serial,
		HasTimestamp:      true,
		Timestamp:         42,
	}
	requestRoundTrip(t, primitive.Version4, m)

	m.Keyspace = "ks"
	requestRoundTrip(t, primitive.Version5, m)
	if _, err := EncodeBody(m, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("batch keyspace under v4 err = %v, want ErrConstraint", err)
	}

	bad := []byte{9}
	if _, err := DecodeRequest(primitive.OpBatch, bad, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("bad batch type err = %v, want ErrMalformed", err)
	}
}

func TestRegisterAndAuth(t *testing.T) {
	requestRoundTrip(t, primitive.Version4, &Register{EventTypes: []string{EventTopologyChange, EventStatusChange}})
	requestRoundTrip(t, primitive.Version4, &AuthResponse{Token: []byte("user\x00pass")})
	responseRoundTrip(t, primitive.Version4, &Authenticate{Authenticator: "org.apache.cassandra.auth.PasswordAuthenticator"})
	responseRoundTrip(t, primitive.Version4, &AuthChallenge{Token: []byte{1, 2}})
	responseRoundTrip(t, primitive.Version4, &AuthSuccess{})
}

func TestSupported(t *testing.T) {
	responseRoundTrip(t, primitive.Version4, &Supported{Options: map[string][]string{
		"COMPRESSION": {"lz4", "snappy"},
		"CQL_VERSION": {"3.4.5"},
	}})
}

func TestEvents(t *testing.T) {
	responseRoundTrip(t, primitive.Version4, &TopologyChangeEvent{
		Change:  "NEW_NODE",
		Address: net.IP{10, 0, 0, 5},
		Port:    9042,
	})
	responseRoundTrip(t, primitive.Version4, &StatusChangeEvent{
		Change:  "DOWN",
		Address: net.ParseIP("2001:db8::5"),
		Port:    9042,
	})
	responseRoundTrip(t, primitive.Version4, &SchemaChangeEvent{SchemaChange{
		Change:   "CREATED",
		Target:   TargetTable,
		Keyspace: "ks",
		Object:   "t",
	}})
	responseRoundTrip(t, primitive.Version4, &SchemaChangeEvent{SchemaChange{
		Change:    "DROPPED",
		Target:    TargetFunction,
		Keyspace:  "ks",
		Object:    "f",
		Arguments: []string{"int", "text"},
	}})

	body := primitive.AppendString(nil, "MYSTERY_EVENT")
	if _, err := DecodeResponse(primitive.OpEvent, body, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("unknown event err = %v, want ErrMalformed", err)
	}
}

func TestResultKinds(t *testing.T) {
	responseRoundTrip(t, primitive.Version4, &VoidResult{})
	responseRoundTrip(t, primitive.Version4, &SetKeyspaceResult{Keyspace: "ks"})
	responseRoundTrip(t, primitive.Version4, &SchemaChangeResult{SchemaChange{
		Change:   "UPDATED",
		Target:   TargetKeyspace,
		Keyspace: "ks",
	}})

	body := primitive.AppendInt(nil, 0x99)
	if _, err := DecodeResponse(primitive.OpResult, body, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("unknown result kind err = %v, want ErrMalformed", err)
	}
}

func TestRowsResult(t *testing.T) {
	m := &RowsResult{
		Metadata: RowsMetadata{
			GlobalKeyspace: "ks",
			GlobalTable:    "t",
			Columns: []ColumnSpec{
				{Name: "k", Type: values.Primitive(values.TypeInt)},
				{Name: "v", Type: values.List(values.Primitive(values.TypeVarchar))},
			},
		},
		Rows: [][]primitive.Value{
			{primitive.BytesValue([]byte{0, 0, 0, 1}), primitive.NullValue()},
			{primitive.BytesValue([]byte{0, 0, 0, 2}), primitive.BytesValue([]byte{0, 0, 0, 0})},
		},
	}
	m.Metadata.ColumnCount = int32(len(m.Metadata.Columns))
	back := responseRoundTrip(t, primitive.Version4, m).(*RowsResult)
	if back.Metadata.Columns[1].Type.Kind != values.TypeList {
		t.Fatalf("column type = %s", back.Metadata.Columns[1].Type)
	}

	// Rows with per-column table specs and a paging state.
	m2 := &RowsResult{
		Metadata: RowsMetadata{
			PagingState: []byte{0xCA, 0xFE},
			Columns: []ColumnSpec{
				{Keyspace: "ks1", Table: "a", Name: "x", Type: values.Primitive(values.TypeUUID)},
			},
		},
		Rows: [][]primitive.Value{{primitive.BytesValue(bytes.Repeat([]byte{7}, 16))}},
	}
	m2.Metadata.ColumnCount = 1
	responseRoundTrip(t, primitive.Version4, m2)

	// skip-metadata: only the count travels.
	m3 := &RowsResult{
		Metadata: RowsMetadata{NoMetadata: true, ColumnCount: 2},
		Rows: [][]primitive.Value{
			{primitive.NullValue(), primitive.BytesValue([]byte{1})},
		},
	}
	responseRoundTrip(t, primitive.Version4, m3)

	// A not-set cell can never appear in a result.
	bad := &RowsResult{
		Metadata: RowsMetadata{NoMetadata: true, ColumnCount: 1},
		Rows:     [][]primitive.Value{{primitive.NotSetValue()}},
	}
	if _, err := EncodeBody(bad, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("not-set cell encode err = %v, want ErrConstraint", err)
	}
	body := primitive.AppendInt(nil, int32(KindRows))
	body = primitive.AppendInt(body, rowsNoMetadata)
	body = primitive.AppendInt(body, 1) // one column
	body = primitive.AppendInt(body, 1) // one row
	body = primitive.AppendInt(body, -2)
	if _, err := DecodeResponse(primitive.OpResult, body, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("not-set cell decode err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRow(t *testing.T) {
	intData, err := values.Marshal(values.Primitive(values.TypeInt), int32(7))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	textData, err := values.Marshal(values.Primitive(values.TypeVarchar), "seven")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	rows := &RowsResult{
		Metadata: RowsMetadata{NoMetadata: true, ColumnCount: 2},
		Rows: [][]primitive.Value{
			{primitive.BytesValue(intData), primitive.BytesValue(textData)},
			{primitive.BytesValue(intData), primitive.NullValue()},
		},
	}
	types := []values.ColumnType{values.Primitive(values.TypeInt), values.Primitive(values.TypeVarchar)}

	got, err := rows.DecodeRow(0, types)
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}
	if diff := cmp.Diff([]any{int32(7), "seven"}, got); diff != "" {
		t.Fatalf("row 0 (-want +got):\n%s", diff)
	}
	got, err = rows.DecodeRow(1, types)
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}
	if got[1] != nil {
		t.Fatalf("null cell decoded to %v", got[1])
	}

	if _, err := rows.DecodeRow(2, types); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("out of range err = %v", err)
	}
	if _, err := rows.DecodeRow(0, types[:1]); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("arity err = %v", err)
	}
}

func TestPreparedResult(t *testing.T) {
	m := &PreparedResult{
		ID: []byte{0x01, 0x02},
		Metadata: PreparedMetadata{
			PKIndexes:      []uint16{0},
			GlobalKeyspace: "ks",
			GlobalTable:    "t",
			Columns: []ColumnSpec{
				{Name: "k", Type: values.Primitive(values.TypeBigint)},
			},
		},
		ResultMetadata: RowsMetadata{
			GlobalKeyspace: "ks",
			GlobalTable:    "t",
			Columns: []ColumnSpec{
				{Name: "v", Type: values.Primitive(values.TypeVarchar)},
			},
			ColumnCount: 1,
		},
	}
	responseRoundTrip(t, primitive.Version4, m)

	m.ResultMetadataID = []byte{0x0A}
	responseRoundTrip(t, primitive.Version5, m)
	if _, err := EncodeBody(m, primitive.Version4); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("metadata id under v4 err = %v, want ErrConstraint", err)
	}

	// v3 has no pk indexes.
	m3 := &PreparedResult{
		ID:       []byte{0x01},
		Metadata: PreparedMetadata{Columns: []ColumnSpec{{Keyspace: "ks", Table: "t", Name: "k", Type: values.Primitive(values.TypeInt)}}},
	}
	responseRoundTrip(t, primitive.Version3, m3)
}

func TestServerErrors(t *testing.T) {
	msgs := []Message{
		&UnavailableError{
			ServerError: ServerError{Code: primitive.ErrCodeUnavailable, Message: "not enough replicas"},
			Consistency: primitive.Quorum,
			Required:    3,
			Alive:       1,
		},
		&ReadTimeoutError{
			ServerError: ServerError{Code: primitive.ErrCodeReadTimeout, Message: "read timed out"},
			Consistency: primitive.LocalQuorum,
			Received:    1,
			BlockFor:    2,
			DataPresent: true,
		},
		&WriteTimeoutError{
			ServerError: ServerError{Code: primitive.ErrCodeWriteTimeout, Message: "write timed out"},
			Consistency: primitive.One,
			Received:    0,
			BlockFor:    1,
			WriteType:   "BATCH_LOG",
		},
		&FunctionFailureError{
			ServerError: ServerError{Code: primitive.ErrCodeFunctionFailure, Message: "udf threw"},
			Keyspace:    "ks",
			Function:    "f",
			ArgTypes:    []string{"int"},
		},
		&AlreadyExistsError{
			ServerError: ServerError{Code: primitive.ErrCodeAlreadyExists, Message: "table exists"},
			Keyspace:    "ks",
			Table:       "t",
		},
		&UnpreparedError{
			ServerError: ServerError{Code: primitive.ErrCodeUnprepared, Message: "unknown id"},
			ID:          []byte{0xDE, 0xAD},
		},
		&ServerError{Code: primitive.ErrCodeSyntax, Message: "line 1: no viable alternative"},
	}
	for _, m := range msgs {
		back := responseRoundTrip(t, primitive.Version4, m)
		if _, ok := back.(error); !ok {
			t.Errorf("%T does not satisfy error", back)
		}
	}
}

func TestFailureErrorsAcrossVersions(t *testing.T) {
	v4 := &ReadFailureError{
		ServerError: ServerError{Code: primitive.ErrCodeReadFailure, Message: "replicas failed"},
		Consistency: primitive.Quorum,
		Received:    1,
		BlockFor:    2,
		NumFailures: 1,
		DataPresent: false,
	}
	responseRoundTrip(t, primitive.Version4, v4)

	v5 := &WriteFailureError{
		ServerError: ServerError{Code: primitive.ErrCodeWriteFailure, Message: "replicas failed"},
		Consistency: primitive.All,
		Received:    2,
		BlockFor:    3,
		NumFailures: 1,
		Reasons:     []FailureReason{{Endpoint: net.IP{10, 0, 0, 9}, Code: 0x0001}},
		WriteType:   "SIMPLE",
	}
	responseRoundTrip(t, primitive.Version5, v5)
}

func TestUnknownErrorCodeFallsBack(t *testing.T) {
	body := primitive.AppendInt(nil, 0x9999)
	body = primitive.AppendString(body, "mystery")
	m, err := DecodeResponse(primitive.OpError, body, primitive.Version4)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	se, ok := m.(*ServerError)
	if !ok {
		t.Fatalf("got %T, want *ServerError", m)
	}
	if int32(se.Code) != 0x9999 || se.Message != "mystery" {
		t.Fatalf("got %+v", se)
	}
}

func TestParseInbound(t *testing.T) {
	tid := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	body := primitive.AppendUUID(nil, tid)
	body = primitive.AppendBytesMap(body, map[string][]byte{"k": {1}})
	body = primitive.AppendStringList(body, []string{"careful now"})
	inner, err := EncodeBody(&VoidResult{}, primitive.Version4)
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	body = append(body, inner...)

	f := &frame.Frame{
		Version:  primitive.Version4,
		Response: true,
		Flags:    primitive.FlagTracing | primitive.FlagCustomPayload | primitive.FlagWarning,
		Stream:   3,
		Op:       primitive.OpResult,
		Body:     body,
	}
	in, err := ParseInbound(f)
	if err != nil {
		t.Fatalf("ParseInbound: %v", err)
	}
	if in.TracingID == nil || *in.TracingID != tid {
		t.Fatalf("tracing id = %v", in.TracingID)
	}
	if len(in.Warnings) != 1 || in.Warnings[0] != "careful now" {
		t.Fatalf("warnings = %v", in.Warnings)
	}
	if !bytes.Equal(in.Custom["k"], []byte{1}) {
		t.Fatalf("custom payload = %v", in.Custom)
	}
	if _, ok := in.Message.(*VoidResult); !ok {
		t.Fatalf("message = %T", in.Message)
	}

	if _, err := ParseInbound(&frame.Frame{Version: primitive.Version4, Op: primitive.OpResult}); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("request frame err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	body, err := EncodeBody(&Authenticate{Authenticator: "x"}, primitive.Version4)
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	body = append(body, 0xFF)
	if _, err := DecodeResponse(primitive.OpAuthenticate, body, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("trailing bytes err = %v, want ErrMalformed", err)
	}
}

func TestOpcodeDirection(t *testing.T) {
	if _, err := DecodeRequest(primitive.OpReady, nil, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("response opcode as request err = %v", err)
	}
	if _, err := DecodeResponse(primitive.OpQuery, nil, primitive.Version4); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("request opcode as response err = %v", err)
	}
	if _, err := RequestFrame(primitive.Version4, 0, &Ready{}); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("RequestFrame(Ready) err = %v", err)
	}
	if _, err := ResponseFrame(primitive.Version4, 0, &Options{}); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("ResponseFrame(Options) err = %v", err)
	}
}
